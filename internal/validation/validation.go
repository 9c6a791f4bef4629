package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"offerdesk/internal/models"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	dateRegex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRegex  = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateURL checks that raw is an absolute http(s) link
func ValidateURL(field, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ValidationError{Field: field, Message: "must be an http or https URL"}
	}
	return nil
}

// ValidateOffer checks a loan offer before it is appended
func ValidateOffer(offer models.LoanOffer) error {
	if strings.TrimSpace(offer.Name) == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	switch offer.Type {
	case models.OfferTypeWeb, models.OfferTypeH5, models.OfferTypeCIC:
	default:
		return ValidationError{Field: "type", Message: "type must be WEB, H5 or CIC"}
	}
	switch offer.Status {
	case models.OfferStatusActive, models.OfferStatusInactive:
	default:
		return ValidationError{Field: "status", Message: "status must be Active or Inactive"}
	}
	return ValidateURL("affLink", offer.AffLink)
}

// ValidatePost checks a scheduled post before it is written
func ValidatePost(post models.ScheduledPost) error {
	if !dateRegex.MatchString(post.Date) {
		return ValidationError{Field: "date", Message: "date must be YYYY-MM-DD"}
	}
	if !timeRegex.MatchString(post.Time) {
		return ValidationError{Field: "time", Message: "time must be HH:MM"}
	}
	if strings.TrimSpace(post.Content) == "" {
		return ValidationError{Field: "content", Message: "content is required"}
	}
	if post.ButtonLink != "" {
		if err := ValidateURL("buttonLink", post.ButtonLink); err != nil {
			return err
		}
	}
	if post.ImageLink != "" && !post.HasEmbeddedImage() {
		if err := ValidateURL("imageLink", post.ImageLink); err != nil {
			return err
		}
	}
	switch post.Status {
	case models.PostStatusPending, models.PostStatusDone:
	default:
		return ValidationError{Field: "status", Message: "status must be Pending or Done"}
	}
	return nil
}
