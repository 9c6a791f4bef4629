package service

import (
	"context"
	"fmt"
	"html"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"offerdesk/internal/auth"
	"offerdesk/internal/models"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// AlertService forwards channel notices and mirrors error alerts by email
// through Amazon SES
type AlertService struct {
	channel   Notifier
	client    sesAPI
	fromEmail string
	toEmail   string
	enabled   bool
	now       func() time.Time
}

// NewAlertService creates an alert service. Email is disabled unless both
// addresses are set.
func NewAlertService(channel Notifier, awsRegion, fromEmail, toEmail string) (*AlertService, error) {
	if fromEmail == "" || toEmail == "" {
		log.Println("Alert email disabled: SES_FROM_EMAIL or ALERT_EMAIL not configured")
		return &AlertService{channel: channel, now: time.Now}, nil
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Alert email enabled: from=%s, to=%s, region=%s", fromEmail, toEmail, awsRegion)
	return newAlertService(channel, sesv2.NewFromConfig(cfg), fromEmail, toEmail), nil
}

func newAlertService(channel Notifier, client sesAPI, fromEmail, toEmail string) *AlertService {
	return &AlertService{
		channel:   channel,
		client:    client,
		fromEmail: fromEmail,
		toEmail:   toEmail,
		enabled:   true,
		now:       time.Now,
	}
}

// IsEnabled returns whether error alerts are emailed
func (s *AlertService) IsEnabled() bool {
	return s.enabled
}

func (s *AlertService) NotifyNewOffer(ctx context.Context, offer models.LoanOffer) bool {
	return s.channel.NotifyNewOffer(ctx, offer)
}

func (s *AlertService) NotifyScheduledPost(ctx context.Context, post models.ScheduledPost) bool {
	return s.channel.NotifyScheduledPost(ctx, post)
}

// NotifyError posts the alert to the channel and, when enabled, emails it.
// The result reflects the channel delivery only.
func (s *AlertService) NotifyError(ctx context.Context, message string) bool {
	sent := s.channel.NotifyError(ctx, message)

	if !s.enabled {
		return sent
	}
	if err := s.sendEmail(ctx, message); err != nil {
		log.Printf("Failed to email alert: %v", err)
	}
	return sent
}

// WatchSession raises an error alert whenever the Google session is lost
// without the user signing out, until events closes or ctx is done.
func WatchSession(ctx context.Context, events <-chan auth.Event, notifier Notifier) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Type != auth.EventExpired {
				continue
			}
			message := fmt.Sprintf("Google session for %s expired; sign in again to reach the spreadsheet", event.User.Email)
			if !notifier.NotifyError(ctx, message) {
				log.Printf("Session expiry notice was not delivered to the channel")
			}
		}
	}
}

func (s *AlertService) sendEmail(ctx context.Context, message string) error {
	subject := "Offerdesk alert"
	stamp := s.now().Format(time.RFC1123)
	textBody := fmt.Sprintf("%s\n\n%s\n", message, stamp)
	htmlBody := fmt.Sprintf("<p><strong>%s</strong></p><p>%s</p>", html.EscapeString(message), stamp)

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{s.toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send alert to %s: %w", s.toEmail, err)
	}

	log.Printf("Alert email sent: to=%s", s.toEmail)
	return nil
}
