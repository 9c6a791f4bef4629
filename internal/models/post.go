package models

import "strings"

// Post statuses
const (
	PostStatusPending = "Pending"
	PostStatusDone    = "Done"
)

// ScheduledPost is one row of the schedule sheet (columns A..G)
type ScheduledPost struct {
	Date       string `json:"date"`
	Time       string `json:"time"`
	Content    string `json:"content"`
	ButtonLink string `json:"buttonLink"`
	ImageLink  string `json:"imageLink"`
	Status     string `json:"status"`
	ExactTime  string `json:"exactTime"`
}

// IsPending reports whether the post still waits to be sent
func (p ScheduledPost) IsPending() bool {
	return p.Status == PostStatusPending
}

// HasEmbeddedImage reports whether the image is a data URI rather than a link
func (p ScheduledPost) HasEmbeddedImage() bool {
	return strings.HasPrefix(p.ImageLink, "data:")
}

// Row returns the sheet cells in column order
func (p ScheduledPost) Row() []interface{} {
	return []interface{}{p.Date, p.Time, p.Content, p.ButtonLink, p.ImageLink, p.Status, p.ExactTime}
}
