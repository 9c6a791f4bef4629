package handlers

import "time"

const (
	stateCookieTTL   = 10 * time.Minute
	browserCookieTTL = 30 * 24 * time.Hour

	ErrInvalidJSON         = "Invalid JSON body"
	ErrInvalidIndex        = "Invalid post index"
	ErrUnauthorized        = "Unauthorized"
	ErrInternalServerError = "Internal server error"
)
