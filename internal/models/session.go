package models

import (
	"encoding/json"
	"time"
)

// GoogleUser is the profile of the account that granted consent
type GoogleUser struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// AuthSession is the single persisted sign-in slot
type AuthSession struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         GoogleUser
	BrowserID    string
}

// IsExpired checks if the session has expired
func (s *AuthSession) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt reports whether the session is no longer usable at now
func (s *AuthSession) IsExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// authSessionJSON keeps the stored form compatible with the epoch-ms layout
// the dashboard has always persisted.
type authSessionJSON struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresAt    int64      `json:"expiresAt"`
	User         GoogleUser `json:"user"`
	BrowserID    string     `json:"browserId,omitempty"`
}

func (s AuthSession) MarshalJSON() ([]byte, error) {
	return json.Marshal(authSessionJSON{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt.UnixMilli(),
		User:         s.User,
		BrowserID:    s.BrowserID,
	})
}

func (s *AuthSession) UnmarshalJSON(data []byte) error {
	var raw authSessionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = AuthSession{
		AccessToken:  raw.AccessToken,
		RefreshToken: raw.RefreshToken,
		ExpiresAt:    time.UnixMilli(raw.ExpiresAt),
		User:         raw.User,
		BrowserID:    raw.BrowserID,
	}
	return nil
}
