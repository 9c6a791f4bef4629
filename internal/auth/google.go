package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"offerdesk/internal/models"
)

// Google endpoints used outside the oauth2 code exchange
const (
	GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	GoogleRevokeURL   = "https://oauth2.googleapis.com/revoke"
)

// Scopes requested at consent: sheet access plus the profile for display
var Scopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"openid",
	"email",
	"profile",
}

// NewGoogleConfig builds the oauth2 client configuration for Google
func NewGoogleConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes,
	}
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// userFromIDToken reads the profile claims of the id_token returned with the
// access token. The token comes straight from the token endpoint over TLS so
// its signature is not checked here.
func userFromIDToken(token *oauth2.Token) (models.GoogleUser, bool) {
	raw, _ := token.Extra("id_token").(string)
	if raw == "" {
		return models.GoogleUser{}, false
	}

	claims := &idTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return models.GoogleUser{}, false
	}
	if claims.Email == "" {
		return models.GoogleUser{}, false
	}
	return models.GoogleUser{Email: claims.Email, Name: claims.Name, Picture: claims.Picture}, true
}

func (m *Manager) fetchUserInfo(ctx context.Context, token *oauth2.Token) (models.GoogleUser, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(m.userInfoURL)
	if err != nil {
		return models.GoogleUser{}, fmt.Errorf("failed to fetch Google user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.GoogleUser{}, fmt.Errorf("failed to fetch Google user info: status %d", resp.StatusCode)
	}

	var payload struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.GoogleUser{}, fmt.Errorf("failed to parse Google user info: %w", err)
	}
	return models.GoogleUser{Email: payload.Email, Name: payload.Name, Picture: payload.Picture}, nil
}

func (m *Manager) revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke returned status %d", resp.StatusCode)
	}
	return nil
}
