// Package auth signs users in and out against a GoTrue compatible auth
// server. Token verification happens locally with the shared JWT secret.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/supabase-community/gotrue-go"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrNotConfigured      = errors.New("auth server is not configured")
)

type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Client struct {
	gotrue gotrue.Client // nil when no auth URL is configured
}

// NewClient talks to the GoTrue API at baseURL, e.g.
// https://<project>.supabase.co/auth/v1.
func NewClient(baseURL, apiKey string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return &Client{}
	}

	gc := gotrue.New("", apiKey).
		WithCustomGoTrueURL(baseURL).
		WithClient(http.Client{Timeout: 15 * time.Second})
	return &Client{gotrue: gc}
}

// SignIn exchanges email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if c.gotrue == nil {
		return nil, ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := c.gotrue.SignInWithEmailPassword(email, password)
	if err != nil {
		if rejected(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth sign in: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, errors.New("auth server returned no access token")
	}

	return &Session{
		AccessToken:  resp.AccessToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		RefreshToken: resp.RefreshToken,
		User:         User{ID: resp.User.ID.String(), Email: resp.User.Email},
	}, nil
}

// SignOut revokes the refresh tokens behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if c.gotrue == nil {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.gotrue.WithToken(accessToken).Logout(); err != nil {
		return fmt.Errorf("auth sign out: %w", err)
	}
	return nil
}

// rejected reports a 400 or 401 answer. gotrue-go reports non-2xx answers
// as "response status code <n>: <body>".
func rejected(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "status code 400") || strings.Contains(msg, "status code 401")
}
