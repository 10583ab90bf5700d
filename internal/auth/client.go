package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Raed-Bourouis/VoiceUP/internal/config"
	"github.com/Raed-Bourouis/VoiceUP/pkg/errors"
)

// Claims is the shape of the identity service's access token. The
// client never verifies the signature; the backend does that on every
// request. We only read the subject to know who is signed in.
type Claims struct {
	jwt.RegisteredClaims
}

// Session is one authenticated user's token state.
type Session struct {
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Client speaks the identity service's token-grant API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.AuthBaseURL, "/"),
		apiKey:  cfg.AuthAPIKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// SignIn exchanges credentials for a session (password grant).
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	payload := map[string]string{"email": email, "password": password}
	session, err := c.tokenRequest(ctx, "password", payload)
	if err != nil {
		return nil, err
	}
	session.Email = email
	return session, nil
}

// Refresh exchanges a refresh token for a fresh session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	payload := map[string]string{"refresh_token": refreshToken}
	return c.tokenRequest(ctx, "refresh_token", payload)
}

func (c *Client) tokenRequest(ctx context.Context, grantType string, payload map[string]string) (*Session, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("auth: marshal token request: %w", err)
	}

	url := fmt.Sprintf("%s/auth/v1/token?grant_type=%s", c.baseURL, grantType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("auth: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: token request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		// The token endpoint answers 400 for a bad password grant and
		// for an expired refresh token alike.
		return nil, errors.Forbidden("auth.Token", "credentials rejected")
	default:
		return nil, fmt.Errorf("auth: token request: status %d", resp.StatusCode)
	}

	var tokens tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("auth: decode token response: %w", err)
	}

	userID, err := subjectOf(tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	return &Session{
		UserID:       userID,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second),
	}, nil
}

// subjectOf pulls the user id out of an access token without
// verifying it.
func subjectOf(accessToken string) (string, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return "", fmt.Errorf("auth: parse access token: %w", err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("auth: access token has no subject")
	}
	return claims.Subject, nil
}
