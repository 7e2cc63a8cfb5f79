package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"jobproxy-engine/internal/config"
)

// TokenPair is the result of a full login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	APIKey   string `json:"api_key"`
}

type authResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Message      string `json:"message"`
	Detail       string `json:"detail"`
}

// Authenticate performs a full login with the configured credentials.
func (c *Client) Authenticate(ctx context.Context) (TokenPair, error) {
	body, _ := json.Marshal(authRequest{
		Email:    c.opts.Email,
		Password: c.opts.Password,
		APIKey:   c.opts.APIKey,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.opts.AuthPath), bytes.NewReader(body))
	if err != nil {
		return TokenPair{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.do(req)
	if err != nil {
		return TokenPair{}, &AuthError{Message: err.Error()}
	}
	defer res.Body.Close()

	var ar authResponse
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	_ = json.Unmarshal(raw, &ar)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return TokenPair{}, &AuthError{Message: fmt.Sprintf("status %d: %s", res.StatusCode, authMessage(ar, raw))}
	}
	if strings.TrimSpace(ar.AccessToken) == "" {
		// 2xx without a token still counts as a rejected login.
		return TokenPair{}, &AuthError{Message: "no access token in response: " + authMessage(ar, raw)}
	}

	c.log.Info().Msg("authenticated with upstream")
	return TokenPair{AccessToken: ar.AccessToken, RefreshToken: ar.RefreshToken}, nil
}

// Refresh exchanges the still-valid access token for a fresh one. Platform
// quirk: the refresh endpoint wants the access token, not the refresh token.
func (c *Client) Refresh(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.opts.RefreshPath), nil)
	if err != nil {
		return "", err
	}
	switch c.opts.RefreshScheme {
	case config.RefreshSchemeBearer:
		req.Header.Set("Authorization", "Bearer "+accessToken)
	default:
		req.Header.Set("Token", accessToken)
	}

	res, err := c.do(req)
	if err != nil {
		return "", &UpstreamError{Status: 0, Message: err.Error()}
	}
	defer res.Body.Close()

	var ar authResponse
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	_ = json.Unmarshal(raw, &ar)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", &UpstreamError{Status: res.StatusCode, Message: authMessage(ar, raw)}
	}
	if strings.TrimSpace(ar.AccessToken) == "" {
		return "", &UpstreamError{Status: res.StatusCode, Message: "no access token in refresh response"}
	}

	c.log.Debug().Msg("refreshed upstream access token")
	return ar.AccessToken, nil
}

func authMessage(ar authResponse, raw []byte) string {
	if ar.Message != "" {
		return ar.Message
	}
	if ar.Detail != "" {
		return ar.Detail
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
