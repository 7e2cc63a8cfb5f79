package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobproxy-engine/internal/config"
)

func authClient(srv *httptest.Server, scheme string) *Client {
	return NewClient(Options{
		BaseURL:       srv.URL,
		AuthPath:      "/auth",
		RefreshPath:   "/refresh",
		RefreshScheme: scheme,
		Email:         "proxy@example.com",
		Password:      "hunter2",
		APIKey:        "key-123",
		ReqPerSec:     1000,
		Burst:         1000,
	}, zerolog.Nop())
}

func TestAuthenticateSendsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "proxy@example.com", body["email"])
		assert.Equal(t, "hunter2", body["password"])
		assert.Equal(t, "key-123", body["api_key"])

		_, _ = w.Write([]byte(`{"access_token":"acc-1","refresh_token":"ref-1"}`))
	}))
	defer srv.Close()

	pair, err := authClient(srv, config.RefreshSchemeRaw).Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acc-1", pair.AccessToken)
	assert.Equal(t, "ref-1", pair.RefreshToken)
}

func TestAuthenticateMissingTokenIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"account locked"}`))
	}))
	defer srv.Close()

	_, err := authClient(srv, config.RefreshSchemeRaw).Authenticate(context.Background())
	require.Error(t, err)

	var aerr *AuthError
	require.True(t, errors.As(err, &aerr))
	assert.Contains(t, aerr.Message, "account locked")
}

func TestAuthenticateRejectedLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"bad password"}`))
	}))
	defer srv.Close()

	_, err := authClient(srv, config.RefreshSchemeRaw).Authenticate(context.Background())
	var aerr *AuthError
	require.True(t, errors.As(err, &aerr))
	assert.Contains(t, aerr.Message, "bad password")
}

func TestRefreshRawScheme(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/refresh", r.URL.Path)
		assert.Equal(t, "old-access", r.Header.Get("Token"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"access_token":"new-access"}`))
	}))
	defer srv.Close()

	tok, err := authClient(srv, config.RefreshSchemeRaw).Refresh(context.Background(), "old-access")
	require.NoError(t, err)
	assert.Equal(t, "new-access", tok)
}

func TestRefreshBearerScheme(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer old-access", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("Token"))
		_, _ = w.Write([]byte(`{"access_token":"new-access"}`))
	}))
	defer srv.Close()

	tok, err := authClient(srv, config.RefreshSchemeBearer).Refresh(context.Background(), "old-access")
	require.NoError(t, err)
	assert.Equal(t, "new-access", tok)
}

func TestRefreshFailureIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"refresh rejected"}`))
	}))
	defer srv.Close()

	_, err := authClient(srv, config.RefreshSchemeRaw).Refresh(context.Background(), "old-access")
	require.Error(t, err)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 401, ue.Status)
}
