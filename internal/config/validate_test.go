package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Default()
	cfg.Upstream.BaseURL = "https://api.platform.example"
	cfg.Upstream.Email = "proxy@example.com"
	cfg.Upstream.APIKey = "key-123"
	return cfg
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	_, res := NormalizeAndValidate(validConfig())
	assert.True(t, res.OK(), "errors: %v", res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestValidateRequiresUpstreamFields(t *testing.T) {
	cfg := validConfig()
	cfg.Upstream.BaseURL = ""
	cfg.Upstream.Email = "  "
	cfg.Upstream.APIKey = ""

	_, res := NormalizeAndValidate(cfg)
	require.False(t, res.OK())
	assert.Len(t, res.Errors, 3)
}

func TestValidateRejectsBadRefreshScheme(t *testing.T) {
	cfg := validConfig()
	cfg.Upstream.RefreshScheme = "cookie"

	_, res := NormalizeAndValidate(cfg)
	assert.False(t, res.OK())
}

func TestNormalizeTrimsAndDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Upstream.BaseURL = "  https://api.platform.example/  "
	cfg.Upstream.RefreshScheme = " Bearer "

	out, res := NormalizeAndValidate(cfg)
	require.True(t, res.OK(), "errors: %v", res.Errors)
	assert.Equal(t, "https://api.platform.example", out.Upstream.BaseURL)
	assert.Equal(t, RefreshSchemeBearer, out.Upstream.RefreshScheme)

	cfg.Upstream.RefreshScheme = ""
	out, _ = NormalizeAndValidate(cfg)
	assert.Equal(t, RefreshSchemeRaw, out.Upstream.RefreshScheme)
}

func TestValidateWarnsOnSlackWarmInterval(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.TTLMinutes = 30
	cfg.Cache.WarmIntervalMinutes = 30

	_, res := NormalizeAndValidate(cfg)
	assert.True(t, res.OK())
	assert.NotEmpty(t, res.Warnings)
}

func TestEnsureUserConfigWritesDefaults(t *testing.T) {
	dir := t.TempDir()

	path, err := EnsureUserConfig(dir, filepath.Join(dir, "no-such-default.yml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yml"), path)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Queries.PageSize, cfg.Queries.PageSize)

	// Second call must not clobber the user file.
	require.NoError(t, os.WriteFile(path, []byte("queries:\n  page_size: 7\n"), 0o644))
	again, err := EnsureUserConfig(dir, "")
	require.NoError(t, err)
	cfg, err = Load(again)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Queries.PageSize)
}

func TestEnsureUserConfigCopiesShippedDefault(t *testing.T) {
	dir := t.TempDir()
	shipped := filepath.Join(dir, "default.yml")
	require.NoError(t, os.WriteFile(shipped, []byte("app:\n  port: 12345\n"), 0o644))

	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	path, err := EnsureUserConfig(dataDir, shipped)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12345, cfg.App.Port)
}
