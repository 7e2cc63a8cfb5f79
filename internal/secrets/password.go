package secrets

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"jobproxy-engine/internal/config"
)

const (
	// KeyringService groups the engine's secrets in the OS keychain.
	KeyringService = "jobproxy"

	// EnvPassword overrides the keychain; handy for containers and CI.
	EnvPassword = "JOBPROXY_UPSTREAM_PASSWORD"
)

// GetUpstreamPassword resolves the upstream login password: env var first,
// then the OS keychain. The password never lives in the YAML config.
func GetUpstreamPassword(keyringAccount string) (string, error) {
	if pw := strings.TrimSpace(os.Getenv(EnvPassword)); pw != "" {
		return pw, nil
	}

	if strings.TrimSpace(keyringAccount) != "" {
		pw, err := keyring.Get(KeyringService, keyringAccount)
		if err == nil && strings.TrimSpace(pw) != "" {
			return pw, nil
		}
	}

	return "", errors.New("upstream password not found (set " + EnvPassword + " or store it in the keychain)")
}

func SetUpstreamPassword(keyringAccount string, password string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, password)
}

func DeleteUpstreamPassword(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, keyringAccount)
}

func UpstreamKeyringAccount(cfg config.Config) string {
	host := cfg.Upstream.BaseURL
	if u, err := url.Parse(cfg.Upstream.BaseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return fmt.Sprintf("jobproxy:upstream:%s@%s", cfg.Upstream.Email, host)
}
