package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RefreshScheme controls how the still-valid access token is presented to the
// upstream refresh endpoint. The platform has shipped both shapes, so it is
// configurable rather than hard-coded.
const (
	RefreshSchemeRaw    = "raw"    // Token: <access_token>
	RefreshSchemeBearer = "bearer" // Authorization: Bearer <access_token>
)

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Upstream struct {
		BaseURL       string  `yaml:"base_url"`
		AuthPath      string  `yaml:"auth_path"`
		RefreshPath   string  `yaml:"refresh_path"`
		JobsPath      string  `yaml:"jobs_path"`
		RefreshScheme string  `yaml:"refresh_scheme"` // raw | bearer
		Email         string  `yaml:"email"`
		APIKey        string  `yaml:"api_key"`
		TimeoutSecs   int     `yaml:"timeout_seconds"`
		ReqPerSec     float64 `yaml:"requests_per_second"`
		Burst         int     `yaml:"burst"`
	} `yaml:"upstream"`

	Tokens struct {
		AccessTTLHours  int `yaml:"access_ttl_hours"`
		RefreshTTLHours int `yaml:"refresh_ttl_hours"`
	} `yaml:"tokens"`

	Cache struct {
		TTLMinutes          int `yaml:"ttl_minutes"`
		WarmIntervalMinutes int `yaml:"warm_interval_minutes"`
	} `yaml:"cache"`

	Queries struct {
		PageSize    int `yaml:"page_size"`
		SearchLimit int `yaml:"search_limit"`
	} `yaml:"queries"`
}

func Default() Config {
	var cfg Config
	cfg.App.Port = 38475
	cfg.App.DataDir = "."
	cfg.Upstream.AuthPath = "/api/v1/authenticate"
	cfg.Upstream.RefreshPath = "/api/v1/refreshToken"
	cfg.Upstream.JobsPath = "/api/v1/getJobPostingsList"
	cfg.Upstream.RefreshScheme = RefreshSchemeRaw
	cfg.Upstream.TimeoutSecs = 30
	cfg.Upstream.ReqPerSec = 4
	cfg.Upstream.Burst = 8
	cfg.Tokens.AccessTTLHours = 24
	cfg.Tokens.RefreshTTLHours = 7 * 24
	cfg.Cache.TTLMinutes = 30
	cfg.Cache.WarmIntervalMinutes = 25
	cfg.Queries.PageSize = 20
	cfg.Queries.SearchLimit = 100
	return cfg
}

func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSecs) * time.Second
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.Tokens.AccessTTLHours) * time.Hour
}

func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.Tokens.RefreshTTLHours) * time.Hour
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

func (c Config) WarmInterval() time.Duration {
	return time.Duration(c.Cache.WarmIntervalMinutes) * time.Minute
}
