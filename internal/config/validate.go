package config

import (
	"fmt"
	"net/url"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus everything wrong or
// suspicious about it. Errors should stop startup; warnings are just logged.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	out.Upstream.BaseURL = strings.TrimRight(strings.TrimSpace(out.Upstream.BaseURL), "/")
	out.Upstream.Email = strings.TrimSpace(out.Upstream.Email)
	out.Upstream.RefreshScheme = strings.ToLower(strings.TrimSpace(out.Upstream.RefreshScheme))
	if out.Upstream.RefreshScheme == "" {
		out.Upstream.RefreshScheme = RefreshSchemeRaw
	}

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	if out.Upstream.BaseURL == "" {
		res.addErr("upstream.base_url is required")
	} else if u, err := url.Parse(out.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		res.addErr("upstream.base_url is not a valid absolute URL: %q", out.Upstream.BaseURL)
	}
	if out.Upstream.Email == "" {
		res.addErr("upstream.email is required")
	}
	if strings.TrimSpace(out.Upstream.APIKey) == "" {
		res.addErr("upstream.api_key is required")
	}
	if out.Upstream.RefreshScheme != RefreshSchemeRaw && out.Upstream.RefreshScheme != RefreshSchemeBearer {
		res.addErr("upstream.refresh_scheme must be %q or %q", RefreshSchemeRaw, RefreshSchemeBearer)
	}
	for _, p := range []struct{ name, val string }{
		{"upstream.auth_path", out.Upstream.AuthPath},
		{"upstream.refresh_path", out.Upstream.RefreshPath},
		{"upstream.jobs_path", out.Upstream.JobsPath},
	} {
		if !strings.HasPrefix(p.val, "/") {
			res.addErr("%s must start with /", p.name)
		}
	}
	if out.Upstream.TimeoutSecs <= 0 {
		res.addErr("upstream.timeout_seconds must be > 0")
	}
	if out.Upstream.ReqPerSec <= 0 {
		res.addErr("upstream.requests_per_second must be > 0")
	}
	if out.Upstream.Burst <= 0 {
		res.addErr("upstream.burst must be > 0")
	}

	if out.Tokens.AccessTTLHours <= 0 {
		res.addErr("tokens.access_ttl_hours must be > 0")
	}
	if out.Tokens.RefreshTTLHours <= 0 {
		res.addErr("tokens.refresh_ttl_hours must be > 0")
	}
	if out.Tokens.RefreshTTLHours < out.Tokens.AccessTTLHours {
		res.addWarn("tokens.refresh_ttl_hours (%d) is shorter than access_ttl_hours (%d); every expiry will force a full re-login",
			out.Tokens.RefreshTTLHours, out.Tokens.AccessTTLHours)
	}

	if out.Cache.TTLMinutes <= 0 {
		res.addErr("cache.ttl_minutes must be > 0")
	}
	if out.Cache.WarmIntervalMinutes <= 0 {
		res.addErr("cache.warm_interval_minutes must be > 0")
	} else if out.Cache.WarmIntervalMinutes >= out.Cache.TTLMinutes {
		res.addWarn("cache.warm_interval_minutes (%d) is not below ttl_minutes (%d); foreground requests will hit cold snapshots",
			out.Cache.WarmIntervalMinutes, out.Cache.TTLMinutes)
	}

	if out.Queries.PageSize <= 0 {
		res.addErr("queries.page_size must be > 0")
	}
	if out.Queries.SearchLimit <= 0 {
		res.addErr("queries.search_limit must be > 0")
	} else if out.Queries.SearchLimit > 1000 {
		res.addWarn("queries.search_limit is very high (%d); responses may get large", out.Queries.SearchLimit)
	}

	return out, res
}
