package upstream

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const userAgent = "JobProxy/1.0 (+local)"

// Options carries everything the client needs; main() assembles it from the
// config file plus the secrets lookup.
type Options struct {
	BaseURL       string
	AuthPath      string
	RefreshPath   string
	JobsPath      string
	RefreshScheme string // config.RefreshSchemeRaw | config.RefreshSchemeBearer

	Email    string
	Password string
	APIKey   string

	Timeout   time.Duration
	ReqPerSec float64
	Burst     int
}

// Client talks to the recruiting platform. All requests go through a per-host
// rate limiter so a bulk page fan-out cannot hammer the API.
type Client struct {
	opts    Options
	hc      *http.Client
	limiter *hostLimiter
	log     zerolog.Logger
}

func NewClient(opts Options, log zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.ReqPerSec <= 0 {
		opts.ReqPerSec = 4
	}
	if opts.Burst <= 0 {
		opts.Burst = 8
	}
	return &Client{
		opts:    opts,
		hc:      &http.Client{Timeout: opts.Timeout},
		limiter: newHostLimiter(opts.ReqPerSec, opts.Burst),
		log:     log.With().Str("component", "upstream").Logger(),
	}
}

func (c *Client) endpoint(path string) string {
	return c.opts.BaseURL + path
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.WaitURL(req.Context(), req.URL.String()); err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return c.hc.Do(req)
}

// hostLimiter rate-limits per hostname. The engine only ever talks to one
// platform host, but keeping the limiter keyed by host means auth and listing
// endpoints on split hosts still behave.
type hostLimiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
	b  int
}

func newHostLimiter(reqPerSec float64, burst int) *hostLimiter {
	return &hostLimiter{
		m: make(map[string]*rate.Limiter),
		r: rate.Limit(reqPerSec),
		b: burst,
	}
}

func (hl *hostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	if lim, ok := hl.m[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(hl.r, hl.b)
	hl.m[host] = lim
	return lim
}

func (hl *hostLimiter) WaitURL(ctx context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return hl.limiterFor("_").Wait(ctx)
	}
	return hl.limiterFor(u.Host).Wait(ctx)
}
