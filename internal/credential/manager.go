package credential

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"jobproxy-engine/internal/upstream"
)

// ErrCredentialExpired means the refresh window itself has elapsed; only a
// fresh full login can help. Fatal for the calling request, but the next one
// starts over from scratch.
var ErrCredentialExpired = errors.New("credential expired: refresh window elapsed")

// Upstream is the slice of the platform client the manager needs. Tests
// substitute a fake so the state machine runs without network.
type Upstream interface {
	Authenticate(ctx context.Context) (upstream.TokenPair, error)
	Refresh(ctx context.Context, accessToken string) (string, error)
}

// Credential is the process-wide bearer credential pair. It is always
// replaced as a whole value, never field-mutated in place where a reader
// could observe a half-updated pair.
type Credential struct {
	AccessToken   string
	RefreshToken  string
	AccessExpiry  time.Time
	RefreshExpiry time.Time
}

type Options struct {
	AccessTTL  time.Duration // default 24h
	RefreshTTL time.Duration // default 7d
	Clock      func() time.Time
	Logger     zerolog.Logger
}

// Manager owns the single shared Credential. Concurrent callers that all
// decide the token needs work are collapsed into one in-flight upstream call.
type Manager struct {
	up         Upstream
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	log        zerolog.Logger

	mu   sync.Mutex
	cred *Credential

	sf singleflight.Group
}

func NewManager(up Upstream, opts Options) *Manager {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 24 * time.Hour
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Manager{
		up:         up,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		now:        opts.Clock,
		log:        opts.Logger.With().Str("component", "credential").Logger(),
	}
}

type action int

const (
	actionNone action = iota
	actionRefresh
	actionAuthenticate
)

// decide maps the current credential state to what EnsureValid must do:
//
//	no credential held                    -> authenticate
//	refresh expired                       -> authenticate
//	access expired, refresh still valid   -> refresh
//	access valid                          -> nothing
func (m *Manager) decide() action {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	switch {
	case m.cred == nil:
		return actionAuthenticate
	case !now.Before(m.cred.RefreshExpiry):
		return actionAuthenticate
	case !now.Before(m.cred.AccessExpiry):
		return actionRefresh
	default:
		return actionNone
	}
}

// EnsureValid is the idempotent guard invoked before every upstream call.
// With a still-valid access token it performs zero upstream calls.
func (m *Manager) EnsureValid(ctx context.Context) error {
	if m.decide() == actionNone {
		return nil
	}

	// Collapse concurrent repairs into one flight. The winner re-checks the
	// state inside the flight, so callers queued behind it become no-ops.
	_, err, _ := m.sf.Do("ensure", func() (any, error) {
		switch m.decide() {
		case actionNone:
			return nil, nil
		case actionRefresh:
			return nil, m.Refresh(ctx)
		default:
			return nil, m.Authenticate(ctx)
		}
	})
	return err
}

// Token returns a usable access token, repairing the credential first if
// needed.
func (m *Manager) Token(ctx context.Context) (string, error) {
	if err := m.EnsureValid(ctx); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return "", errors.New("no credential held")
	}
	return m.cred.AccessToken, nil
}

// Authenticate performs a full login and replaces the whole credential.
func (m *Manager) Authenticate(ctx context.Context) error {
	pair, err := m.up.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	now := m.now()
	next := &Credential{
		AccessToken:   pair.AccessToken,
		RefreshToken:  pair.RefreshToken,
		AccessExpiry:  now.Add(m.accessTTL),
		RefreshExpiry: now.Add(m.refreshTTL),
	}

	m.mu.Lock()
	m.cred = next
	m.mu.Unlock()

	m.log.Info().Time("access_expiry", next.AccessExpiry).Msg("credential replaced by full login")
	return nil
}

// Refresh renews the access token using the current (platform quirk: access,
// not refresh) token. On upstream failure it falls back to a full login while
// the refresh window is still open; past the window it reports
// ErrCredentialExpired.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	cur := m.cred
	m.mu.Unlock()

	if cur == nil {
		return m.Authenticate(ctx)
	}

	tok, err := m.up.Refresh(ctx, cur.AccessToken)
	if err == nil {
		next := *cur
		next.AccessToken = tok
		next.AccessExpiry = m.now().Add(m.accessTTL)

		m.mu.Lock()
		m.cred = &next
		m.mu.Unlock()

		m.log.Debug().Time("access_expiry", next.AccessExpiry).Msg("access token refreshed")
		return nil
	}

	if m.now().Before(cur.RefreshExpiry) {
		m.log.Warn().Err(err).Msg("refresh failed, falling back to full login")
		return m.Authenticate(ctx)
	}

	return fmt.Errorf("%w: %s", ErrCredentialExpired, err)
}

// Invalidate drops the held credential so the next EnsureValid performs a
// full login. Used when the upstream rejects a token the manager still
// believed was valid (401/403 mid-fetch).
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.cred = nil
	m.mu.Unlock()
	m.log.Warn().Msg("credential invalidated")
}

// Current returns a copy of the held credential, or nil.
func (m *Manager) Current() *Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return nil
	}
	c := *m.cred
	return &c
}
