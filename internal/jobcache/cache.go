package jobcache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"jobproxy-engine/internal/domain"
	"jobproxy-engine/internal/upstream"
)

// Snapshot is an immutable full copy of the assembled job list. Once
// published it is never mutated; a refresh builds a new one and swaps the
// pointer in a single step.
type Snapshot struct {
	Jobs       []domain.JobRecord
	CapturedAt time.Time
	PageCount  int
	TotalCount int
}

// Fetcher drives the bulk scan. Satisfied by *upstream.Client.
type Fetcher interface {
	FetchAll(ctx context.Context, token string) (upstream.Result, error)
}

// TokenSource supplies a usable bearer token. Satisfied by
// *credential.Manager.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// RunInfo describes one bulk refresh attempt, successful or not. Listeners
// (run log, SSE hub) get a copy after every attempt.
type RunInfo struct {
	ID         string
	Trigger    string // "foreground" | "background" | "manual"
	StartedAt  time.Time
	FinishedAt time.Time
	Pages      int
	Records    int
	Err        error
}

type RunListener func(RunInfo)

type Options struct {
	TTL      time.Duration // default 30m
	Clock    func() time.Time
	Logger   zerolog.Logger
	Listener RunListener
}

// Cache holds the last successfully assembled snapshot. Publication is
// atomic: readers either see the previous complete snapshot or the new one,
// never a half-built list.
type Cache struct {
	fetcher  Fetcher
	tokens   TokenSource
	ttl      time.Duration
	now      func() time.Time
	log      zerolog.Logger
	listener RunListener

	cur atomic.Pointer[Snapshot]
	sf  singleflight.Group
}

func New(fetcher Fetcher, tokens TokenSource, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Cache{
		fetcher:  fetcher,
		tokens:   tokens,
		ttl:      opts.TTL,
		now:      opts.Clock,
		log:      opts.Logger.With().Str("component", "jobcache").Logger(),
		listener: opts.Listener,
	}
}

// Current returns the published snapshot without freshness checks or
// upstream calls. Nil before the first successful refresh.
func (c *Cache) Current() *Snapshot {
	return c.cur.Load()
}

// Valid reports whether a snapshot exists and is younger than the TTL.
func (c *Cache) Valid() bool {
	return c.validFor(0)
}

func (c *Cache) validFor(margin time.Duration) bool {
	s := c.cur.Load()
	if s == nil {
		return false
	}
	return c.now().Sub(s.CapturedAt)+margin < c.ttl
}

// GetOrRefresh returns the current snapshot when fresh, otherwise performs a
// bulk fetch and publishes the result. Concurrent stale readers share one
// in-flight fetch. On failure the previous snapshot is left untouched and the
// error is returned; the stale-fallback policy belongs to the caller.
func (c *Cache) GetOrRefresh(ctx context.Context) (*Snapshot, error) {
	if c.Valid() {
		return c.cur.Load(), nil
	}

	v, err, _ := c.sf.Do("refresh", func() (any, error) {
		if c.Valid() {
			return c.cur.Load(), nil
		}
		return c.refresh(ctx, "foreground")
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Refresh forces a bulk fetch regardless of freshness, deduped with any
// in-flight one.
func (c *Cache) Refresh(ctx context.Context, trigger string) (*Snapshot, error) {
	v, err, _ := c.sf.Do("refresh", func() (any, error) {
		return c.refresh(ctx, trigger)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (c *Cache) refresh(ctx context.Context, trigger string) (*Snapshot, error) {
	run := RunInfo{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		StartedAt: c.now(),
	}

	snap, err := c.fetchOnceWithReauth(ctx)

	run.FinishedAt = c.now()
	if err != nil {
		run.Err = err
	} else {
		run.Pages = snap.PageCount
		run.Records = len(snap.Jobs)
	}
	if c.listener != nil {
		c.listener(run)
	}

	if err != nil {
		c.log.Error().Str("trigger", trigger).Err(err).Msg("bulk refresh failed")
		return nil, err
	}

	c.cur.Store(snap)
	c.log.Info().
		Str("trigger", trigger).
		Int("records", len(snap.Jobs)).
		Int("pages", snap.PageCount).
		Msg("snapshot published")
	return snap, nil
}

// fetchOnceWithReauth performs the bulk fetch, and on a 401/403 forces one
// re-authentication and retries exactly once. Already-completed page fetches
// inside the failed attempt are not replayed individually; the whole scan
// runs again with the fresh token.
func (c *Cache) fetchOnceWithReauth(ctx context.Context) (*Snapshot, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	res, err := c.fetcher.FetchAll(ctx, tok)
	if err != nil {
		var ue *upstream.UpstreamError
		if errors.As(err, &ue) && ue.AuthRejected() {
			c.log.Warn().Int("status", ue.Status).Msg("token rejected mid-fetch, re-authenticating once")
			c.tokens.Invalidate()
			tok, err = c.tokens.Token(ctx)
			if err != nil {
				return nil, err
			}
			res, err = c.fetcher.FetchAll(ctx, tok)
		}
		if err != nil {
			return nil, err
		}
	}

	return &Snapshot{
		Jobs:       res.Jobs,
		CapturedAt: c.now(),
		PageCount:  res.PageCount,
		TotalCount: res.Count,
	}, nil
}

// WarmTask returns a scheduler task that keeps the snapshot warm: it
// refreshes whenever the snapshot would go stale before the next tick.
// Errors propagate to the scheduler, which logs them; an existing snapshot is
// never cleared by a failed warm run.
func (c *Cache) WarmTask(interval time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if c.validFor(interval) {
			return nil
		}
		_, err := c.Refresh(ctx, "background")
		return err
	}
}
