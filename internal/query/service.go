package query

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"jobproxy-engine/internal/domain"
	"jobproxy-engine/internal/jobcache"
)

// SnapshotSource is the slice of the cache the router reads from. Satisfied
// by *jobcache.Cache.
type SnapshotSource interface {
	GetOrRefresh(ctx context.Context) (*jobcache.Snapshot, error)
	Current() *jobcache.Snapshot
}

// PageResponse mirrors the upstream listing shape so the frontend can page
// through the proxy exactly as it would page through the platform.
type PageResponse struct {
	Count      int                `json:"count"`
	NumPages   int                `json:"num_pages"`
	PageNumber int                `json:"page_number"`
	PageCount  int                `json:"page_count"`
	Next       *string            `json:"next"`
	Previous   *string            `json:"previous"`
	Results    []domain.JobRecord `json:"results"`
}

type SearchResponse struct {
	Count      int                `json:"count"`
	TotalCount int                `json:"total_count"`
	Next       bool               `json:"next"`
	Previous   *string            `json:"previous"`
	Results    []domain.JobRecord `json:"results"`
}

type Options struct {
	PageSize    int // default 20
	SearchLimit int // default 100
	Logger      zerolog.Logger
}

// Service answers the two read operations purely from the in-memory
// snapshot, refreshing it through the cache when stale.
type Service struct {
	src         SnapshotSource
	pageSize    int
	searchLimit int
	log         zerolog.Logger
}

func NewService(src SnapshotSource, opts Options) *Service {
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 100
	}
	return &Service{
		src:         src,
		pageSize:    opts.PageSize,
		searchLimit: opts.SearchLimit,
		log:         opts.Logger.With().Str("component", "query").Logger(),
	}
}

func (s *Service) DefaultSearchLimit() int { return s.searchLimit }

// snapshot obtains a usable snapshot. When the refresh fails but an earlier
// snapshot exists, the stale one is served instead: stale-but-nonempty beats
// fabricated-empty. With no snapshot at all the error propagates.
func (s *Service) snapshot(ctx context.Context) (*jobcache.Snapshot, error) {
	snap, err := s.src.GetOrRefresh(ctx)
	if err == nil {
		return snap, nil
	}
	if stale := s.src.Current(); stale != nil {
		s.log.Warn().Err(err).Time("captured_at", stale.CapturedAt).Msg("refresh failed, serving stale snapshot")
		return stale, nil
	}
	return nil, err
}

// ListPage slices one fixed-size page out of the sorted snapshot.
// Out-of-range pages yield an empty result set, not an error.
func (s *Service) ListPage(ctx context.Context, pageNumber int) (PageResponse, error) {
	if pageNumber < 1 {
		pageNumber = 1
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return PageResponse{}, err
	}

	total := len(snap.Jobs)
	numPages := (total + s.pageSize - 1) / s.pageSize

	start := (pageNumber - 1) * s.pageSize
	end := start + s.pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	resp := PageResponse{
		Count:      total,
		NumPages:   numPages,
		PageNumber: pageNumber,
		PageCount:  end - start,
		Results:    snap.Jobs[start:end],
	}
	if pageNumber < numPages {
		resp.Next = pageLink(pageNumber + 1)
	}
	if pageNumber > 1 && pageNumber-1 <= numPages {
		resp.Previous = pageLink(pageNumber - 1)
	}
	return resp, nil
}

// Search applies the supplied filters as a conjunction and truncates to
// limit. Callers with neither filter should use ListPage(1) instead; the
// HTTP handler does that delegation.
func (s *Service) Search(ctx context.Context, query, location string, limit int) (SearchResponse, error) {
	if limit <= 0 {
		limit = s.searchLimit
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return SearchResponse{}, err
	}

	matched := make([]domain.JobRecord, 0, limit)
	truncated := false
	for _, j := range snap.Jobs {
		if !j.MatchesText(query) || !j.MatchesLocation(location) {
			continue
		}
		if len(matched) == limit {
			truncated = true
			break
		}
		matched = append(matched, j)
	}

	return SearchResponse{
		Count:      len(matched),
		TotalCount: len(snap.Jobs),
		Next:       truncated,
		Previous:   nil,
		Results:    matched,
	}, nil
}

func pageLink(n int) *string {
	s := fmt.Sprintf("/jobs?page=%d", n)
	return &s
}
