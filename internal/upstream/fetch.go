package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"jobproxy-engine/internal/domain"
	"jobproxy-engine/internal/textutil"
)

// Page is one page of the upstream listing endpoint.
type Page struct {
	Jobs     []domain.JobRecord
	NumPages int
	Count    int
}

// Result is an assembled full scan: every page concatenated and re-sorted.
type Result struct {
	Jobs      []domain.JobRecord
	PageCount int
	Count     int
}

type listResponse struct {
	Results  []domain.JobRecord `json:"results"`
	NumPages int                `json:"num_pages"`
	Count    int                `json:"count"`
	Message  string             `json:"message"`
}

// FetchPage issues one authenticated request for the given page number.
func (c *Client) FetchPage(ctx context.Context, token string, page int) (Page, error) {
	u := c.endpoint(c.opts.JobsPath) + "?page=" + strconv.Itoa(page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.do(req)
	if err != nil {
		return Page{}, &UpstreamError{Status: 0, Message: err.Error()}
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(res.Body, 32<<20))
	if res.StatusCode < 200 || res.StatusCode > 299 {
		var lr listResponse
		_ = json.Unmarshal(raw, &lr)
		msg := lr.Message
		if msg == "" {
			msg = textutil.CleanText(string(raw))
			if len(msg) > 200 {
				msg = msg[:200]
			}
		}
		return Page{}, &UpstreamError{Status: res.StatusCode, Message: msg}
	}

	var lr listResponse
	if err := json.Unmarshal(raw, &lr); err != nil {
		return Page{}, &UpstreamError{Status: res.StatusCode, Message: "decode page: " + err.Error()}
	}

	for i := range lr.Results {
		lr.Results[i].DescriptionText = textutil.ExtractText(lr.Results[i].Description)
	}

	return Page{Jobs: lr.Results, NumPages: lr.NumPages, Count: lr.Count}, nil
}

// FetchAll drives a full scan. Page 1 is fetched first to learn the page
// count, then pages 2..N run concurrently. A transport or server failure on a
// non-first page degrades to an empty page so one flaky page cannot abort the
// whole scan. A 401/403 on any page is fatal: the token is dead for every
// remaining page too, and the caller handles reauth-and-retry of the whole
// scan.
func (c *Client) FetchAll(ctx context.Context, token string) (Result, error) {
	first, err := c.FetchPage(ctx, token, 1)
	if err != nil {
		return Result{}, fmt.Errorf("fetch page 1: %w", err)
	}

	all := make([]domain.JobRecord, 0, max(first.Count, len(first.Jobs)))
	all = append(all, first.Jobs...)

	if first.NumPages > 1 {
		var mu sync.Mutex
		var g errgroup.Group

		for n := 2; n <= first.NumPages; n++ {
			n := n
			g.Go(func() error {
				p, err := c.FetchPage(ctx, token, n)
				if err != nil {
					var ue *UpstreamError
					if errors.As(err, &ue) && ue.AuthRejected() {
						return fmt.Errorf("fetch page %d: %w", n, err)
					}
					// Partial-failure tolerance: log and contribute nothing.
					c.log.Warn().Int("page", n).Err(err).Msg("page fetch failed, skipping")
					return nil
				}
				mu.Lock()
				all = append(all, p.Jobs...)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Result{}, err
		}
	}

	sortJobs(all)

	c.log.Info().
		Int("pages", first.NumPages).
		Int("records", len(all)).
		Msg("bulk fetch assembled")

	return Result{Jobs: all, PageCount: first.NumPages, Count: first.Count}, nil
}

// sortJobs orders by creation time descending. The sort is stable and treats
// records without a parseable timestamp as equal-rank, so page-arrival order
// never leaks into the output.
func sortJobs(jobs []domain.JobRecord) {
	type keyed struct {
		key int64 // 0 when the timestamp is missing or unparseable
		job domain.JobRecord
	}
	ks := make([]keyed, len(jobs))
	for i, j := range jobs {
		ks[i].job = j
		if t, ok := j.CreatedAt(); ok {
			ks[i].key = t.UnixNano()
		}
	}
	sort.SliceStable(ks, func(a, b int) bool { return ks[a].key > ks[b].key })
	for i := range ks {
		jobs[i] = ks[i].job
	}
}
