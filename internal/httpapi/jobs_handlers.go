package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"jobproxy-engine/internal/query"
)

// JobQueries is what the jobs handlers need from the query router; tests
// substitute a stub.
type JobQueries interface {
	ListPage(ctx context.Context, pageNumber int) (query.PageResponse, error)
	Search(ctx context.Context, q, location string, limit int) (query.SearchResponse, error)
	DefaultSearchLimit() int
}

type JobsHandler struct {
	Queries JobQueries
}

// List serves GET /jobs?page=N.
func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteError(w, r, http.StatusBadRequest, "bad_page", "page must be a positive integer")
			return
		}
		page = n
	}

	resp, err := h.Queries.ListPage(r.Context(), page)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	writeJSON(w, resp)
}

// Search serves GET /jobs/search?query=&location=&limit=. With neither filter
// present it behaves exactly like page 1 of the plain listing.
func (h JobsHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := strings.TrimSpace(q.Get("query"))
	location := strings.TrimSpace(q.Get("location"))

	if text == "" && location == "" {
		resp, err := h.Queries.ListPage(r.Context(), 1)
		if err != nil {
			writeCoreError(w, r, err)
			return
		}
		writeJSON(w, resp)
		return
	}

	limit := h.Queries.DefaultSearchLimit()
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteError(w, r, http.StatusBadRequest, "bad_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	resp, err := h.Queries.Search(r.Context(), text, location, limit)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	writeJSON(w, resp)
}
