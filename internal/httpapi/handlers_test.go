package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobproxy-engine/internal/domain"
	"jobproxy-engine/internal/query"
	"jobproxy-engine/internal/upstream"
)

type stubQueries struct {
	listCalls   []int
	searchCalls []string
	listResp    query.PageResponse
	searchResp  query.SearchResponse
	err         error
}

func (s *stubQueries) ListPage(ctx context.Context, page int) (query.PageResponse, error) {
	s.listCalls = append(s.listCalls, page)
	if s.err != nil {
		return query.PageResponse{}, s.err
	}
	resp := s.listResp
	resp.PageNumber = page
	return resp, nil
}

func (s *stubQueries) Search(ctx context.Context, q, loc string, limit int) (query.SearchResponse, error) {
	s.searchCalls = append(s.searchCalls, q+"|"+loc)
	if s.err != nil {
		return query.SearchResponse{}, s.err
	}
	return s.searchResp, nil
}

func (s *stubQueries) DefaultSearchLimit() int { return 100 }

func TestJobsListParsesPage(t *testing.T) {
	stub := &stubQueries{listResp: query.PageResponse{Count: 40, NumPages: 2}}
	h := JobsHandler{Queries: stub}

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/jobs?page=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{2}, stub.listCalls)

	var resp query.PageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.PageNumber)
	assert.Equal(t, 40, resp.Count)
}

func TestJobsListDefaultsToPageOne(t *testing.T) {
	stub := &stubQueries{}
	h := JobsHandler{Queries: stub}

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{1}, stub.listCalls)
}

func TestJobsListRejectsBadPage(t *testing.T) {
	h := JobsHandler{Queries: &stubQueries{}}

	for _, raw := range []string{"0", "-3", "abc"} {
		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/jobs?page="+raw, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "page=%s", raw)
	}
}

func TestSearchWithoutFiltersDelegatesToListing(t *testing.T) {
	stub := &stubQueries{}
	h := JobsHandler{Queries: stub}

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/jobs/search", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{1}, stub.listCalls)
	assert.Empty(t, stub.searchCalls)
}

func TestSearchPassesFilters(t *testing.T) {
	stub := &stubQueries{searchResp: query.SearchResponse{
		Count:   1,
		Results: []domain.JobRecord{{ID: 9, Title: "Engineer"}},
	}}
	h := JobsHandler{Queries: stub}

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/jobs/search?query=engineer&location=london", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"engineer|london"}, stub.searchCalls)

	var resp query.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"upstream", &upstream.UpstreamError{Status: 502, Message: "down"}, http.StatusBadGateway, "upstream_unavailable"},
		{"auth", &upstream.AuthError{Message: "rejected"}, http.StatusServiceUnavailable, "auth_failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := JobsHandler{Queries: &stubQueries{err: tc.err}}
			rec := httptest.NewRecorder()
			h.List(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))

			assert.Equal(t, tc.wantStatus, rec.Code)

			var apiErr APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
			assert.Equal(t, tc.wantCode, apiErr.Error.Code)
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	Chain(inner, RequestID, AccessLog(zerolog.Nop())).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	// A caller-supplied id is kept.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	Chain(inner, RequestID).ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}

func TestMethodMux(t *testing.T) {
	h := methodMux(map[string]http.HandlerFunc{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) },
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/jobs", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecoverMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	Chain(panicky, RequestID, Recover(zerolog.Nop())).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "internal_error", apiErr.Error.Code)
}
