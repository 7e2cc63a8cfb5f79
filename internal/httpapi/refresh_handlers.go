package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"jobproxy-engine/internal/jobcache"
	"jobproxy-engine/internal/runlog"
)

type RefreshHandler struct {
	Cache   *jobcache.Cache
	Runs    *runlog.Store
	Log     zerolog.Logger
	running atomic.Bool
}

type refreshStatus struct {
	Records    int64  `json:"records"` // -1 before the first successful refresh
	CapturedAt string `json:"captured_at,omitempty"`
	AgeSeconds int64  `json:"age_seconds,omitempty"`
	Pages      int    `json:"pages"`
	Valid      bool   `json:"valid"`
	Running    bool   `json:"running"`
}

// Status serves GET /refresh/status.
func (h *RefreshHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := refreshStatus{Records: -1, Running: h.running.Load()}
	if snap := h.Cache.Current(); snap != nil {
		st.Records = int64(len(snap.Jobs))
		st.CapturedAt = snap.CapturedAt.UTC().Format(time.RFC3339)
		st.AgeSeconds = int64(time.Since(snap.CapturedAt).Seconds())
		st.Pages = snap.PageCount
		st.Valid = h.Cache.Valid()
	}
	writeJSON(w, st)
}

// Run serves POST /refresh/run: forces a bulk refresh in the background.
func (h *RefreshHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !h.running.CompareAndSwap(false, true) {
		writeJSON(w, map[string]any{"ok": false, "msg": "already running"})
		return
	}

	go func() {
		defer h.running.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := h.Cache.Refresh(ctx, "manual"); err != nil {
			h.Log.Error().Err(err).Msg("manual refresh failed")
		}
	}()

	writeJSON(w, map[string]any{"ok": true})
}

// List serves GET /refresh/runs?limit=N from the run log.
func (h *RefreshHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := h.Runs.Recent(r.Context(), limit)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "runlog_error", err.Error())
		return
	}
	if runs == nil {
		runs = []runlog.Run{}
	}
	writeJSON(w, runs)
}
