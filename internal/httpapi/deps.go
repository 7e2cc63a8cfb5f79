package httpapi

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"jobproxy-engine/internal/events"
	"jobproxy-engine/internal/jobcache"
	"jobproxy-engine/internal/runlog"
)

type Deps struct {
	Queries JobQueries
	Cache   *jobcache.Cache
	Runs    *runlog.Store
	Hub     *events.Hub

	// CfgVal stores config.Config; handlers that act on current config read
	// it from here rather than a startup snapshot.
	CfgVal *atomic.Value

	Log zerolog.Logger
}
