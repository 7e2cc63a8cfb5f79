package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"jobproxy-engine/internal/config"
	"jobproxy-engine/internal/credential"
	"jobproxy-engine/internal/events"
	"jobproxy-engine/internal/httpapi"
	"jobproxy-engine/internal/jobcache"
	"jobproxy-engine/internal/query"
	"jobproxy-engine/internal/runlog"
	"jobproxy-engine/internal/scheduler"
	"jobproxy-engine/internal/secrets"
	"jobproxy-engine/internal/upstream"
)

var cli struct {
	DataDir string `help:"Engine data directory." env:"JOBPROXY_DATA_DIR" default:"."`
	Config  string `help:"Path to the shipped default config." default:"config/config.yml"`
	Addr    string `help:"Listen address override (defaults to 127.0.0.1:<app.port>)." env:"JOBPROXY_ADDR"`
	Debug   bool   `help:"Enable debug logging." env:"JOBPROXY_DEBUG"`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("jobproxy-engine"),
		kong.Description("Backend proxy for the recruiting-platform job listing API."),
	)
	kctx.FatalIfErrorf(run())
}

func run() error {
	level := zerolog.InfoLevel
	if cli.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := os.MkdirAll(cli.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// One engine per data dir. Snapshot and credential state are in-memory
	// and per-process, so a second instance would just fight over the
	// upstream token.
	lock := flock.New(filepath.Join(cli.DataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another engine instance already holds %s", lock.Path())
	}
	defer lock.Unlock()

	userCfgPath, err := config.EnsureUserConfig(cli.DataDir, cli.Config)
	if err != nil {
		return fmt.Errorf("config bootstrap: %w", err)
	}

	rawCfg, err := config.Load(userCfgPath)
	if err != nil {
		return fmt.Errorf("config load (%s): %w", userCfgPath, err)
	}
	cfg, res := config.NormalizeAndValidate(rawCfg)
	for _, wmsg := range res.Warnings {
		log.Warn().Str("config", userCfgPath).Msg(wmsg)
	}
	if !res.OK() {
		for _, emsg := range res.Errors {
			log.Error().Str("config", userCfgPath).Msg(emsg)
		}
		return fmt.Errorf("config validation failed (%d errors)", len(res.Errors))
	}

	var cfgVal atomic.Value
	cfgVal.Store(cfg)

	password, err := secrets.GetUpstreamPassword(secrets.UpstreamKeyringAccount(cfg))
	if err != nil {
		return fmt.Errorf("upstream password: %w", err)
	}

	runs, err := runlog.Open(filepath.Join(cli.DataDir, "jobproxy.db"))
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	defer runs.Close()

	hub := events.NewHub()

	client := upstream.NewClient(upstream.Options{
		BaseURL:       cfg.Upstream.BaseURL,
		AuthPath:      cfg.Upstream.AuthPath,
		RefreshPath:   cfg.Upstream.RefreshPath,
		JobsPath:      cfg.Upstream.JobsPath,
		RefreshScheme: cfg.Upstream.RefreshScheme,
		Email:         cfg.Upstream.Email,
		Password:      password,
		APIKey:        cfg.Upstream.APIKey,
		Timeout:       cfg.UpstreamTimeout(),
		ReqPerSec:     cfg.Upstream.ReqPerSec,
		Burst:         cfg.Upstream.Burst,
	}, log)

	creds := credential.NewManager(client, credential.Options{
		AccessTTL:  cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
		Logger:     log,
	})

	cache := jobcache.New(client, creds, jobcache.Options{
		TTL:    cfg.CacheTTL(),
		Logger: log,
		Listener: func(run jobcache.RunInfo) {
			rec := runlog.Run{
				ID:         run.ID,
				Trigger:    run.Trigger,
				StartedAt:  run.StartedAt,
				FinishedAt: run.FinishedAt,
				Pages:      run.Pages,
				Records:    run.Records,
			}
			evt := events.TypeSnapshotRefreshed
			if run.Err != nil {
				rec.Error = run.Err.Error()
				evt = events.TypeRefreshFailed
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := runs.Insert(ctx, rec); err != nil {
				log.Error().Err(err).Msg("record refresh run")
			}
			hub.Publish(events.MakeEvent("", evt, 1, map[string]any{
				"run_id":  run.ID,
				"trigger": run.Trigger,
				"records": run.Records,
				"error":   rec.Error,
			}))
		},
	})

	queries := query.NewService(cache, query.Options{
		PageSize:    cfg.Queries.PageSize,
		SearchLimit: cfg.Queries.SearchLimit,
		Logger:      log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go scheduler.Every(ctx, cfg.WarmInterval(), "warm-refresh", log, cache.WarmTask(cfg.WarmInterval()))

	mux := httpapi.NewMux(httpapi.Deps{
		Queries: queries,
		Cache:   cache,
		Runs:    runs,
		Hub:     hub,
		CfgVal:  &cfgVal,
		Log:     log,
	})

	addr := cli.Addr
	if addr == "" {
		addr = fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	}
	srv := &http.Server{
		Addr: addr,
		Handler: httpapi.Chain(mux,
			httpapi.Cors,
			httpapi.RequestID,
			httpapi.Recover(log),
			httpapi.AccessLog(log),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("config", userCfgPath).Msg("engine listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
