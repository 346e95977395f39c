package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lxcxjxhx/HOS-M2F/internal/api"
	"github.com/lxcxjxhx/HOS-M2F/internal/buildcache"
	"github.com/lxcxjxhx/HOS-M2F/internal/config"
	"github.com/lxcxjxhx/HOS-M2F/internal/mode"
	"github.com/lxcxjxhx/HOS-M2F/internal/pipeline"
	"github.com/lxcxjxhx/HOS-M2F/internal/resolver"
	"github.com/lxcxjxhx/HOS-M2F/internal/storage"
	"github.com/lxcxjxhx/HOS-M2F/internal/version"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Mode registry: builtins plus an optional YAML overlay.
	modes := mode.NewRegistry()
	if cfg.ModesFile != "" {
		if err := modes.LoadFile(cfg.ModesFile); err != nil {
			log.Error("load modes file", "path", cfg.ModesFile, "error", err)
			os.Exit(1)
		}
		log.Info("modes loaded", "path", cfg.ModesFile, "modes", modes.Names())
	}

	opts := []pipeline.Option{pipeline.WithBatchLimit(cfg.BatchLimit)}

	if cfg.ResolveImages || cfg.DiagramURL != "" {
		opts = append(opts, pipeline.WithResolver(resolver.New(cfg.DiagramURL, log)))
	}

	// Optional SQLite persistence for version history and the build cache.
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			log.Error("create data dir", "error", err)
			os.Exit(1)
		}
		db, err := storage.Open(filepath.Join(cfg.DataDir, "m2f.db"))
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		versions, err := version.NewStore(db)
		if err != nil {
			log.Error("init version store", "error", err)
			os.Exit(1)
		}
		opts = append(opts, pipeline.WithVersions(versions))

		sqlStore, err := buildcache.NewSQLStore(db)
		if err != nil {
			log.Error("init cache store", "error", err)
			os.Exit(1)
		}
		cache := buildcache.New()
		if err := cache.AttachStore(sqlStore); err != nil {
			log.Error("load cache", "error", err)
			os.Exit(1)
		}
		opts = append(opts, pipeline.WithCache(cache))
	}

	engine := pipeline.NewEngine(modes, log, opts...)

	orch := pipeline.NewOrchestrator(engine, cfg.WorkerCount, cfg.MaxQueueSize, cfg.JobTTL, log)
	orch.Start(ctx)

	if len(cfg.WatchDirs) > 0 {
		go func() {
			if err := pipeline.Watch(ctx, engine, cfg.WatchDirs, log); err != nil {
				log.Error("watcher failed", "error", err)
			}
		}()
	}

	srv := api.NewServer(orch, modes, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		cancel()
		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting server", "port", cfg.Port, "modes", modes.Names())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
