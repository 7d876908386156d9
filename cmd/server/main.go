package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/chaptermap/internal/api"
	"github.com/dgallion1/chaptermap/internal/chapter"
	"github.com/dgallion1/chaptermap/internal/config"
	"github.com/dgallion1/chaptermap/internal/content"
	"github.com/dgallion1/chaptermap/internal/logger"
	"github.com/dgallion1/chaptermap/internal/mapping"
	"github.com/dgallion1/chaptermap/internal/pipeline"
	"github.com/dgallion1/chaptermap/internal/render"
	"github.com/dgallion1/chaptermap/internal/stats"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid logging configuration:", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Chapter configuration.
	loaders := chapter.Layered(cfg.ChapterConfigDir)
	repo := chapter.NewCache(loaders, chapter.CacheOptions{
		TTL:        cfg.ConfigCacheTTL,
		MaxEntries: cfg.ConfigCacheSize,
	}, log.With("component", "chapter_cache"))

	mappingStats := stats.NewMapping(time.Hour)
	resolver := mapping.NewResolver(repo, mappingStats, log.With("component", "resolver"))

	var store *content.Store
	if cfg.ContentDir != "" {
		store = content.NewStore(os.DirFS(cfg.ContentDir))
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, resolver, log.With("component", "pipeline"))
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(api.Deps{
		Orchestrator: orch,
		Resolver:     resolver,
		Repository:   repo,
		Chapters:     loaders,
		Content:      store,
		Renderer:     render.New(),
		Stats:        mappingStats,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}

		orch.Stop()
	}()

	log.Info("starting chaptermap",
		"port", cfg.Port,
		"chapter_config_dir", cfg.ChapterConfigDir,
		"content_dir", cfg.ContentDir,
		"workers", cfg.WorkerCount,
	)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped
}
