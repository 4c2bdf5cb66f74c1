package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/statforge/importd/internal/api"
	"github.com/statforge/importd/internal/backend"
	"github.com/statforge/importd/internal/config"
	"github.com/statforge/importd/internal/db"
	"github.com/statforge/importd/internal/importer"
	"github.com/statforge/importd/internal/job"
	"github.com/statforge/importd/internal/library"
	"github.com/statforge/importd/internal/retry"
	"github.com/statforge/importd/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	flag.Parse()

	cfg := config.Load()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			slog.Error("load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("importd starting",
		"backend_url", cfg.BackendURL,
		"data_dir", cfg.DataDir,
		"http_port", cfg.HTTPPort,
	)

	dbStore, err := db.NewStore(cfg.DataDir)
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}
	defer dbStore.Close()

	recordStore := job.NewPersistentStore(dbStore)
	libStore := library.NewStore(dbStore, logger)
	client := backend.NewClient(cfg.BackendURL, logger)

	submitter := importer.NewSubmitter(recordStore, client, logger).
		WithConfirmation(client, retry.DefaultPolicy())
	reconciler := importer.NewReconciler(recordStore, libStore, logger)
	scheduler := importer.NewScheduler(recordStore, client, reconciler, cfg.PollFast, cfg.PollSlow, logger)

	// Non-terminal records persisted before the last shutdown resume
	// polling as soon as the scheduler starts.
	if active, err := recordStore.ListActive(); err == nil && len(active) > 0 {
		logger.Info("resuming imports", "count", len(active))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go scheduler.Run(ctx)

	wsServer := ws.NewServer(recordStore, logger)
	handlers := api.NewHandlers(recordStore, libStore, submitter, scheduler, logger)
	router := api.NewRouter(handlers, wsServer)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening", "addr", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	logger.Info("stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
