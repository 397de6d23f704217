package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vectoria/internal/config"
	"vectoria/internal/embeddings"
	"vectoria/internal/http"
	"vectoria/internal/storage"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("Invalid LOG_LEVEL %q: %v", cfg.LogLevel, err)
	}
	opts := &slog.HandlerOptions{
		Level: level,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", level.String(), "format", cfg.LogFormat)

	ctx := context.Background()

	// Initialize the in-memory store and restore the latest snapshot if one
	// is configured.
	store := storage.NewStore(storage.Options{
		DefaultIndexKind: cfg.DefaultIndexKind,
		LSH:              cfg.LSH(),
		SnapshotPath:     cfg.SnapshotPath,
	})
	if store.SnapshotEnabled() {
		if err := store.LoadSnapshot(ctx); err != nil {
			log.Fatalf("Failed to load snapshot: %v", err)
		}
		stats := store.Stats(ctx)
		slog.Info("Snapshot loaded", "path", cfg.SnapshotPath, "libraries", stats.Libraries, "chunks", stats.Chunks)
	} else {
		slog.Info("Snapshots disabled; store is purely in-memory")
	}

	// The embedding client is created when a base URL is set. config.Load
	// falls back to a local default URL, so from the environment a client is
	// always created. Without one the API still serves vector queries; text
	// queries and ingestion are rejected.
	var embedder embeddings.Provider
	if cfg.EmbeddingBaseURL != "" {
		embedder = embeddings.NewClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingVectorSize)
		slog.Info("Embedding client configured", "base_url", cfg.EmbeddingBaseURL, "model", cfg.EmbeddingModelName)
	} else {
		slog.Warn("No embedding backend configured; text search and ingestion are disabled")
	}

	// Create router with dependencies
	deps := &http.Deps{
		Store:      store,
		Embeddings: embedder,
	}
	router := http.NewRouter(deps)

	srv := &nethttp.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	case sig := <-stop:
		slog.Info("Shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
		if store.SnapshotEnabled() {
			if err := store.SaveSnapshot(shutdownCtx); err != nil {
				slog.Error("Failed to save snapshot on shutdown", "error", err)
			} else {
				slog.Info("Snapshot saved", "path", cfg.SnapshotPath)
			}
		}
	}
}
