package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/brightpath/lessongate/internal/api"
	"github.com/brightpath/lessongate/internal/config"
	"github.com/brightpath/lessongate/internal/generator"
	"github.com/brightpath/lessongate/internal/store"
	"github.com/brightpath/lessongate/internal/validator"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "lessongate",
	Short: "Lessongate - lesson generation and validation service",
	RunE:  run,
}

func init() {
	rootCmd.AddCommand(kbCmd)
	rootCmd.AddCommand(topicsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// Signal handling
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize logger
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)}
	var logHandler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.Log.Format == "text" {
		logHandler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(logHandler))
	slog.Info("logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	// Load the knowledge base. Missing required documents fail startup.
	loader := newLoader(cfg.KB)
	snap, err := loader.Load()
	if err != nil {
		return fmt.Errorf("loading knowledge base: %w", err)
	}
	slog.Info("knowledge base loaded",
		"path", cfg.KB.Path,
		"documents", len(snap.Documents),
		"checksum", snap.Checksum,
	)

	// Initialize store (migrations, WAL mode)
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "path", cfg.Database.Path)

	// Initialize generation pipeline
	gen := generator.NewOpenAI(cfg.Generation.APIKey, cfg.Generation.Model, cfg.Generation.MaxTokens)
	orch := generator.NewOrchestratorWithRetry(loader, gen,
		cfg.Generation.MaxAttempts, time.Duration(cfg.Generation.BackoffBase))
	val := validator.New(loader)
	slog.Info("generator initialized", "model", cfg.Generation.Model)

	// Initialize HTTP router
	handler := api.NewHandler(db, loader, orch, val, cfg.Auth.APIKey, Version, gen.ModelName())
	router := api.NewRouter(handler)

	// Configure HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	// Start HTTP server in goroutine
	go func() {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed is the expected error when Shutdown() is called gracefully.
		// Any other error indicates an actual server failure that should trigger shutdown.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	// Block until signal received
	<-ctx.Done()
	slog.Info("shutdown initiated")

	// Graceful shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	// Stop HTTP server (drains in-flight requests)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Close store
	if err := db.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
