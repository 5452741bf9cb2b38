package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/scenenodes/internal/api"
	"github.com/gyaneshwarpardhi/scenenodes/internal/config"
)

var addr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the graph engine behind an HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := bootstrap(ctx)
	if err != nil {
		slog.Error("startup failed", "err", err)
		return err
	}
	defer a.close()

	// ── Initial graph: last snapshot if any, else a fresh rebuild ────────────
	restored, err := a.eng.RestoreSaved(ctx)
	if err != nil {
		slog.Warn("stored snapshot unusable, rebuilding", "err", err)
	}
	if !restored {
		if _, err := a.eng.Rebuild(ctx); err != nil {
			slog.Error("initial rebuild failed", "err", err)
			return err
		}
	}

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	// The loader only hands over configs that passed validation.
	a.loader.OnChange(func(newCfg *config.Config) {
		res, err := a.eng.Reconfigure(ctx, newCfg)
		if err != nil {
			slog.Warn("hot-reload rebuild failed", "err", err)
			return
		}
		slog.Info("graph hot-reloaded", "objects", res.Report.Objects, "duration_ms", res.DurationMs)
	})
	stopWatch, err := a.loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.New(a.eng, a.loader),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errC:
		slog.Error("server error", "err", err)
		return err
	}
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	slog.Info("goodbye")
	return nil
}
