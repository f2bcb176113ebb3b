// main is the entry point of the student details form service.
//
// STARTUP SEQUENCE:
//  1. Load configuration (.env, then YAML, then environment overrides)
//  2. Initialise the logger
//  3. Build the record store (local file or remote contents API)
//  4. Open the SQLite audit journal
//  5. Wire metrics, sessions and the route table
//  6. Serve until an OS signal arrives, then shut down gracefully
//
// RUNNING THE SERVER:
//
//	go run ./cmd/students-form --config=config/local.yaml
//
// or:
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/students-form
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aanand-mishra/students-form/internal/config"
	"github.com/aanand-mishra/students-form/internal/http/server"
	"github.com/aanand-mishra/students-form/internal/metrics"
	"github.com/aanand-mishra/students-form/internal/session"
	"github.com/aanand-mishra/students-form/internal/storage"
	"github.com/aanand-mishra/students-form/internal/storage/local"
	"github.com/aanand-mishra/students-form/internal/storage/remote"
	"github.com/aanand-mishra/students-form/internal/storage/sqlite"
)

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting students-form",
		slog.String("env", cfg.Env),
		slog.String("backend", cfg.Storage.Backend),
	)

	// ── 3. Record Store ───────────────────────────────────────────────────
	// Everything above this point only sees the storage.Storage interface;
	// which backend sits behind it is decided here and nowhere else.
	store, err := newStore(cfg, log)
	if err != nil {
		log.Error("failed to initialise record store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// ── 4. Audit Journal ──────────────────────────────────────────────────
	audit, err := sqlite.New(cfg)
	if err != nil {
		log.Error("failed to open audit journal", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer audit.Close()

	log.Info("audit journal ready", slog.String("path", cfg.AuditPath))

	// ── 5. Metrics, Sessions, Routes ──────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	svc := session.NewService(session.Options{
		Store:         metrics.Instrument(store, m),
		Audit:         audit,
		Sessions:      session.NewManager(cfg.Auth.SessionTTL),
		Metrics:       m,
		AppPassword:   cfg.Auth.AppPassword,
		AdminPassword: cfg.Auth.AdminPassword,
		Logger:        log,
	})

	srv := &http.Server{
		Addr:    cfg.HTTPServer.Addr,
		Handler: server.Routes(svc, log, reg),

		// A remote save is two round trips to the contents API, so the
		// write timeout leaves room for both.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2*cfg.Storage.Remote.Timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ── 6. Serve ──────────────────────────────────────────────────────────
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
		return
	}

	log.Info("server stopped gracefully")
}

// newStore returns the record store selected by storage.backend.
func newStore(cfg *config.Config, log *slog.Logger) (storage.Storage, error) {
	if cfg.Storage.Backend == config.BackendRemote {
		r := cfg.Storage.Remote
		rs, err := remote.New(remote.Options{
			APIURL:        r.APIURL,
			Owner:         r.Owner,
			Repo:          r.Repo,
			Path:          r.Path,
			Branch:        r.Branch,
			Token:         r.Token,
			CommitMessage: r.CommitMessage,
			Timeout:       r.Timeout,
		}, log)
		if err != nil {
			return nil, err
		}
		return rs, nil
	}
	return local.New(cfg.Storage.LocalPath, log), nil
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Staging and production: JSON, DEBUG and INFO respectively.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case "staging":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
