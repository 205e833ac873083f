package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/agencydir/internal/captcha"
	"github.com/JonMunkholm/agencydir/internal/config"
	"github.com/JonMunkholm/agencydir/internal/core"
	"github.com/JonMunkholm/agencydir/internal/evidence"
	"github.com/JonMunkholm/agencydir/internal/logging"
	"github.com/JonMunkholm/agencydir/internal/store"
	"github.com/JonMunkholm/agencydir/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"driver", cfg.Database.Driver(),
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"captcha_enabled", cfg.Captcha.Enabled,
		"evidence_backend", cfg.Evidence.Backend,
	)

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if n, err := st.CountAgencies(ctx); err == nil {
		slog.Info("connected to store", "driver", cfg.Database.Driver(), "agencies", n)
	}

	bucket, err := evidence.New(ctx, cfg.Evidence)
	if err != nil {
		slog.Error("failed to configure evidence store", "error", err)
		os.Exit(1)
	}

	if !cfg.Captcha.Enabled {
		slog.Warn("captcha verification disabled; every submission is accepted")
	}

	service := core.NewService(st, captcha.New(cfg.Captcha), bucket, cfg)
	server := web.NewServer(service, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.ImportStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		st.Close()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
