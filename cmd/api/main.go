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

	httpadapter "github.com/viewsdata/forecast-service/internal/adapter/http"
	"github.com/viewsdata/forecast-service/internal/config"
	"github.com/viewsdata/forecast-service/internal/observability"
	"github.com/viewsdata/forecast-service/internal/query"
	"github.com/viewsdata/forecast-service/internal/store"
	"github.com/viewsdata/forecast-service/internal/synth"
)

func main() {
	// Optional local overrides; absent file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	st := store.New(store.Config{
		GridDataPaths:    cfg.GridDataPaths,
		CountryDataPaths: cfg.CountryDataPaths,
		HDIDataPaths:     cfg.HDIDataPaths,
		CoordDataPaths:   cfg.CoordDataPaths,
		Synth: synth.Config{
			Seed:        cfg.SynthSeed,
			GridCount:   cfg.SynthGridCount,
			FirstGridID: cfg.SynthFirstGridID,
			StartMonth:  cfg.SynthStartMonth,
			EndMonth:    cfg.SynthEndMonth,
		},
		SyntheticFallback: cfg.SyntheticFallback,
		LoadTimeout:       cfg.LoadTimeout,
	}, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := st.Load(ctx); err != nil {
		logger.Error("initial data load failed", "error", err)
		os.Exit(1)
	}

	engine := query.New(st, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, engine, st, logger)

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
