package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erauner12/finsync-api/internal/auth"
	"github.com/erauner12/finsync-api/internal/config"
	"github.com/erauner12/finsync-api/internal/httpapi"
	"github.com/erauner12/finsync-api/internal/metrics"
	"github.com/erauner12/finsync-api/internal/syncengine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sync HTTP server",
	}
	flags := config.BindFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flags)
		if err != nil {
			return err
		}
		setupLogging(cfg.App)
		return serve(cmd.Context(), cfg)
	}
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, closeStorage, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStorage()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.BuildInfo(reg, cfg.App.Version, cfg.Sync.MaxBatch)
	engine := newEngine(s, cfg.Sync, metrics.NewSync(reg))

	if cfg.Sync.SweepInterval > 0 {
		go sweepTombstones(ctx, engine, cfg.Sync.SweepInterval)
	}

	// HTTP server setup
	srv := &httpapi.Server{
		Engine:         engine,
		Users:          s,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Version:        cfg.App.Version,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: cfg.Server.RequestTimeout,
	}

	jwtCfg := auth.JWTCfg{
		HS256Secret: cfg.Auth.HS256Secret,
		Issuer:      cfg.Auth.Issuer,
		Audience:    cfg.Auth.Audience,
		DevMode:     cfg.Auth.DevMode,
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      srv.Routes(jwtCfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Address).Str("storage", cfg.Storage.Driver).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("server stopped")
	return nil
}

func sweepTombstones(ctx context.Context, engine *syncengine.Engine, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := engine.PruneTombstones(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("tombstone sweep failed")
			}
		}
	}
}
