package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Psnastudent/sgp4-service/internal/api"
	"github.com/Psnastudent/sgp4-service/internal/health"
	"github.com/Psnastudent/sgp4-service/internal/metrics"
	"github.com/Psnastudent/sgp4-service/internal/propagation"
	"github.com/Psnastudent/sgp4-service/internal/tle"
)

// Self-test element set, propagated on every readiness probe.
const (
	selfTestLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9009"
	selfTestLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    01"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP propagation service",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(os.Stdout)
	if err != nil {
		return err
	}

	prop, err := newPropagator(cfg, logger, "")
	if err != nil {
		return err
	}
	propCfg := prop.Config()
	metrics.SetPropagationWorkers(propCfg.Workers)
	logger.Info("propagation config",
		"engine", propCfg.Engine,
		"gravity", cfg.Propagation.Gravity,
		"workers", propCfg.Workers,
		"max_batch", propCfg.MaxBatch,
	)

	var fetcher *tle.Fetcher
	if cfg.Catalog.Enabled {
		fetcher = tle.NewFetcher(cfg.Catalog.SourceURL, logger, cfg.Catalog.ExtraURLs...)
		fetcher.SetTimeout(cfg.CatalogTimeout())
		logger.Info("TLE config",
			"source_url", fetcher.SourceURL(),
			"extra_urls", cfg.Catalog.ExtraURLs,
			"timeout_seconds", cfg.CatalogTimeout().Seconds(),
		)
	}

	checker := health.NewChecker()
	checker.Register("engine", engineSelfTest(prop))

	srv := api.NewServer(api.Config{
		Addr:            cfg.HTTP.Addr,
		TrustProxy:      cfg.HTTP.TrustProxy,
		MaxBodyBytes:    cfg.HTTP.MaxBodyBytes,
		MaxConcurrentIP: cfg.HTTP.MaxConcurrentIP,
		MaxConcurrent:   cfg.HTTP.MaxConcurrent,
		WriteTimeout:    time.Duration(cfg.HTTP.WriteTimeoutSecs) * time.Second,
		Auth:            cfg.AuthMiddlewareConfig(),
	}, logger, prop, fetcher, checker)

	ctx := cmd.Context()
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.HTTP.Addr, "auth_enabled", cfg.Auth.Enabled, "tle_fetch_enabled", cfg.Catalog.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error("server listen error", "error", err)
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}

// engineSelfTest propagates a known element set one hour past its epoch,
// bypassing the batch path so probes do not show up in batch metrics.
func engineSelfTest(prop *propagation.Propagator) health.Check {
	return func() error {
		el, err := tle.ParseElements(selfTestLine1, selfTestLine2)
		if err != nil {
			return err
		}
		model, err := prop.Engine().Initialize(el)
		if err != nil {
			return err
		}
		_, err = model.PropagateAt(el.Epoch.AddMinutes(60))
		return err
	}
}
