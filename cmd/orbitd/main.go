// Command orbitd serves batch SGP4 propagation over HTTP and exposes the
// same pipeline on the command line.
package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Psnastudent/sgp4-service/internal/config"
	"github.com/Psnastudent/sgp4-service/internal/propagation"
	"github.com/Psnastudent/sgp4-service/internal/tle"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "orbitd",
		Short:         "Batch SGP4/SDP4 satellite propagation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv(config.EnvPrefix+"CONFIG"),
		"path to a TOML config file (environment variables override it)")

	root.AddCommand(newServeCmd(), newPropagateCmd(), newFetchCmd(), newCompareCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("orbitd failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and builds a logger writing to w.
// Warnings about ignored overrides go to stderr before the logger exists.
func loadConfig(w io.Writer) (config.Config, *slog.Logger, error) {
	bootstrap := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg, err := config.Load(configPath, bootstrap)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, cfg.NewLogger(w), nil
}

// newPropagator builds the configured engine. A non-empty engine overrides
// the configured one.
func newPropagator(cfg config.Config, logger *slog.Logger, engine string) (*propagation.Propagator, error) {
	grav, err := cfg.Gravity()
	if err != nil {
		return nil, err
	}
	if engine == "" {
		engine = cfg.Propagation.Engine
	}
	eng, err := propagation.NewEngine(engine, grav)
	if err != nil {
		return nil, err
	}
	return propagation.NewPropagator(eng, cfg.PropConfig(), logger), nil
}

// readCatalog parses a TLE catalog from path, or from stdin when path is "-".
func readCatalog(path string, logger *slog.Logger) ([]tle.Entry, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading TLE catalog")
	}

	entries, err := tle.Parse(bytes.NewReader(data), logger)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.Errorf("no valid element sets in %s", path)
	}
	return entries, nil
}

func entryInputs(entries []tle.Entry) []propagation.Input {
	inputs := make([]propagation.Input, len(entries))
	for i, e := range entries {
		inputs[i] = propagation.Input{Name: e.Name, Line1: e.Line1, Line2: e.Line2}
	}
	return inputs
}
