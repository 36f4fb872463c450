package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Psnastudent/sgp4-service/internal/metrics"
	"github.com/Psnastudent/sgp4-service/internal/tle"
)

func newFetchCmd() *cobra.Command {
	var sourceURL, outPath string
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the raw TLE catalog from the configured source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(os.Stderr)
			if err != nil {
				return err
			}
			if sourceURL == "" {
				sourceURL = cfg.Catalog.SourceURL
			}
			fetcher := tle.NewFetcher(sourceURL, logger, cfg.Catalog.ExtraURLs...)
			fetcher.SetTimeout(cfg.CatalogTimeout())

			body, err := fetcher.Fetch(cmd.Context())
			metrics.RecordCatalogFetch(err == nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outPath != "" && outPath != "-" {
				if err := os.WriteFile(outPath, body, 0o644); err != nil {
					return errors.Wrap(err, "writing catalog")
				}
				logger.Info("catalog saved", "path", outPath, "bytes", len(body), "source_url", fetcher.SourceURL())
				return nil
			}
			_, err = out.Write(body)
			return err
		},
	}
	cmd.Flags().StringVar(&sourceURL, "url", "", "catalog URL (default from config)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to this file instead of stdout")
	return cmd
}
