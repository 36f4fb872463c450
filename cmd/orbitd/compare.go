package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Psnastudent/sgp4-service/internal/propagation"
	"github.com/Psnastudent/sgp4-service/internal/timeconv"
)

func newCompareCmd() *cobra.Command {
	var tlePath, timestamp string
	var maxKm float64
	var verbose bool
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Propagate a catalog with the native and reference engines and report deviations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(os.Stderr)
			if err != nil {
				return err
			}
			native, err := newPropagator(cfg, logger, propagation.EngineNative)
			if err != nil {
				return err
			}
			reference, err := newPropagator(cfg, logger, propagation.EngineReference)
			if err != nil {
				return err
			}

			entries, err := readCatalog(tlePath, logger)
			if err != nil {
				return err
			}
			jd := timeconv.FromTime(time.Now().UTC())
			if timestamp != "" {
				if jd, err = timeconv.ParseTimestamp(timestamp); err != nil {
					return err
				}
			}

			cmp, err := propagation.Compare(native, reference, entryInputs(entries), jd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "NAME\tΔPOS km\tΔVEL m/s\tNOTE\n")
			failed := 0
			for _, d := range cmp.Deviations {
				if d.Err != nil {
					failed++
					if verbose {
						fmt.Fprintf(tw, "%s\t-\t-\t%s\n", d.Name, propagation.ErrorCode(d.Err))
					}
					continue
				}
				if verbose || (maxKm > 0 && d.PositionKm > maxKm) {
					fmt.Fprintf(tw, "%s\t%.6f\t%.6f\t\n", d.Name, d.PositionKm, d.VelocityKmS*1000)
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\ntime %s: %d compared, %d failed in either engine, max Δpos %.6f km, max Δvel %.6f m/s\n",
				cmp.Time.Time().Format(time.RFC3339), cmp.Compared, failed, cmp.MaxPosKm, cmp.MaxVelKmS*1000)

			if maxKm > 0 && cmp.MaxPosKm > maxKm {
				return errors.Errorf("max position deviation %.6f km exceeds %.6f km", cmp.MaxPosKm, maxKm)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tlePath, "tle", "", "TLE catalog file, or - for stdin")
	cmd.Flags().StringVar(&timestamp, "time", "", "ISO-8601 comparison time (default now)")
	cmd.Flags().Float64Var(&maxKm, "max-km", 0, "fail when any position deviation exceeds this (0 disables)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list every satellite")
	cmd.MarkFlagRequired("tle")
	return cmd
}
