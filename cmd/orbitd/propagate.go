package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Psnastudent/sgp4-service/internal/api"
	"github.com/Psnastudent/sgp4-service/internal/propagation"
	"github.com/Psnastudent/sgp4-service/internal/transform"
)

type propagateFlags struct {
	tlePath   string
	timestamp string
	frame     string
	geodetic  bool
	observer  string
	engine    string
	format    string
}

func newPropagateCmd() *cobra.Command {
	var f propagateFlags
	cmd := &cobra.Command{
		Use:   "propagate",
		Short: "Propagate every satellite in a TLE catalog file to one time",
		Example: `  orbitd propagate --tle active.txt --time 2024-04-10T12:00:00Z
  curl -s https://celestrak.org/NORAD/elements/gp.php?GROUP=stations\&FORMAT=tle | \
    orbitd propagate --tle - --geodetic --format table`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPropagate(cmd.OutOrStdout(), f)
		},
	}
	cmd.Flags().StringVar(&f.tlePath, "tle", "", "TLE catalog file, or - for stdin")
	cmd.Flags().StringVar(&f.timestamp, "time", "", "ISO-8601 target time (default now)")
	cmd.Flags().StringVar(&f.frame, "frame", "teme", "output frame: teme or ecef")
	cmd.Flags().BoolVar(&f.geodetic, "geodetic", false, "include the sub-satellite point")
	cmd.Flags().StringVar(&f.observer, "observer", "", "observer site as lat,lon[,alt_km] for look angles")
	cmd.Flags().StringVar(&f.engine, "engine", "", "override the configured engine (native or reference)")
	cmd.Flags().StringVar(&f.format, "format", "json", "output format: json or table")
	cmd.MarkFlagRequired("tle")
	return cmd
}

func runPropagate(out io.Writer, f propagateFlags) error {
	cfg, logger, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	prop, err := newPropagator(cfg, logger, f.engine)
	if err != nil {
		return err
	}

	opts := propagation.Options{Frame: propagation.Frame(strings.ToLower(f.frame)), Geodetic: f.geodetic}
	if f.observer != "" {
		obs, err := parseObserver(f.observer)
		if err != nil {
			return err
		}
		opts.Observer = &obs
	}

	entries, err := readCatalog(f.tlePath, logger)
	if err != nil {
		return err
	}

	ts := f.timestamp
	if ts == "" {
		ts = time.Now().UTC().Format(time.RFC3339Nano)
	}
	batch, err := prop.PropagateBatch(entryInputs(entries), ts, opts)
	if err != nil {
		return err
	}
	logger.Info("batch propagated",
		"satellites", len(batch.Results),
		"success", batch.Succeeded,
		"errors", batch.Failed,
		"duration_ms", batch.Duration.Milliseconds(),
	)

	switch f.format {
	case "json":
		return api.EncodeBatch(out, batch)
	case "table":
		return writeBatchTable(out, batch)
	}
	return errors.Errorf("unknown output format %q", f.format)
}

// parseObserver reads "lat,lon" or "lat,lon,alt_km" in degrees.
func parseObserver(s string) (transform.Observer, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return transform.Observer{}, errors.Errorf("observer %q: want lat,lon[,alt_km]", s)
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return transform.Observer{}, errors.Wrapf(err, "observer %q", s)
		}
		vals[i] = v
	}
	if vals[0] < -90 || vals[0] > 90 {
		return transform.Observer{}, errors.Errorf("observer latitude %g out of range", vals[0])
	}
	return transform.NewObserver(vals[0], vals[1], vals[2]), nil
}

func writeBatchTable(out io.Writer, batch *propagation.Batch) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "NAME\tNORAD\tX km\tY km\tZ km\tVX km/s\tVY km/s\tVZ km/s\tEXTRA\n")
	for _, r := range batch.Results {
		if r.Err != nil {
			fmt.Fprintf(tw, "%s\t%d\t-\t-\t-\t-\t-\t-\t%s: %v\n", r.Name, r.NORADID, r.Code(), r.Err)
			continue
		}
		s := r.State
		var extra []string
		if g := r.Geodetic; g != nil {
			extra = append(extra, fmt.Sprintf("lat=%.3f lon=%.3f alt=%.1fkm", g.LatDeg, g.LonDeg, g.AltKm))
		}
		if l := r.Look; l != nil {
			extra = append(extra, fmt.Sprintf("az=%.1f el=%.1f range=%.0fkm", l.AzimuthDeg, l.ElevationDeg, l.RangeKm))
		}
		fmt.Fprintf(tw, "%s\t%d\t%.3f\t%.3f\t%.3f\t%.6f\t%.6f\t%.6f\t%s\n",
			r.Name, r.NORADID, s.X, s.Y, s.Z, s.VX, s.VY, s.VZ, strings.Join(extra, " "))
	}
	fmt.Fprintf(tw, "\n%d ok, %d failed, %s frame, %s engine, %v\n",
		batch.Succeeded, batch.Failed, batch.Frame, batch.Engine, batch.Duration.Round(time.Microsecond))
	return tw.Flush()
}
