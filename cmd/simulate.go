package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/etas-sim/etas-sim/sim"
	"github.com/etas-sim/etas-sim/sim/calibration"
	"github.com/etas-sim/etas-sim/sim/forecast"
	"github.com/etas-sim/etas-sim/sim/geo"
	"github.com/etas-sim/etas-sim/sim/metrics"
	"github.com/etas-sim/etas-sim/sim/store"
)

// simulateCmd produces forecast catalogs from a calibration bundle.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate forecast catalogs continuing a calibrated observed catalog",
	Run: func(cmd *cobra.Command, args []string) {
		v, err := newViper(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		cfg, err := loadSimulateConfig(v)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if !v.IsSet("seed") {
			cfg.Seed = time.Now().UnixNano()
			logrus.Infof("no --seed given, using %d", cfg.Seed)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		if err := runSimulate(ctx, cfg); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

func runSimulate(ctx context.Context, cfg *SimulateConfig) error {
	bundle, err := calibration.Load(cfg.Calibration)
	if err != nil {
		return err
	}
	recorder := metrics.NewRecorder()
	etas := forecast.New(bundle, forecast.Options{
		GaussianScale: cfg.GaussianScale,
		Seed:          cfg.Seed,
		Parallel:      cfg.Parallel,
		KeepOutside:   cfg.NoFilterPolygon,
		EarthRadiusKm: cfg.EarthRadius,
		Limits: sim.LimitsConfig{
			MaxRetries:     cfg.MaxRetries,
			MaxGenerations: cfg.MaxGenerations,
			MaxEvents:      cfg.MaxEvents,
		},
		Recorder: recorder,
	})
	if err := etas.Prepare(); err != nil {
		return err
	}

	layout := store.LayoutBatch
	if cfg.Once {
		layout = store.LayoutSingle
	}
	sink, err := openSink(ctx, cfg, bundle, layout)
	if err != nil {
		return err
	}

	if cfg.Once {
		err = etas.SimulateOnce(ctx, sink, cfg.Days)
	} else {
		batch := forecast.Batch{Days: cfg.Days, Simulations: cfg.Simulations}
		if cfg.HasMThr {
			batch.MThr = &cfg.MThr
		}
		err = etas.SimulateMany(ctx, sink, batch)
	}
	if cerr := sink.Close(); err == nil {
		err = cerr
	}
	if cfg.MetricsFile != "" {
		if merr := recorder.WriteTextfile(cfg.MetricsFile); merr != nil {
			logrus.Warnf("%v", merr)
		}
	}
	return err
}

func openSink(ctx context.Context, cfg *SimulateConfig, bundle *calibration.Bundle, layout store.Layout) (store.Sink, error) {
	switch cfg.Sink {
	case "sqlite":
		n := cfg.Simulations
		if cfg.Once {
			n = 1
		}
		s, err := store.OpenSQLite(ctx, cfg.Output, store.RunMetadata{
			Seed:          cfg.Seed,
			NSimulations:  n,
			ForecastStart: bundle.Spec.TimewindowEnd,
			ForecastDays:  cfg.Days,
			RegionWKT:     bundle.Region.WKT(),
		})
		if err != nil {
			return nil, err
		}
		logrus.Infof("storing run %s in %s", s.RunID(), cfg.Output)
		return s, nil
	case "csv":
		return store.NewCSVSink(cfg.Output, layout), nil
	default:
		return nil, fmt.Errorf("unknown sink %q", cfg.Sink)
	}
}

// addSimulateFlags registers the simulate flags on fs.
func addSimulateFlags(fs *pflag.FlagSet) {
	fs.String("calibration", "", "Calibration bundle (YAML)")
	fs.String("output", "simulations.csv", "Output file (CSV or SQLite database)")
	fs.String("sink", "csv", "Output format (csv, sqlite)")
	fs.Int("days", 30, "Forecast length in days")
	fs.Int("simulations", 100, "Number of simulated catalogs")
	fs.Bool("once", false, "Simulate a single catalog with event ids and background flags")
	fs.Float64("m-thr", 0, "Output magnitude threshold (default: the calibration's m_ref)")
	fs.Int64("seed", 0, "Master seed (default: derived from the clock and logged)")
	fs.Int("parallel", 1, "Number of catalogs simulated concurrently")
	fs.Float64("gaussian-scale", sim.DefaultGaussianScale, "Smoothing of background locations in degrees")
	fs.Bool("no-filter-polygon", false, "Keep events outside the region in single-catalog output")
	fs.Float64("earth-radius", geo.EarthRadiusKm, "Earth radius in km for aftershock distances")
	fs.Int("max-generations", sim.DefaultMaxGenerations, "Abort a run deeper than this many generations")
	fs.Int("max-retries", sim.DefaultMaxRetries, "Background placement retries before giving up")
	fs.Int("max-events", sim.DefaultMaxEvents, "Abort a run larger than this many events")
	fs.String("metrics-file", "", "Write Prometheus metrics to this textfile when done")
}

func init() {
	addSimulateFlags(simulateCmd.Flags())
}
