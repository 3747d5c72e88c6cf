package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/contactkeval/oilsim/internal/accounting"
	"github.com/contactkeval/oilsim/internal/config"
	"github.com/contactkeval/oilsim/internal/data"
	"github.com/contactkeval/oilsim/internal/eventlog"
	"github.com/contactkeval/oilsim/internal/kernel"
	"github.com/contactkeval/oilsim/internal/logger"
	"github.com/contactkeval/oilsim/internal/report"
	"github.com/contactkeval/oilsim/internal/study"
)

var (
	seedsFlag      string
	workersFlag    int
	outDirFlag     string
	sqliteFlag     string
	eventStoreFlag string

	calibrateFlag     bool
	calibrateDaysFlag int
	dataDirFlag       string
	massiveKeyFlag    string
)

var runCmd = &cobra.Command{
	Use:   "run <config-path>",
	Short: "Run a backtest or Monte Carlo study from a JSON configuration file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&seedsFlag, "seeds", "", "seed or seed range to run, e.g. \"1\" or \"1-200\" or \"1,2,3\" (default: config's simulation.seed)")
	runCmd.Flags().IntVar(&workersFlag, "workers", 4, "max concurrent simulation workers")
	runCmd.Flags().StringVar(&outDirFlag, "out", ".", "output directory for result.json/study.csv")
	runCmd.Flags().StringVar(&sqliteFlag, "sqlite", "", "optional path to also persist results to a SQLite file")
	runCmd.Flags().StringVar(&eventStoreFlag, "event-store", "memory", "per-run event log backing: \"memory\" or \"sqlite\" (pages large studies to disk under --out)")

	runCmd.Flags().BoolVar(&calibrateFlag, "calibrate", false, "override simulation.volatility/volatility_risk_premium from a historical realized-vol/ATM-implied-vol calibration before running")
	runCmd.Flags().IntVar(&calibrateDaysFlag, "calibrate-days", 60, "trailing calendar-day window used to estimate realized volatility when --calibrate is set")
	runCmd.Flags().StringVar(&dataDirFlag, "data-dir", "", "directory of <SYMBOL>.csv daily bars for --calibrate (falls back to a synthetic provider when unset or the file is missing)")
	runCmd.Flags().StringVar(&massiveKeyFlag, "massive-key", "", "Massive API key for --calibrate (falls back to --data-dir, then a synthetic provider)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitConfigError)
		return nil
	}

	seeds, err := parseSeeds(seedsFlag, cfg.Simulation.Seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitConfigError)
		return nil
	}

	level := logger.Info
	if verbose {
		level = logger.Debug
	}
	lg := logger.New(level, os.Stderr)

	if calibrateFlag {
		if err := calibrateConfig(context.Background(), cfg, lg); err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
			os.Exit(exitConfigError)
			return nil
		}
	}

	st := study.New(cfg, seeds, workersFlag)
	st.Logger = lg

	if eventStoreFlag == "sqlite" {
		if err := os.MkdirAll(outDirFlag, 0o755); err != nil {
			return fmt.Errorf("oilsim: create output dir: %w", err)
		}
		var next atomic.Int64
		st.NewStore = func() eventlog.Store {
			path := fmt.Sprintf("%s/events-%d.sqlite", outDirFlag, next.Add(1))
			s, err := eventlog.NewSQLiteStore(path)
			if err != nil {
				lg.Errorf("event-store: falling back to memory: %s", err)
				return eventlog.NewMemoryStore()
			}
			return s
		}
	} else if eventStoreFlag != "memory" && eventStoreFlag != "" {
		return fmt.Errorf("oilsim: unknown --event-store %q (want \"memory\" or \"sqlite\")", eventStoreFlag)
	}

	start := time.Now()
	results, failed := st.Run(context.Background())

	if len(results) == 0 && len(failed) > 0 {
		var cerr *kernel.ConfigError
		if errors.As(failed[0].Err, &cerr) {
			fmt.Fprintf(os.Stderr, "error: %s\n", failed[0].Err)
			os.Exit(exitConfigError)
		}
		fmt.Fprintf(os.Stderr, "error: %s\n", failed[0].Err)
		os.Exit(exitNumerical)
		return nil
	}

	if err := os.MkdirAll(outDirFlag, 0o755); err != nil {
		return fmt.Errorf("oilsim: create output dir: %w", err)
	}
	if len(results) == 1 {
		if err := report.WriteJSON(&results[0], outDirFlag); err != nil {
			return err
		}
	}
	if err := report.WriteCSV(results, outDirFlag); err != nil {
		return err
	}
	if sqliteFlag != "" {
		if err := report.WriteSQLite(results, sqliteFlag); err != nil {
			return err
		}
	}

	netPnLs := make([]float64, len(results))
	for i, r := range results {
		netPnLs[i] = r.Summary.NetPnL
	}
	stats := accounting.Aggregate(netPnLs, []int{5, 50, 95}, 0.95)

	fmt.Printf("ran %s seeds in %s (%s failed)\n",
		humanize.Comma(int64(len(seeds))), time.Since(start).Round(time.Millisecond), humanize.Comma(int64(len(failed))))
	fmt.Printf("mean net P&L %.2f, Sharpe %.2f, p5=%.2f p50=%.2f p95=%.2f, VaR95=%.2f\n",
		stats.Mean, stats.Sharpe, stats.Percentiles[5], stats.Percentiles[50], stats.Percentiles[95], stats.ValueAtRisk)

	return nil
}

// calibrateConfig builds a Provider chain (Massive, then local CSV, then a
// seeded synthetic fallback) and overwrites cfg.Simulation.Volatility /
// VolatilityRiskPremium with the realized-vol/VRP pair it backs out from
// cfg.Product.Symbol's trailing history and near-term ATM quote. It never
// aborts the run for lack of real market data — the synthetic provider at
// the end of the chain always answers.
func calibrateConfig(ctx context.Context, cfg *config.Config, lg *logger.Logger) error {
	var provider data.Provider = data.NewSyntheticProvider(int64(cfg.Simulation.Seed), nil)
	if dataDirFlag != "" {
		provider = data.NewLocalCSVProvider(dataDirFlag, provider)
	}
	if massiveKeyFlag != "" {
		provider = data.NewMassiveProvider(massiveKeyFlag, lg, provider)
	}

	asOf := time.Now().UTC()
	from := asOf.AddDate(0, 0, -calibrateDaysFlag)
	nearDTE := cfg.Strategy.Legs[0].EntryDTE
	expiry := asOf.AddDate(0, 0, int(nearDTE))

	cal, err := data.Calibrate(ctx, provider, cfg.Product.Symbol, from, asOf, expiry, cfg.Simulation.RiskFreeRate)
	if err != nil {
		return fmt.Errorf("oilsim: calibrate: %w", err)
	}

	lg.Infof("event=calibrated symbol=%s realized_vol=%.4f implied_vol=%.4f vrp=%.4f",
		cfg.Product.Symbol, cal.RealizedVol, cal.ImpliedVol, cal.VRP)
	cfg.Simulation.Volatility = cal.RealizedVol
	cfg.Simulation.VolatilityRiskPremium = cal.VRP
	return config.Validate(cfg)
}

// parseSeeds accepts "" (use def), a single integer, a "lo-hi" range, or
// a comma-separated list.
func parseSeeds(spec string, def uint64) ([]uint64, error) {
	if spec == "" {
		return []uint64{def}, nil
	}
	if strings.Contains(spec, "-") && !strings.Contains(spec, ",") {
		parts := strings.SplitN(spec, "-", 2)
		lo, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed range %q: %w", spec, err)
		}
		hi, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed range %q: %w", spec, err)
		}
		if hi < lo {
			return nil, fmt.Errorf("invalid seed range %q: high < low", spec)
		}
		seeds := make([]uint64, 0, hi-lo+1)
		for s := lo; s <= hi; s++ {
			seeds = append(seeds, s)
		}
		return seeds, nil
	}

	var seeds []uint64
	for _, part := range strings.Split(spec, ",") {
		s, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q: %w", part, err)
		}
		seeds = append(seeds, s)
	}
	return seeds, nil
}
