// Package study fans a single configuration out across many seeded
// kernel runs and collects the results. A study is the Monte Carlo
// boundary: everything below it (kernel, pricing, priceproc) is
// single-threaded and deterministic; everything at this layer is about
// running many deterministic things concurrently and reporting what
// happened to each.
package study

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/contactkeval/oilsim/internal/config"
	"github.com/contactkeval/oilsim/internal/eventlog"
	"github.com/contactkeval/oilsim/internal/kernel"
	"github.com/contactkeval/oilsim/internal/logger"
)

// RunID identifies one study invocation, so results from a distributed
// executor can be correlated without relying on seed uniqueness alone.
type RunID string

// NewRunID mints a fresh RunID.
func NewRunID() RunID {
	return RunID(uuid.New().String())
}

// FailedRun records a seed whose simulation aborted, instead of the
// study retrying it or aborting the whole batch. A numerical error on
// one tail of a price-path distribution is data, not a reason to throw
// away every other seed's result.
type FailedRun struct {
	Seed uint64
	Err  error
}

func (f FailedRun) Error() string {
	return fmt.Sprintf("study: seed %d failed: %v", f.Seed, f.Err)
}

// Study runs a fixed configuration across a set of seeds, bounded to at
// most Workers concurrent kernel runs.
type Study struct {
	RunID   RunID
	Config  *config.Config
	Seeds   []uint64
	Workers int
	Logger  *logger.Logger
	Metrics *kernel.Metrics

	// NewStore constructs the event-log backing for one seed's run.
	// Defaults to an in-memory store if nil; a SQLite-backed store can
	// be substituted for studies whose combined logs don't fit in RAM.
	NewStore func() eventlog.Store
}

// New constructs a Study with sensible defaults: one worker per seed is
// never assumed — Workers must be set explicitly by the caller (the CLI
// takes it from --workers, default 4; a test fixes it at 1 for
// determinism of output ordering).
func New(cfg *config.Config, seeds []uint64, workers int) *Study {
	return &Study{
		RunID:   NewRunID(),
		Config:  cfg,
		Seeds:   seeds,
		Workers: workers,
	}
}

// Run executes every seed, returning the successful results (in no
// particular order — each kernel.Result carries its own seed and
// fingerprint) and the seeds that failed. A cancelled ctx stops new
// simulations from starting but lets in-flight ones finish; Run never
// loses a result that fully completed before cancellation. Seeds skipped
// because of cancellation appear in neither returned slice.
func (st *Study) Run(ctx context.Context) ([]kernel.Result, []FailedRun) {
	results := make([]kernel.Result, len(st.Seeds))
	failed := make([]FailedRun, len(st.Seeds))
	ok := make([]bool, len(st.Seeds))
	didFail := make([]bool, len(st.Seeds))

	g, gctx := errgroup.WithContext(ctx)
	if st.Workers > 0 {
		g.SetLimit(st.Workers)
	}

	for i, seed := range st.Seeds {
		i, seed := i, seed
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			newStore := st.NewStore
			if newStore == nil {
				newStore = func() eventlog.Store { return eventlog.NewMemoryStore() }
			}
			log := newStore()
			defer log.Close()

			k := kernel.New(st.Config, log, st.Logger, st.Metrics)
			res, err := k.Run(context.WithoutCancel(gctx), seed)
			if err != nil {
				failed[i] = FailedRun{Seed: seed, Err: err}
				didFail[i] = true
				return nil
			}
			results[i] = *res
			ok[i] = true
			return nil
		})
	}
	// Worker errors are recorded per-seed above; g.Wait only reports
	// setup failures (none currently possible), so its error is ignored
	// deliberately rather than silently swallowed elsewhere.
	_ = g.Wait()

	out := make([]kernel.Result, 0, len(st.Seeds))
	for i, v := range ok {
		if v {
			out = append(out, results[i])
		}
	}
	fails := make([]FailedRun, 0)
	for i, v := range didFail {
		if v {
			fails = append(fails, failed[i])
		}
	}
	return out, fails
}
