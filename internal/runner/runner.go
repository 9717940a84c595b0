// Package runner implements CircuitRunner: executing a single experiment by
// transpiling it, splitting its shots into subshot buckets, dispatching each
// bucket to the backend (in parallel when more than one), and combining the
// bucket results into the experiment's outcome.
package runner

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/aerctl/aerctl/backend"
	"github.com/aerctl/aerctl/internal/distribution"
	"github.com/aerctl/aerctl/internal/engine"
	"github.com/aerctl/aerctl/internal/planner"
	"github.com/aerctl/aerctl/model"
	"github.com/aerctl/aerctl/transpile"
)

// ErrBackend classifies an error raised from within a per-shot backend
// invocation, so CircuitRunner's caller can tell it apart from a
// validation or parse failure without string matching.
var ErrBackend = errors.New("backend error")

// Runner executes one experiment per Run call.
type Runner struct {
	log      zerolog.Logger
	be       backend.Backend
	planner  *planner.Planner
	passes   []transpile.Pass
}

// New returns a Runner dispatching to be, running passes (in order) before
// every experiment, and planning circuit-level parallelism with p.
func New(be backend.Backend, p *planner.Planner, passes []transpile.Pass, log zerolog.Logger) *Runner {
	return &Runner{be: be, planner: p, passes: passes, log: log}
}

// Run executes one experiment. cfg carries the resolved job
// configuration; parallelExperiments is how many experiments are running
// concurrently on this rank (used by the circuit-level planner to disable
// shot parallelism when experiment parallelism is already active); dist is
// this rank's DistributionState, used to compute the local shot count.
func (r *Runner) Run(ctx context.Context, circuit model.Circuit, noise model.NoiseModel, cfg model.ParallelismConfig, channels model.ResultChannels, parallelExperiments int, dist model.DistributionState) model.ExperimentResult {
	start := time.Now()
	result := model.ExperimentResult{
		Seed:     circuit.Seed,
		Metadata: map[string]any{},
	}

	for _, pass := range r.passes {
		pass.SetConfig(cfg)
		circuit, noise = pass.OptimizeCircuit(circuit, noise, r.be.OpSet())
	}

	var plan planner.Plan
	if cfg.ExplicitParallelization {
		plan = planner.Plan{
			ParallelExperiments: parallelExperiments,
			ParallelShots:       cfg.ExplicitParallelShots,
			ParallelStateUpdate: cfg.ExplicitParallelStateUpdate,
		}
	} else {
		var err error
		plan, err = r.planner.PlanCircuit(circuit, noise, func(c model.Circuit, n model.NoiseModel) int {
			return r.be.RequiredMemoryMB(c.NumQubits, c.Ops)
		}, cfg, parallelExperiments, dist.NumProcessPerExperiment, dist)
		if err != nil {
			result.Status = model.StatusError
			result.Message = err.Error()
			return result
		}
	}

	shotsLocal := distribution.LocalShots(circuit.Shots, max1(dist.DistributedShots), dist.DistributedShotsRank)

	var data model.ResultData
	var err error
	if plan.ParallelShots <= 1 {
		data, err = r.be.Run(ctx, circuit, noise.Clone(), channels, shotsLocal, circuit.Seed)
	} else {
		data, err = r.runParallelShots(ctx, circuit, noise, channels, shotsLocal, plan.ParallelShots)
	}

	if err != nil {
		result.Status = model.StatusError
		result.Message = err.Error()
		r.log.Warn().Str("circuit", circuit.Name).Err(err).Msg("runner: experiment failed")
		return result
	}

	result.Status = model.StatusCompleted
	result.Data = data
	result.Shots = shotsLocal
	result.Metadata["parallel_shots"] = plan.ParallelShots
	result.Metadata["parallel_state_update"] = plan.ParallelStateUpdate
	if dist.DistributedShots > 1 {
		result.Metadata["distributed_shots"] = dist.DistributedShots
	}
	result.Metadata["time_taken"] = time.Since(start).Seconds()

	r.log.Info().
		Str("circuit", circuit.Name).
		Int("shots", shotsLocal).
		Int("parallel_shots", plan.ParallelShots).
		Msg("runner: experiment completed")

	return result
}

// runParallelShots splits shotsLocal into buckets subshot counts, runs each
// bucket against its own noise model clone with seed circuit.Seed+i, and
// combines the bucket payloads.
func (r *Runner) runParallelShots(ctx context.Context, circuit model.Circuit, noise model.NoiseModel, channels model.ResultChannels, shotsLocal, buckets int) (model.ResultData, error) {
	subshots := splitBuckets(shotsLocal, buckets)

	bucketData := make([]model.ResultData, buckets)
	bucketErr := make([]error, buckets)

	pool := engine.NewPool(buckets)
	_ = pool.Run(ctx, buckets, func(ctx context.Context, i int) {
		if subshots[i] == 0 {
			return
		}
		data, err := r.be.Run(ctx, circuit, noise.Clone(), channels, subshots[i], circuit.Seed+int64(i))
		if err != nil {
			bucketErr[i] = err
			return
		}
		bucketData[i] = data
	})

	for i, err := range bucketErr {
		if err != nil {
			return model.ResultData{}, errors.Wrapf(ErrBackend, "shot bucket %d: %s", i, err.Error())
		}
	}

	combined := engine.NewAssociative(model.ResultData{}, model.ResultData.Combine)
	return combined.Fold(bucketData), nil
}

// splitBuckets divides total into buckets non-negative subshot counts whose
// sum is total, with the remainder distributed one-per-bucket starting from
// index 0.
func splitBuckets(total, buckets int) []int {
	if buckets < 1 {
		buckets = 1
	}
	out := make([]int, buckets)
	base := total / buckets
	rem := total % buckets
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}

func max1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
