// Package planner implements ParallelismPlanner: choosing
// (parallel_experiments, parallel_shots, parallel_state_update) from a
// memory budget and a thread budget, at both the batch level (which
// circuits run concurrently) and the per-circuit level (how many shot
// buckets one circuit's shots are split into).
package planner

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/aerctl/aerctl/internal/distribution"
	"github.com/aerctl/aerctl/model"
)

// ErrOutOfMemory is returned when no circuit fits within the memory budget;
// it classifies an out-of-memory failure for errors.Is callers.
var ErrOutOfMemory = errors.New("parallelism planner: out of memory")

// Plan is the three-level thread budget produced by the planner for one
// scope (batch-level experiment planning, or per-circuit shot planning). It
// is model.ParallelismPlan under a package-local name, since the shape is
// part of the core data model but only ever constructed here.
type Plan = model.ParallelismPlan

// RequiredMemoryFunc estimates a circuit's memory footprint, in MiB.
type RequiredMemoryFunc func(c model.Circuit, noise model.NoiseModel) int

// Planner computes experiment- and circuit-level parallelism plans.
type Planner struct {
	log zerolog.Logger
}

// New returns a Planner. A zero-value logger is a disabled logger.
func New(log zerolog.Logger) *Planner {
	return &Planner{log: log}
}

// PlanExperiments computes the number of local circuits that may run
// concurrently given the memory and thread budgets.
func (p *Planner) PlanExperiments(circuits []model.Circuit, noise model.NoiseModel, requiredMemoryMB RequiredMemoryFunc, cfg model.ParallelismConfig, numProcessPerExperiment, numProcesses int) (int, error) {
	maxThreads := atLeastOne(cfg.MaxParallelThreads)
	maxExperiments := maxThreads
	if cfg.MaxParallelExperiments > 0 {
		maxExperiments = min(cfg.MaxParallelExperiments, maxThreads)
	}

	if maxExperiments == 1 && numProcesses == 1 {
		return 1, nil
	}

	if len(circuits) == 0 {
		return 1, nil
	}

	budget := float64(cfg.MaxMemoryMB) * float64(numProcessPerExperiment)
	mbs := make([]float64, len(circuits))
	for i, c := range circuits {
		mbs[i] = float64(requiredMemoryMB(c, noise)) / float64(numProcessPerExperiment)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(mbs)))

	if cfg.MaxMemoryMB <= 0 {
		// No budget configured: every circuit fits.
		candidate := min(len(circuits), maxExperiments, maxThreads)
		return max(candidate, 1), nil
	}

	prefix := 0
	var cumulative float64
	for _, mb := range mbs {
		if cumulative+mb > budget {
			break
		}
		cumulative += mb
		prefix++
	}
	if prefix == 0 {
		p.log.Warn().Float64("largest_circuit_mb", mbs[0]).Float64("budget_mb", budget).Msg("planner: no circuit fits memory budget")
		return 0, errors.Wrapf(ErrOutOfMemory, "no circuit fits within %.0f MiB budget", budget)
	}

	candidate := min(prefix, maxExperiments, maxThreads, len(circuits))
	p.log.Debug().Int("parallel_experiments", candidate).Msg("planner: experiment-level plan computed")
	return max(candidate, 1), nil
}

// PlanCircuit computes parallel_shots and parallel_state_update for one
// circuit, given how many experiments are already running concurrently
// (parallelExperiments).
func (p *Planner) PlanCircuit(c model.Circuit, noise model.NoiseModel, requiredMemoryMB RequiredMemoryFunc, cfg model.ParallelismConfig, parallelExperiments, numProcessPerExperiment int, dist model.DistributionState) (Plan, error) {
	maxThreads := atLeastOne(cfg.MaxParallelThreads)
	maxShots := maxThreads
	if cfg.MaxParallelShots > 0 {
		maxShots = min(cfg.MaxParallelShots, maxThreads)
	}

	shotsLocal := distribution.LocalShots(c.Shots, max(dist.DistributedShots, 1), dist.DistributedShotsRank)

	plan := Plan{ParallelExperiments: parallelExperiments}

	if maxShots == 1 || parallelExperiments > 1 {
		plan.ParallelShots = 1
	} else {
		circMB := requiredMemoryMB(c, noise) / max(numProcessPerExperiment, 1)
		if circMB < 1 {
			circMB = 1
		}
		if cfg.MaxMemoryMB > 0 && circMB > cfg.MaxMemoryMB {
			return Plan{}, errors.Wrapf(ErrOutOfMemory, "circuit %q needs %d MiB, budget is %d MiB", c.Name, circMB, cfg.MaxMemoryMB)
		}
		byMemory := maxShots
		if cfg.MaxMemoryMB > 0 {
			byMemory = cfg.MaxMemoryMB / circMB
		}
		plan.ParallelShots = max(min(byMemory, maxShots, shotsLocal), 1)
	}

	if plan.ParallelShots > 1 {
		plan.ParallelStateUpdate = max(1, maxThreads/plan.ParallelShots)
	} else {
		plan.ParallelStateUpdate = max(1, maxThreads/max(parallelExperiments, 1))
	}

	plan.NestedParallelism = parallelExperiments > 1 && parallelExperiments < maxThreads

	p.log.Debug().
		Str("circuit", c.Name).
		Int("parallel_shots", plan.ParallelShots).
		Int("parallel_state_update", plan.ParallelStateUpdate).
		Int("shots_local", shotsLocal).
		Msg("planner: circuit-level plan computed")

	return plan, nil
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
