// Package controller implements BatchController: the top-level entry point
// that parses a job, orchestrates the distribution and parallelism
// planners, runs every local experiment (sequentially or in parallel), and
// assembles the final Result.
package controller

import (
	"context"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/aerctl/aerctl/backend"
	"github.com/aerctl/aerctl/fabric"
	"github.com/aerctl/aerctl/internal/distribution"
	"github.com/aerctl/aerctl/internal/engine"
	"github.com/aerctl/aerctl/internal/memprobe"
	"github.com/aerctl/aerctl/internal/planner"
	"github.com/aerctl/aerctl/internal/runner"
	"github.com/aerctl/aerctl/internal/validator"
	"github.com/aerctl/aerctl/model"
	"github.com/aerctl/aerctl/transpile"
)

// ErrPartialFailure classifies a batch in which some experiments completed
// and others errored.
var ErrPartialFailure = errors.New("partial failure")

// nestingMu guards nestingEnabled, the process-wide thread-pool nesting
// toggle: a single piece of shared state, written only by BatchController
// immediately before and after each parallel region, never read by any
// other component.
var nestingMu sync.Mutex
var nestingEnabled bool

func setNesting(v bool) {
	nestingMu.Lock()
	nestingEnabled = v
	nestingMu.Unlock()
}

// Controller is the BatchController. It owns the backend, the distributed
// fabric, and the planners/runner built on top of them.
type Controller struct {
	be   backend.Backend
	fab  fabric.Fabric
	mem  *memprobe.Probe
	dist *distribution.Planner
	plan *planner.Planner
	run  *runner.Runner
	log  zerolog.Logger

	passes    []transpile.Pass
	passesSet bool
}

// Option configures a Controller at construction time.
type Option func(*Controller)

// WithFabric overrides the default single-process fabric.
func WithFabric(f fabric.Fabric) Option {
	return func(c *Controller) { c.fab = f }
}

// WithLogger attaches a structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithTranspilePasses overrides the default [barrier reduction, qubit
// truncation] pass list.
func WithTranspilePasses(passes []transpile.Pass) Option {
	return func(c *Controller) { c.passes, c.passesSet = passes, true }
}

// New returns a Controller dispatching to be.
func New(be backend.Backend, opts ...Option) *Controller {
	c := &Controller{
		be:  be,
		fab: fabric.Single(),
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.mem = memprobe.New(c.fab, memprobe.WithLogger(c.log))
	c.dist = distribution.New(c.log)
	c.plan = planner.New(c.log)
	if !c.passesSet {
		c.passes = []transpile.Pass{
			transpile.NewBarrierReductionPass(),
			transpile.NewQubitTruncationPass(),
		}
	}
	c.run = runner.New(c.be, c.plan, c.passes, c.log)
	return c
}

// ExecuteJobBlob is the top-level entry point: parse the job, query the
// fabric for (my_rank, num_processes), and delegate to Execute. A parse
// failure short-circuits with status error and no experiments.
func (c *Controller) ExecuteJobBlob(ctx context.Context, blob []byte) model.Result {
	start := time.Now()

	job, err := model.ParseJob(blob)
	if err != nil {
		return model.Result{
			Status:  model.StatusError,
			Message: err.Error(),
		}
	}

	result := c.Execute(ctx, job.Circuits, job.Noise, job.Config)
	if result.Metadata == nil {
		result.Metadata = map[string]any{}
	}
	result.Metadata["time_taken"] = time.Since(start).Seconds()
	result.JobID = job.ID
	result.Header = job.Header
	return result
}

// requiredMemoryMB binds the backend's RequiredMemoryMB to a circuit/noise
// pair, for consumption by the distribution and experiment planners.
func (c *Controller) requiredMemoryMB(circuit model.Circuit, _ model.NoiseModel) int {
	return c.be.RequiredMemoryMB(circuit.NumQubits, circuit.Ops)
}

// Execute computes this rank's DistributionState, plans experiment-level
// parallelism, runs every local experiment, and reduces their statuses into
// one batch outcome.
func (c *Controller) Execute(ctx context.Context, circuits []model.Circuit, noise model.NoiseModel, cfg model.ParallelismConfig) model.Result {
	myRank := c.fab.Rank()
	numProcesses := c.fab.Size()

	maxMemoryMB := cfg.MaxMemoryMB
	if maxMemoryMB == 0 {
		if hostMB, err := c.mem.HostMemoryMB(ctx); err == nil {
			maxMemoryMB = int(hostMB / 2)
		} else {
			c.log.Warn().Err(err).Msg("controller: host memory probe failed, leaving max_memory_mb unbounded")
		}
	}
	cfg.MaxMemoryMB = maxMemoryMB

	if cfg.MaxParallelThreads == 0 {
		cfg.MaxParallelThreads = runtime.NumCPU()
	}

	dist := c.dist.Plan(circuits, noise, c.requiredMemoryMB, myRank, numProcesses, maxMemoryMB)

	local := circuits[dist.ExperimentsBegin:dist.ExperimentsEnd]

	result := model.Result{
		Results:  make([]model.ExperimentResult, len(local)),
		Metadata: map[string]any{},
	}

	var maxQubits int
	for _, circ := range local {
		if circ.NumQubits > maxQubits {
			maxQubits = circ.NumQubits
		}
	}

	for _, circ := range local {
		if err := validator.CheckOpSet(circ, noise, c.be); err != nil {
			return model.Result{
				Status:   model.StatusError,
				Message:  err.Error(),
				Metadata: result.Metadata,
			}
		}
		if err := validator.CheckMemory(circ, noise, c.be, maxMemoryMB, dist.NumProcessPerExperiment); err != nil {
			return model.Result{
				Status:   model.StatusError,
				Message:  err.Error(),
				Metadata: result.Metadata,
			}
		}
	}

	parallelExperiments := 1
	if cfg.ExplicitParallelization {
		parallelExperiments = atLeastOne(cfg.ExplicitParallelExperiments)
	} else if len(local) > 0 {
		n, err := c.plan.PlanExperiments(local, noise, c.requiredMemoryMB, cfg, dist.NumProcessPerExperiment, numProcesses)
		if err != nil {
			return model.Result{
				Status:   model.StatusError,
				Message:  err.Error(),
				Metadata: result.Metadata,
			}
		}
		parallelExperiments = n
	}

	maxThreads := atLeastOne(cfg.MaxParallelThreads)
	nested := parallelExperiments > 1 && parallelExperiments < maxThreads

	result.Metadata["omp_enabled"] = maxThreads > 1
	result.Metadata["parallel_experiments"] = parallelExperiments
	result.Metadata["max_memory_mb"] = maxMemoryMB
	result.Metadata["num_distributed_processes"] = numProcesses
	result.Metadata["distributed_rank"] = myRank
	result.Metadata["distributed_experiments"] = dist.DistributedExperiments
	result.Metadata["group_id"] = dist.GroupID
	result.Metadata["rank_in_group"] = dist.RankInGroup
	result.Metadata["max_qubits"] = maxQubits
	if nested {
		result.Metadata["omp_nested"] = true
	}

	c.log.Info().
		Int("local_experiments", len(local)).
		Int("parallel_experiments", parallelExperiments).
		Int("group_id", dist.GroupID).
		Msg("controller: distribution and parallelism plan computed")

	c.runLocalExperiments(ctx, local, noise, cfg, dist, parallelExperiments, nested, result.Results)

	result.Status, result.Message = reduceStatus(result.Results)
	return result
}

// runLocalExperiments runs every experiment in local, writing into results
// at the matching index. When parallelExperiments>1 it uses a bounded
// parallel-for with exactly parallelExperiments workers, each cloning the
// noise model privately; otherwise it runs sequentially in index order. The
// duplicated code paths are intentional: the nested form carries pool and
// semaphore setup overhead even when its own guard would bypass it.
func (c *Controller) runLocalExperiments(ctx context.Context, local []model.Circuit, noise model.NoiseModel, cfg model.ParallelismConfig, dist model.DistributionState, parallelExperiments int, nested bool, results []model.ExperimentResult) {
	if parallelExperiments > 1 {
		setNesting(nested)
		defer setNesting(false)

		pool := engine.NewPool(parallelExperiments)
		_ = pool.Run(ctx, len(local), func(ctx context.Context, i int) {
			results[i] = c.run.Run(ctx, local[i], noise.Clone(), cfg, cfg.Channels, parallelExperiments, dist)
		})
		return
	}

	for i, circ := range local {
		results[i] = c.run.Run(ctx, circ, noise.Clone(), cfg, cfg.Channels, parallelExperiments, dist)
	}
}

// reduceStatus reduces per-experiment statuses into one batch outcome: all
// completed -> completed; some errored -> partial_completed with a message
// listing every failure by index; none completed (and at least one ran) ->
// error.
func reduceStatus(results []model.ExperimentResult) (model.Status, string) {
	if len(results) == 0 {
		return model.StatusCompleted, ""
	}

	completed, errored := 0, 0
	var message string
	for i, r := range results {
		if r.Status == model.StatusCompleted {
			completed++
			continue
		}
		errored++
		message += " [Experiment " + strconv.Itoa(i) + "] " + r.Message
	}

	switch {
	case errored == 0:
		return model.StatusCompleted, ""
	case completed == 0:
		return model.StatusError, message
	default:
		return model.StatusPartialCompleted, message
	}
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
