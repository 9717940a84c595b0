// Package distribution implements DistributionPlanner: splitting experiments
// and shots across processes, and computing the process-per-experiment
// factor a circuit's memory footprint demands.
package distribution

import (
	"github.com/rs/zerolog"

	"github.com/aerctl/aerctl/model"
)

// RequiredMemoryFunc estimates a circuit's memory footprint under a noise
// model, in MiB; it is the backend's RequiredMemoryMB bound to the circuit's
// qubit count and effective op-set.
type RequiredMemoryFunc func(c model.Circuit, noise model.NoiseModel) int

// Planner computes a DistributionState for one rank.
type Planner struct {
	log zerolog.Logger
}

// New returns a Planner. A zero-value logger is a disabled logger.
func New(log zerolog.Logger) *Planner {
	return &Planner{log: log}
}

// Plan computes the DistributionState this rank should execute under: given
// the local circuit list, a noise model, a per-circuit memory estimator,
// and this rank's place in the global fabric, decide which experiments and
// shot slices it owns.
func (p *Planner) Plan(circuits []model.Circuit, noise model.NoiseModel, requiredMemoryMB RequiredMemoryFunc, myRank, numProcesses, maxMemoryMB int) model.DistributionState {
	numProcessPerExperiment := 1
	if maxMemoryMB > 0 {
		for _, c := range circuits {
			m := requiredMemoryMB(c, noise)
			if m <= maxMemoryMB {
				continue
			}
			factor := ceilDiv(m, maxMemoryMB)
			if factor > numProcessPerExperiment {
				numProcessPerExperiment = factor
			}
		}
	}

	distributedExperiments := numProcesses / numProcessPerExperiment
	if distributedExperiments < 1 {
		distributedExperiments = 1
	}
	groupID := myRank / numProcessPerExperiment
	rankInGroup := myRank % numProcessPerExperiment

	state := model.DistributionState{
		NumProcesses:            numProcesses,
		MyRank:                  myRank,
		NumProcessPerExperiment: numProcessPerExperiment,
		GroupID:                 groupID,
		RankInGroup:             rankInGroup,
	}

	n := len(circuits)
	if n == 0 {
		state.DistributedExperiments = distributedExperiments
		state.DistributedShots = 1
		return state
	}

	if n < distributedExperiments {
		// Case A: fewer circuits than groups. Each circuit is shared by
		// distributedExperiments/n groups acting as shot-ranks; the
		// quotient and remainder mirror Go's own integer division rules,
		// so the extra shot-rank goes to the lowest group_id%n values.
		// distributed_experiments is read here, pre-clamp, to compute the
		// shot-rank fields, and only clamped to n afterward.
		experimentsBegin := groupID % n
		state.ExperimentsBegin = experimentsBegin
		state.ExperimentsEnd = experimentsBegin + 1
		state.DistributedShots = distributedExperiments / n
		if experimentsBegin < distributedExperiments%n {
			state.DistributedShots++
		}
		state.DistributedShotsRank = groupID / n

		p.log.Debug().
			Int("group_id", groupID).
			Int("experiments_begin", experimentsBegin).
			Int("distributed_shots_pre_clamp", state.DistributedShots).
			Msg("distribution: case A, fewer circuits than groups")

		state.DistributedExperiments = n
		return state
	}

	// Case B: experiments_begin/end split |circuits| into distributedExperiments
	// contiguous, non-overlapping ranges via floor division.
	state.DistributedExperiments = distributedExperiments
	state.ExperimentsBegin = n * groupID / distributedExperiments
	state.ExperimentsEnd = n * (groupID + 1) / distributedExperiments
	state.DistributedShots = 1
	state.DistributedShotsRank = 0

	p.log.Debug().
		Int("group_id", groupID).
		Int("experiments_begin", state.ExperimentsBegin).
		Int("experiments_end", state.ExperimentsEnd).
		Msg("distribution: case B, experiments partitioned across groups")

	return state
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

// LocalShots returns the r-th of D floor-split shares of S shots:
// floor(S*(r+1)/D) - floor(S*r/D). Summing the shares for r in [0, D) yields
// exactly S.
func LocalShots(shots, distributedShots, shotsRank int) int {
	if distributedShots <= 1 {
		return shots
	}
	hi := shots * (shotsRank + 1) / distributedShots
	lo := shots * shotsRank / distributedShots
	return hi - lo
}
