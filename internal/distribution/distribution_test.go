package distribution

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/aerctl/aerctl/model"
)

func circuits(n int) []model.Circuit {
	cs := make([]model.Circuit, n)
	for i := range cs {
		cs[i] = model.Circuit{Name: "c", Shots: 100}
	}
	return cs
}

func fixedMemory(mb int) RequiredMemoryFunc {
	return func(model.Circuit, model.NoiseModel) int { return mb }
}

func TestPlanCaseBFourProcessesTwoCircuitsTwoPerGroup(t *testing.T) {
	p := New(zerolog.Nop())
	cs := circuits(2)

	s0 := p.Plan(cs, model.IdealNoise(), fixedMemory(150), 0, 4, 100)
	s1 := p.Plan(cs, model.IdealNoise(), fixedMemory(150), 1, 4, 100)
	s2 := p.Plan(cs, model.IdealNoise(), fixedMemory(150), 2, 4, 100)
	s3 := p.Plan(cs, model.IdealNoise(), fixedMemory(150), 3, 4, 100)

	require.Equal(t, 2, s0.NumProcessPerExperiment)
	require.Equal(t, 2, s0.DistributedExperiments)
	require.Equal(t, 0, s0.ExperimentsBegin)
	require.Equal(t, 1, s0.ExperimentsEnd)
	require.Equal(t, 0, s1.ExperimentsBegin)
	require.Equal(t, 1, s2.ExperimentsBegin)
	require.Equal(t, 1, s3.ExperimentsBegin)
	require.Equal(t, 1, s0.DistributedShots)
}

func TestPlanNumProcessPerExperimentFromMemory(t *testing.T) {
	p := New(zerolog.Nop())
	cs := circuits(1)

	s0 := p.Plan(cs, model.IdealNoise(), fixedMemory(150), 0, 2, 100)
	s1 := p.Plan(cs, model.IdealNoise(), fixedMemory(150), 1, 2, 100)

	require.Equal(t, 2, s0.NumProcessPerExperiment)
	require.Equal(t, 1, s0.DistributedExperiments)
	require.Equal(t, 0, s0.GroupID)
	require.Equal(t, 0, s0.RankInGroup)
	require.Equal(t, 1, s1.RankInGroup)
	require.Equal(t, 1, s0.DistributedShots)
}

func TestPlanCaseASixProcessesTwoCircuits(t *testing.T) {
	p := New(zerolog.Nop())
	cs := circuits(2)

	states := make([]model.DistributionState, 6)
	for r := 0; r < 6; r++ {
		states[r] = p.Plan(cs, model.IdealNoise(), fixedMemory(10), r, 6, 0)
	}

	for _, s := range states {
		require.Equal(t, 2, s.DistributedExperiments, "clamped to |circuits|")
		require.Equal(t, 3, s.DistributedShots)
	}

	shotsByCircuit := map[int][]int{}
	for _, s := range states {
		shotsByCircuit[s.ExperimentsBegin] = append(shotsByCircuit[s.ExperimentsBegin], LocalShots(100, s.DistributedShots, s.DistributedShotsRank))
	}

	for circuit, shares := range shotsByCircuit {
		require.Len(t, shares, 3, "circuit %d should have 3 shot-ranks", circuit)
		sum := 0
		for _, sh := range shares {
			sum += sh
		}
		require.Equal(t, 100, sum)
	}
}

func TestPlanCaseAUnevenGroupsPerCircuitGetsRemainderShotRank(t *testing.T) {
	p := New(zerolog.Nop())
	cs := circuits(2)

	// 5 processes, 2 circuits: distributed_experiments=5, quotient 2,
	// remainder 1. group_id%2==0 (groups 0,2,4) own circuit 0 with an extra
	// shot-rank (3 total); group_id%2==1 (groups 1,3) own circuit 1 with no
	// extra (2 total).
	states := make([]model.DistributionState, 5)
	for r := 0; r < 5; r++ {
		states[r] = p.Plan(cs, model.IdealNoise(), fixedMemory(10), r, 5, 0)
	}

	shotsByCircuit := map[int][]int{}
	for _, s := range states {
		shotsByCircuit[s.ExperimentsBegin] = append(shotsByCircuit[s.ExperimentsBegin], LocalShots(100, s.DistributedShots, s.DistributedShotsRank))
	}

	require.Len(t, shotsByCircuit[0], 3)
	require.Len(t, shotsByCircuit[1], 2)

	for circuit, shares := range shotsByCircuit {
		sum := 0
		for _, sh := range shares {
			sum += sh
		}
		require.Equal(t, 100, sum, "circuit %d: shot-rank shares must sum to the full shot count", circuit)
	}
}

func TestLocalShotsSplitsExactlyAndFavorsHighIndex(t *testing.T) {
	require.Equal(t, 250, LocalShots(1000, 4, 0))
	require.Equal(t, 250, LocalShots(1000, 4, 3))

	// floor(S*(r+1)/D) - floor(S*r/D): the remainder lands on the
	// highest-indexed shot-rank. splitBuckets (§4.5 step 7) instead gives
	// the remainder to the lowest-indexed bucket; the two splits are
	// deliberately different formulas for different levels.
	require.Equal(t, 250, LocalShots(1001, 4, 0))
	require.Equal(t, 250, LocalShots(1001, 4, 1))
	require.Equal(t, 250, LocalShots(1001, 4, 2))
	require.Equal(t, 251, LocalShots(1001, 4, 3))

	sum := 0
	for r := 0; r < 4; r++ {
		sum += LocalShots(1001, 4, r)
	}
	require.Equal(t, 1001, sum)
}

