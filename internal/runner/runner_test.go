package runner

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	plannerpkg "github.com/aerctl/aerctl/internal/planner"
	"github.com/aerctl/aerctl/model"
)

type recordingBackend struct {
	mu    sync.Mutex
	seeds []int64
	shots []int
	fail  map[int64]bool
}

func (b *recordingBackend) OpSet() model.OpSet                 { return model.NewOpSet("h", "cx", "measure") }
func (b *recordingBackend) Name() string                       { return "recording" }
func (b *recordingBackend) RequiredMemoryMB(int, model.OpSet) int { return 1 }

func (b *recordingBackend) Run(_ context.Context, _ model.Circuit, _ model.NoiseModel, _ model.ResultChannels, shots int, seed int64) (model.ResultData, error) {
	b.mu.Lock()
	b.seeds = append(b.seeds, seed)
	b.shots = append(b.shots, shots)
	fail := b.fail != nil && b.fail[seed]
	b.mu.Unlock()

	if fail {
		return model.ResultData{}, errBoom
	}
	return model.ResultData{Counts: map[string]int64{"0": int64(shots)}}, nil
}

var errBoom = errBoomType{}

type errBoomType struct{}

func (errBoomType) Error() string { return "boom" }

func TestRunOneThousandShotsFourWayParallel(t *testing.T) {
	be := &recordingBackend{}
	p := plannerpkg.New(zerolog.Nop())
	r := New(be, p, nil, zerolog.Nop())

	circuit := model.Circuit{Name: "c0", Shots: 1000, Seed: 7, Ops: model.NewOpSet("h")}
	cfg := model.ParallelismConfig{MaxParallelThreads: 4, MaxMemoryMB: 1024}
	dist := model.DistributionState{NumProcessPerExperiment: 1, DistributedShots: 1}

	result := r.Run(context.Background(), circuit, model.IdealNoise(), cfg, model.DefaultResultChannels(), 1, dist)

	require.Equal(t, model.StatusCompleted, result.Status)
	require.Equal(t, 1000, result.Shots)
	require.Equal(t, int64(1000), result.Data.Counts["0"])
	require.ElementsMatch(t, []int64{7, 8, 9, 10}, be.seeds)
	require.ElementsMatch(t, []int{250, 250, 250, 250}, be.shots)
}

func TestRunRemainderGoesToLowestIndexedBuckets(t *testing.T) {
	subshots := splitBuckets(1001, 4)
	require.Equal(t, []int{251, 250, 250, 250}, subshots)
}

func TestRunCapturesBackendErrorWithoutPanicking(t *testing.T) {
	be := &recordingBackend{fail: map[int64]bool{7: true}}
	p := plannerpkg.New(zerolog.Nop())
	r := New(be, p, nil, zerolog.Nop())

	circuit := model.Circuit{Name: "c0", Shots: 100, Seed: 7, Ops: model.NewOpSet("h")}
	cfg := model.ParallelismConfig{MaxParallelThreads: 1, MaxMemoryMB: 1024}
	dist := model.DistributionState{NumProcessPerExperiment: 1, DistributedShots: 1}

	result := r.Run(context.Background(), circuit, model.IdealNoise(), cfg, model.DefaultResultChannels(), 1, dist)

	require.Equal(t, model.StatusError, result.Status)
	require.NotEmpty(t, result.Message)
}

func TestRunExplicitParallelizationBypassesPlanner(t *testing.T) {
	be := &recordingBackend{}
	p := plannerpkg.New(zerolog.Nop())
	r := New(be, p, nil, zerolog.Nop())

	circuit := model.Circuit{Name: "c0", Shots: 100, Seed: 1, Ops: model.NewOpSet("h")}
	cfg := model.ParallelismConfig{
		MaxParallelThreads:          8,
		ExplicitParallelization:     true,
		ExplicitParallelShots:       2,
		ExplicitParallelStateUpdate: 1,
	}
	dist := model.DistributionState{NumProcessPerExperiment: 1, DistributedShots: 1}

	result := r.Run(context.Background(), circuit, model.IdealNoise(), cfg, model.DefaultResultChannels(), 1, dist)

	require.Equal(t, model.StatusCompleted, result.Status)
	require.Equal(t, 2, result.Metadata["parallel_shots"])
}
