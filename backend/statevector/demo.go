// Package statevector provides a minimal reference Backend used by the
// aerctl command. It is not a
// quantum state simulator, since simulation algorithms are explicitly out
// of the controller's scope, only a deterministic stand-in that exercises
// the backend.Backend contract end to end: advertising an op-set, a memory
// estimate, and producing shot counts seeded the way the real qiskit-aer
// state-vector/stabilizer/matrix-product-state backends would be.
package statevector

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/aerctl/aerctl/backend"
	"github.com/aerctl/aerctl/model"
)

// Backend is a reference implementation of backend.Backend. Each shot
// samples a uniformly random computational-basis outcome over NumQubits
// bits using a seeded PRNG, which is enough to exercise seeding,
// concurrency, and combine semantics without implementing real state
// evolution.
type Backend struct {
	ops           model.OpSet
	bytesPerState int
}

var _ backend.Backend = (*Backend)(nil)

// New returns a reference Backend supporting the given op-set. bytesPerAmp
// controls the per-qubit memory estimate (2^n amplitudes x bytesPerAmp),
// mirroring how a real state-vector backend's footprint doubles per qubit.
func New(ops model.OpSet, bytesPerAmp int) *Backend {
	if bytesPerAmp <= 0 {
		bytesPerAmp = 16 // complex128
	}
	return &Backend{ops: ops, bytesPerState: bytesPerAmp}
}

func (b *Backend) OpSet() model.OpSet { return b.ops }

func (b *Backend) Name() string { return "statevector-demo" }

func (b *Backend) RequiredMemoryMB(numQubits int, _ model.OpSet) int {
	if numQubits <= 0 {
		return 1
	}
	bytes := (uint64(1) << uint(numQubits)) * uint64(b.bytesPerState)
	mb := bytes / (1024 * 1024)
	if mb < 1 {
		mb = 1
	}
	return int(mb)
}

func (b *Backend) Run(ctx context.Context, circuit model.Circuit, _ model.NoiseModel, channels model.ResultChannels, shots int, seed int64) (model.ResultData, error) {
	if shots <= 0 {
		return model.ResultData{}, nil
	}

	rng := rand.New(rand.NewSource(seed))
	numQubits := circuit.NumQubits
	if numQubits <= 0 {
		numQubits = 1
	}

	var data model.ResultData
	if channels.Counts {
		data.Counts = make(map[string]int64, shots)
	}
	if channels.Memory {
		data.Memory = make([]string, 0, shots)
	}
	if channels.Register {
		data.Register = make([]string, 0, shots)
	}

	for s := 0; s < shots; s++ {
		select {
		case <-ctx.Done():
			return model.ResultData{}, ctx.Err()
		default:
		}

		outcome := rng.Int63n(int64(1) << uint(numQubits))
		key := fmt.Sprintf("%0*b", numQubits, outcome)

		if channels.Counts {
			data.Counts[key]++
		}
		if channels.Memory {
			data.Memory = append(data.Memory, key)
		}
		if channels.Register {
			data.Register = append(data.Register, key)
		}
	}

	if channels.Snapshots {
		data.Snapshots = map[string][]float64{
			"probabilities": uniformProbabilities(numQubits),
		}
	}

	return data, nil
}

func uniformProbabilities(numQubits int) []float64 {
	n := int64(1) << uint(numQubits)
	probs := make([]float64, n)
	p := 1.0 / float64(n)
	for i := range probs {
		probs[i] = p
	}
	return probs
}
