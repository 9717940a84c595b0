// Package fabric declares the optional distributed collective the
// controller relies on: a rank/size pair and a MIN all-reduce over uint64.
// Its absence is indistinguishable from a 1-rank fabric, so every consumer
// of Fabric gets a working single-process implementation for free.
package fabric

import "context"

// Fabric is the distributed collective consumed by MemoryProbe and
// BatchController. A real implementation sits on top of MPI, gRPC, or
// any other rank-and-size transport; the controller only ever needs these
// three operations.
type Fabric interface {
	// Rank returns this process's rank in [0, Size()).
	Rank() int

	// Size returns the total number of cooperating processes.
	Size() int

	// AllReduceMin performs a collective MIN reduction of v across every
	// rank, returning the minimum value observed by any rank.
	AllReduceMin(ctx context.Context, v uint64) (uint64, error)
}

// single is the zero-overhead Fabric used whenever no distributed transport
// is configured: rank 0 of 1, and every reduction is the identity.
type single struct{}

// Single returns the 1-rank Fabric used when no distributed fabric is
// present. Every DistributionState computed against it collapses to
// num_processes=1, a single group owning every experiment.
func Single() Fabric { return single{} }

func (single) Rank() int { return 0 }

func (single) Size() int { return 1 }

func (single) AllReduceMin(_ context.Context, v uint64) (uint64, error) { return v, nil }
