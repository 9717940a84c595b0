// Package backend declares the capability object the controller dispatches
// work to: the abstract per-shot simulator. The original design parameterizes
// the controller on a template backend type with a per-shot execution
// method; the Go rendering keeps the controller non-polymorphic and instead
// passes a Backend value around, so no component here needs a type switch or
// a registry.
package backend

import (
	"context"

	"github.com/aerctl/aerctl/model"
)

// Backend is the pluggable subsystem that actually evolves shots of a
// circuit under a noise model and reports the supported instruction set and
// its own memory appetite. The controller never interprets Backend's
// internals beyond these four methods.
type Backend interface {
	// OpSet returns the instruction kinds this backend can execute.
	OpSet() model.OpSet

	// Name returns a human-readable identifier, used in validation and
	// error messages.
	Name() string

	// RequiredMemoryMB estimates the memory, in MiB, needed to simulate a
	// circuit with the given qubit count under the given op-set.
	RequiredMemoryMB(numQubits int, ops model.OpSet) int

	// Run evolves shots independent trajectories of circuit under noise,
	// honoring which result channels the caller requested, seeded with seed
	// (the runner passes circuit.Seed+i to shot bucket i). Run must be safe to call
	// concurrently from distinct goroutines as long as each call is given
	// its own NoiseModel clone (the controller guarantees this).
	Run(ctx context.Context, circuit model.Circuit, noise model.NoiseModel, channels model.ResultChannels, shots int, seed int64) (model.ResultData, error)
}
