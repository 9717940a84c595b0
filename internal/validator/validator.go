// Package validator implements the op-set and memory checks a circuit (and
// its noise model) must pass before a backend may run it.
package validator

import (
	"github.com/pkg/errors"

	"github.com/aerctl/aerctl/backend"
	"github.com/aerctl/aerctl/model"
)

// ErrValidation classifies op-set and memory validation failures (§7
// ValidationError) for errors.Is callers.
var ErrValidation = errors.New("validation error")

// CheckOpSet reports whether circuit and noise are both supported by be's
// op-set, returning a descriptive error naming the backend, the failing
// side (circuit or noise), and the unsupported ops when they are not.
func CheckOpSet(circuit model.Circuit, noise model.NoiseModel, be backend.Backend) error {
	beOps := be.OpSet()

	if !beOps.Contains(circuit.Ops) {
		diff := beOps.Difference(circuit.Ops)
		return errors.Wrapf(ErrValidation, "backend %q does not support circuit instructions: %v", be.Name(), diff.Labels())
	}

	if !noise.IsIdeal && !beOps.Contains(noise.Ops) {
		diff := beOps.Difference(noise.Ops)
		return errors.Wrapf(ErrValidation, "backend %q does not support noise instructions: %v", be.Name(), diff.Labels())
	}

	return nil
}

// CheckOpSetOK is the boolean-surfaced variant of CheckOpSet, for callers
// that want a predicate instead of an error (§4.4: "optionally, the failure
// may be surfaced as a boolean instead of an exception").
func CheckOpSetOK(circuit model.Circuit, noise model.NoiseModel, be backend.Backend) bool {
	return CheckOpSet(circuit, noise, be) == nil
}

// CheckMemory requires a circuit's per-process memory footprint to fit the
// configured budget. maxMemoryMB<=0 disables the check (§4.4).
func CheckMemory(circuit model.Circuit, noise model.NoiseModel, be backend.Backend, maxMemoryMB, numProcessPerExperiment int) error {
	if maxMemoryMB <= 0 {
		return nil
	}
	if numProcessPerExperiment < 1 {
		numProcessPerExperiment = 1
	}

	required := be.RequiredMemoryMB(circuit.NumQubits, circuit.Ops) / numProcessPerExperiment
	if required > maxMemoryMB {
		return errors.Wrapf(ErrValidation, "circuit %q needs %d MiB on backend %q, budget is %d MiB", circuit.Name, required, be.Name(), maxMemoryMB)
	}
	return nil
}
