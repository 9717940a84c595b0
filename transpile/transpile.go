// Package transpile provides the two optimization passes CircuitRunner
// invokes before dispatching a circuit to a backend: barrier reduction
// (always) and qubit truncation (when the job's config requests it). Full
// transpilation is out of scope for the controller; these passes operate
// only on the data the core data model exposes, an op-set fingerprint and a
// qubit count, not an instruction stream.
package transpile

import "github.com/aerctl/aerctl/model"

// Pass is a single optimization step applied to a circuit/noise pair before
// it reaches the backend. SetConfig is called once per job with the decoded
// ParallelismConfig; OptimizeCircuit is called once per experiment.
type Pass interface {
	SetConfig(cfg model.ParallelismConfig)
	OptimizeCircuit(circuit model.Circuit, noise model.NoiseModel, backendOps model.OpSet) (model.Circuit, model.NoiseModel)
}

// multiQubitOps is the fixed set of instruction kinds that qubit truncation
// treats as requiring more than one live qubit. Anything outside this set
// (single-qubit gates, measurement, reset) can run correctly on a
// single-qubit circuit.
var multiQubitOps = model.NewOpSet("cx", "cz", "cy", "swap", "ccx", "cswap", "rxx", "ryy", "rzz", "ecr")

// BarrierReductionPass collapses barrier markers out of a circuit's op-set
// fingerprint. A circuit's Ops field is already a set rather than an
// instruction sequence, so there is nothing to deduplicate positionally;
// the pass's real job is to strip "barrier" before validation, since a
// backend's advertised op-set never needs to include a no-op scheduling
// hint. It always runs, per §4.5 step 2.
type BarrierReductionPass struct {
	cfg model.ParallelismConfig
}

// NewBarrierReductionPass returns an unconfigured barrier reduction pass.
func NewBarrierReductionPass() *BarrierReductionPass { return &BarrierReductionPass{} }

func (p *BarrierReductionPass) SetConfig(cfg model.ParallelismConfig) { p.cfg = cfg }

func (p *BarrierReductionPass) OptimizeCircuit(circuit model.Circuit, noise model.NoiseModel, _ model.OpSet) (model.Circuit, model.NoiseModel) {
	if _, ok := circuit.Ops["barrier"]; !ok {
		return circuit, noise
	}
	ops := make(model.OpSet, len(circuit.Ops))
	for op := range circuit.Ops {
		if op == "barrier" {
			continue
		}
		ops[op] = struct{}{}
	}
	circuit.Ops = ops
	return circuit, noise
}

// QubitTruncationPass shrinks a circuit's declared qubit count to 1 when
// its op-set contains no multi-qubit instruction, since a run with only
// single-qubit gates and measurement never entangles qubits and a backend
// can simulate it with a single-qubit state. It only runs when the job's
// TruncateQubits flag is set (§4.5 step 3).
type QubitTruncationPass struct {
	cfg model.ParallelismConfig
}

// NewQubitTruncationPass returns an unconfigured qubit truncation pass.
func NewQubitTruncationPass() *QubitTruncationPass { return &QubitTruncationPass{} }

func (p *QubitTruncationPass) SetConfig(cfg model.ParallelismConfig) { p.cfg = cfg }

func (p *QubitTruncationPass) OptimizeCircuit(circuit model.Circuit, noise model.NoiseModel, _ model.OpSet) (model.Circuit, model.NoiseModel) {
	if !p.cfg.TruncateQubits || circuit.NumQubits <= 1 {
		return circuit, noise
	}
	for op := range circuit.Ops {
		if _, ok := multiQubitOps[op]; ok {
			return circuit, noise
		}
	}
	circuit.NumQubits = 1
	return circuit, noise
}
