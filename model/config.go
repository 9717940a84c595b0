package model

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// ParallelismConfig is the decoded form of a job's free-form `config` map
// (see the job document's recognized keys). A value of 0 for any of
// MaxParallelThreads, MaxParallelExperiments, MaxParallelShots, or
// MaxMemoryMB means "choose automatically".
type ParallelismConfig struct {
	MaxParallelThreads     int     `mapstructure:"max_parallel_threads"`
	MaxParallelExperiments int     `mapstructure:"max_parallel_experiments"`
	MaxParallelShots       int     `mapstructure:"max_parallel_shots"`
	MaxMemoryMB            int     `mapstructure:"max_memory_mb"`
	ValidationThreshold    float64 `mapstructure:"validation_threshold"`
	TruncateQubits         bool    `mapstructure:"truncate_qubits"`
	AcceptDistributedResults bool  `mapstructure:"accept_distributed_results"`

	// ExplicitParallelization and the three overrides below are set when the
	// job document carries any of the `_parallel_*` debug keys; presence of
	// any one of them forces all three to be honored verbatim (each coerced
	// to >= 1).
	ExplicitParallelization bool
	ExplicitParallelExperiments int
	ExplicitParallelShots       int
	ExplicitParallelStateUpdate int

	// Channels selects which ExperimentResult data channels the backend
	// should populate (§6 ExperimentResult interface: counts/snapshots
	// default on, memory/register default off).
	Channels ResultChannels
}

// rawConfig mirrors the job document's `config` map before the explicit
// overrides (which are a presence/absence signal, not ordinary defaults) are
// folded in.
type rawConfig struct {
	MaxParallelThreads       int     `mapstructure:"max_parallel_threads"`
	MaxParallelExperiments   int     `mapstructure:"max_parallel_experiments"`
	MaxParallelShots         int     `mapstructure:"max_parallel_shots"`
	MaxMemoryMB              int     `mapstructure:"max_memory_mb"`
	ValidationThreshold      float64 `mapstructure:"validation_threshold"`
	TruncateQubits           bool    `mapstructure:"truncate_qubits"`
	AcceptDistributedResults bool    `mapstructure:"accept_distributed_results"`

	ParallelExperiments   *int `mapstructure:"_parallel_experiments"`
	ParallelShots         *int `mapstructure:"_parallel_shots"`
	ParallelStateUpdate   *int `mapstructure:"_parallel_state_update"`

	Counts    *bool `mapstructure:"counts"`
	Snapshots *bool `mapstructure:"snapshots"`
	Memory    *bool `mapstructure:"memory"`
	Register  *bool `mapstructure:"register"`
}

// DecodeParallelismConfig decodes a job's free-form config map into a typed
// ParallelismConfig, applying the documented defaults and the
// `_parallel_*` debug-override contract.
func DecodeParallelismConfig(raw map[string]any) (ParallelismConfig, error) {
	cfg := rawConfig{
		MaxParallelExperiments: 1,
		ValidationThreshold:    1e-8,
	}

	if raw != nil {
		if err := mapstructure.Decode(raw, &cfg); err != nil {
			return ParallelismConfig{}, errors.Wrap(err, "decode parallelism config")
		}
	}

	out := ParallelismConfig{
		MaxParallelThreads:       cfg.MaxParallelThreads,
		MaxParallelExperiments:   cfg.MaxParallelExperiments,
		MaxParallelShots:         cfg.MaxParallelShots,
		MaxMemoryMB:              cfg.MaxMemoryMB,
		ValidationThreshold:      cfg.ValidationThreshold,
		TruncateQubits:           cfg.TruncateQubits,
		AcceptDistributedResults: cfg.AcceptDistributedResults,
	}

	if cfg.ParallelExperiments != nil || cfg.ParallelShots != nil || cfg.ParallelStateUpdate != nil {
		out.ExplicitParallelization = true
		out.ExplicitParallelExperiments = coerceAtLeastOne(cfg.ParallelExperiments)
		out.ExplicitParallelShots = coerceAtLeastOne(cfg.ParallelShots)
		out.ExplicitParallelStateUpdate = coerceAtLeastOne(cfg.ParallelStateUpdate)
	}

	out.Channels = ResultChannels{
		Counts:    boolOrDefault(cfg.Counts, true),
		Snapshots: boolOrDefault(cfg.Snapshots, true),
		Memory:    boolOrDefault(cfg.Memory, false),
		Register:  boolOrDefault(cfg.Register, false),
	}

	return out, nil
}

func coerceAtLeastOne(v *int) int {
	if v == nil || *v < 1 {
		return 1
	}
	return *v
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
