package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeParallelismConfigDefaults(t *testing.T) {
	cfg, err := DecodeParallelismConfig(nil)
	require.NoError(t, err)

	require.Equal(t, 1, cfg.MaxParallelExperiments)
	require.InDelta(t, 1e-8, cfg.ValidationThreshold, 1e-12)
	require.False(t, cfg.ExplicitParallelization)
}

func TestDecodeParallelismConfigExplicitOverrides(t *testing.T) {
	raw := map[string]any{
		"max_parallel_threads": 8,
		"_parallel_shots":      0,
	}

	cfg, err := DecodeParallelismConfig(raw)
	require.NoError(t, err)

	require.True(t, cfg.ExplicitParallelization)
	require.Equal(t, 1, cfg.ExplicitParallelShots, "zero override coerces to 1")
	require.Equal(t, 1, cfg.ExplicitParallelExperiments, "unset override defaults to 1")
	require.Equal(t, 8, cfg.MaxParallelThreads)
}

func TestParseJobRejectsNonPositiveShots(t *testing.T) {
	blob := []byte(`{"circuits":[{"name":"c0","shots":0}]}`)

	_, err := ParseJob(blob)
	require.Error(t, err)
}

func TestParseJobDefaultsIDAndNoise(t *testing.T) {
	blob := []byte(`{"circuits":[{"name":"c0","shots":10,"ops":["h"]}]}`)

	job, err := ParseJob(blob)
	require.NoError(t, err)

	require.NotEmpty(t, job.ID)
	require.True(t, job.Noise.IsIdeal)
	require.Len(t, job.Circuits, 1)
	require.Equal(t, 10, job.Circuits[0].Shots)
}
