package model

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Job is a batch of circuits sharing one noise model and one configuration.
type Job struct {
	ID       string
	Circuits []Circuit
	Noise    NoiseModel
	Config   ParallelismConfig
	Header   map[string]any
}

// jobDocument is the wire shape of a job: a plain JSON object whose
// `config` map is decoded separately via DecodeParallelismConfig, and whose
// `circuits` carry only op labels, since op sequences are opaque to the
// controller (see backend.Backend).
type jobDocument struct {
	ID       string           `json:"qobj_id"`
	Header   map[string]any   `json:"header"`
	Config   map[string]any   `json:"config"`
	Circuits []circuitDocument `json:"circuits"`
}

type circuitDocument struct {
	Name      string         `json:"name"`
	NumQubits int            `json:"num_qubits"`
	Ops       []string       `json:"ops"`
	Shots     int            `json:"shots"`
	Seed      int64          `json:"seed"`
	Header    map[string]any `json:"header"`
}

type noiseDocument struct {
	Ops     []string `json:"ops"`
	IsIdeal bool     `json:"is_ideal"`
}

// ErrParse wraps any failure to decode a job document, so callers can
// classify it with errors.Is without string matching (§7 ParseError).
var ErrParse = errors.New("job parse error")

// ParseJob decodes a raw job document (§6). A missing id is filled with a
// generated UUID4, and a missing noise model defaults to ideal.
func ParseJob(blob []byte) (Job, error) {
	var doc jobDocument
	if err := json.Unmarshal(blob, &doc); err != nil {
		return Job{}, errors.Wrap(ErrParse, err.Error())
	}

	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}

	cfg, err := DecodeParallelismConfig(doc.Config)
	if err != nil {
		return Job{}, errors.Wrap(ErrParse, err.Error())
	}

	noise := IdealNoise()
	if raw, ok := doc.Config["noise_model"]; ok {
		var nd noiseDocument
		nb, err := json.Marshal(raw)
		if err != nil {
			return Job{}, errors.Wrap(ErrParse, err.Error())
		}
		if err := json.Unmarshal(nb, &nd); err != nil {
			return Job{}, errors.Wrap(ErrParse, err.Error())
		}
		ops := make([]Op, len(nd.Ops))
		for i, o := range nd.Ops {
			ops[i] = Op(o)
		}
		noise = NoiseModel{Ops: NewOpSet(ops...), IsIdeal: nd.IsIdeal}
	}

	circuits := make([]Circuit, len(doc.Circuits))
	for i, cd := range doc.Circuits {
		if cd.Shots <= 0 {
			return Job{}, errors.Wrapf(ErrParse, "circuit %d: shots must be positive, got %d", i, cd.Shots)
		}
		ops := make([]Op, len(cd.Ops))
		for j, o := range cd.Ops {
			ops[j] = Op(o)
		}
		circuits[i] = Circuit{
			Name:      cd.Name,
			NumQubits: cd.NumQubits,
			Ops:       NewOpSet(ops...),
			Shots:     cd.Shots,
			Seed:      cd.Seed,
			Header:    cd.Header,
		}
	}

	return Job{
		ID:       id,
		Circuits: circuits,
		Noise:    noise,
		Config:   cfg,
		Header:   doc.Header,
	}, nil
}
