// Package config loads simulation profiles and parses the binary region
// table that fronts a loaded data image.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Sim is a simulation profile. Zero fields take the documented defaults at
// validation time.
type Sim struct {
	// Neurons is the population size.
	Neurons int `json:"neurons"`

	// BaseCapacity is the initial per-neuron event capacity.
	BaseCapacity int `json:"base_capacity"`

	// SlackEvents sizes the shared overflow pool in events.
	SlackEvents int `json:"slack_events"`

	// TraceSize is the per-event payload size in bytes.
	TraceSize int `json:"trace_size"`

	// FragmentCount splits the arena for incremental compaction.
	FragmentCount int `json:"fragment_count,omitempty"`

	// Generations and GenerationWidth configure the scheduling index.
	Generations     int    `json:"generations,omitempty"`
	GenerationWidth uint32 `json:"generation_width,omitempty"`

	// Ticks is the simulation length; 0 runs until stopped.
	Ticks uint32 `json:"ticks,omitempty"`

	// RetentionTicks is how far behind the current tick history is kept
	// before the recycler may reclaim it.
	RetentionTicks uint32 `json:"retention_ticks"`

	// SpikeRate is the mean input rate per neuron per tick for generated
	// input.
	SpikeRate float64 `json:"spike_rate,omitempty"`

	// Seed seeds the input generator. 0 means derive from the clock.
	Seed uint64 `json:"seed,omitempty"`

	// InputBuffer sizes the spike ingress ring. 0 selects a default.
	InputBuffer int `json:"input_buffer,omitempty"`
}

const (
	defaultBaseCapacity   = 4
	defaultTraceSize      = 4
	defaultRetentionTicks = 128
	defaultInputBuffer    = 256
)

// Validate checks the profile and fills in defaults. It returns the first
// problem found.
func (s *Sim) Validate() error {
	if s.Neurons <= 0 {
		return fmt.Errorf("config: neurons %d must be positive", s.Neurons)
	}
	if s.BaseCapacity == 0 {
		s.BaseCapacity = defaultBaseCapacity
	}
	if s.BaseCapacity < 2 {
		return fmt.Errorf("config: base_capacity %d must be at least 2", s.BaseCapacity)
	}
	if s.SlackEvents < 0 {
		return fmt.Errorf("config: slack_events %d must not be negative", s.SlackEvents)
	}
	if s.TraceSize == 0 {
		s.TraceSize = defaultTraceSize
	}
	if s.TraceSize < 0 {
		return fmt.Errorf("config: trace_size %d must be positive", s.TraceSize)
	}
	if s.FragmentCount < 0 {
		return fmt.Errorf("config: fragment_count %d must not be negative", s.FragmentCount)
	}
	if s.SpikeRate < 0 {
		return fmt.Errorf("config: spike_rate %g must not be negative", s.SpikeRate)
	}
	if s.RetentionTicks == 0 {
		s.RetentionTicks = defaultRetentionTicks
	}
	if s.InputBuffer == 0 {
		s.InputBuffer = defaultInputBuffer
	}
	return nil
}

// Load reads and validates a JSON profile from path.
func Load(path string) (*Sim, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a JSON profile.
func Parse(data []byte) (*Sim, error) {
	var s Sim
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
