package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_DefaultsFilled(t *testing.T) {
	s, err := Parse([]byte(`{"neurons": 64}`))
	require.NoError(t, err)

	assert.Equal(t, 64, s.Neurons)
	assert.Equal(t, defaultBaseCapacity, s.BaseCapacity)
	assert.Equal(t, defaultTraceSize, s.TraceSize)
	assert.Equal(t, uint32(defaultRetentionTicks), s.RetentionTicks)
	assert.Equal(t, defaultInputBuffer, s.InputBuffer)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"missing neurons", `{}`},
		{"negative neurons", `{"neurons": -1}`},
		{"capacity below two", `{"neurons": 8, "base_capacity": 1}`},
		{"negative slack", `{"neurons": 8, "slack_events": -4}`},
		{"negative rate", `{"neurons": 8, "spike_rate": -0.5}`},
		{"malformed", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"neurons": 128,
		"base_capacity": 8,
		"slack_events": 512,
		"trace_size": 2,
		"spike_rate": 0.1,
		"seed": 7
	}`), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 128, s.Neurons)
	assert.Equal(t, 8, s.BaseCapacity)
	assert.Equal(t, 512, s.SlackEvents)
	assert.Equal(t, 2, s.TraceSize)
	assert.Equal(t, 0.1, s.SpikeRate)
	assert.Equal(t, uint64(7), s.Seed)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRegionTable_RoundTrip(t *testing.T) {
	regions := [][]byte{
		[]byte("system"),
		nil, // absent
		[]byte("params-go-here"),
	}
	image := EncodeRegionTable(regions)

	tab, err := ParseRegionTable(image, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(TableVersion), tab.Version)

	assert.Equal(t, []byte("system"), tab.Region(image, 0))
	assert.Nil(t, tab.Region(image, 1))
	assert.Equal(t, []byte("params-go-here"), tab.Region(image, 2))
}

func TestParseRegionTable_Rejects(t *testing.T) {
	image := EncodeRegionTable([][]byte{[]byte("x")})

	// Bad magic.
	bad := append([]byte(nil), image...)
	bad[0] ^= 0xFF
	_, err := ParseRegionTable(bad, 1)
	assert.Error(t, err)

	// Truncated.
	_, err = ParseRegionTable(image[:4], 1)
	assert.Error(t, err)

	// Wrong version.
	bad = append([]byte(nil), image...)
	bad[4] = 99
	_, err = ParseRegionTable(bad, 1)
	assert.Error(t, err)
}
