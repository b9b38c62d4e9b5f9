package telemetry

import (
	"context"
	"runtime/pprof"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_Validation(t *testing.T) {
	logger := zaptest.NewLogger(t)

	_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "engine"}, logger)
	assert.ErrorContains(t, err, "server address is required")

	_, err = NewProfiler(ProfilerConfig{Enabled: true, ServerAddress: "http://localhost:4040"}, logger)
	assert.ErrorContains(t, err, "application name is required")

	_, err = NewProfiler(ProfilerConfig{
		Enabled:         true,
		ServerAddress:   "http://localhost:4040",
		ApplicationName: "engine",
		ProfileTypes:    []string{"cpu", "heap"},
	}, logger)
	assert.ErrorContains(t, err, `unknown profile type "heap"`)
}

func TestParseProfileTypes(t *testing.T) {
	types, err := ParseProfileTypes(nil)
	require.NoError(t, err)
	assert.Len(t, types, len(defaultProfileTypes))

	types, err = ParseProfileTypes([]string{" CPU ", "mutex_count"})
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{pyroscope.ProfileCPU, pyroscope.ProfileMutexCount}, types)
}

func TestLabelPairs(t *testing.T) {
	long := make([]byte, maxLabelValueLength+10)
	for i := range long {
		long[i] = 'x'
	}
	pairs := labelPairs(map[string]string{
		ProfilingLabelRoute:     "/api/v1/reservations",
		ProfilingLabelMethod:    "POST",
		ProfilingLabelOperation: string(long),
		"quote_number":          "COT-0001",
		"empty":                 "",
	})
	require.Len(t, pairs, 6)
	assert.Equal(t, "method", pairs[0])
	assert.Equal(t, "POST", pairs[1])
	assert.Len(t, pairs[3], maxLabelValueLength)
	assert.Equal(t, "route", pairs[4])
}

func TestWithProfilingLabels(t *testing.T) {
	var got string
	WithProfilingLabels(context.Background(), map[string]string{ProfilingLabelOperation: "allocate"}, func(ctx context.Context) {
		got, _ = pprof.Label(ctx, ProfilingLabelOperation)
	})
	assert.Equal(t, "allocate", got)

	called := false
	WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
	assert.True(t, called)
}
