package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLatenciesRegistersAllThreeHistograms(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewLatencies(reg)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	assert.True(t, names["matchcore_risk_check_duration_seconds"])
	assert.True(t, names["matchcore_matching_submit_duration_seconds"])
	assert.True(t, names["matchcore_marketdata_process_duration_seconds"])
}

func TestLatenciesObserveIsReflectedInGather(t *testing.T) {
	reg := prometheus.NewRegistry()
	l := NewLatencies(reg)

	l.Risk.Observe(0.001)
	l.Matching.Observe(0.002)
	l.Gateway.Observe(0.003)

	families, err := reg.Gather()
	require.NoError(t, err)

	var sampleCount uint64
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if h := m.GetHistogram(); h != nil {
				sampleCount += h.GetSampleCount()
			}
		}
	}
	assert.Equal(t, uint64(3), sampleCount)
}

func TestNewLatenciesPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewLatencies(reg)
	assert.Panics(t, func() { NewLatencies(reg) })
}
