package runtime

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/tariffnews/config"
)

func TestMetricsRecordsToolCallsAndSearches(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.ObserveToolCall("responded")
	m.ObserveToolCall("responded")
	m.ObserveToolCall("invalid_input")
	m.ObserveSearch("populated", 120*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("responded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("invalid_input")))

	expected := `
# HELP tariffnews_tool_calls_total Tool invocations by terminal outcome.
# TYPE tariffnews_tool_calls_total counter
tariffnews_tool_calls_total{outcome="invalid_input"} 1
tariffnews_tool_calls_total{outcome="responded"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "tariffnews_tool_calls_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.searchDuration))
}

func TestMetricsDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	require.Error(t, err)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveToolCall("responded")
		m.ObserveSearch("empty", time.Second)
	})
}

func TestSetupTracing(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), config.TelemetryConfig{}, "test")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	shutdown, err = SetupTracing(context.Background(), config.TelemetryConfig{Tracing: true, Exporter: "stdout"}, "test")
	require.NoError(t, err)
	_, span := StartSpan(context.Background(), "test.span")
	span.End()
	require.NoError(t, shutdown(context.Background()))
}
