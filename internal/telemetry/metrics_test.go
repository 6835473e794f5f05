package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/coinflex-exchange/api-connectors/internal/schema"
)

func newTestMetrics(t *testing.T) (*AdapterMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithView(Views()...))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return NewAdapterMetrics(mp.Meter("test"), "BTC-USD-SWAP-LIN"), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumFor(t *testing.T, m metricdata.Metrics, key attribute.Key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(key); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestAdapterMetricsCounters(t *testing.T) {
	am, reader := newTestMetrics(t)
	ctx := context.Background()

	am.RecordFrame(ctx, "buffered", schema.ChannelDepth)
	am.RecordFrame(ctx, "buffered", schema.ChannelDepth)
	am.RecordFrame(ctx, "unknown_table", schema.ChannelTrade)
	am.RecordEviction(ctx, schema.ChannelDepth, 101)
	am.RecordEviction(ctx, schema.ChannelDepth, 0)
	am.RecordCommand(ctx, "subscribe", 2*time.Millisecond)
	am.RecordRefusal(ctx, "placeorders", "invalid_request")
	am.RecordTransportError(ctx, "network")
	am.RecordConnectAttempt(ctx, false)
	am.RecordConnectAttempt(ctx, true)
	am.RecordPollRefused(ctx, "get_kline", "invalid_request")

	metrics := collect(t, reader)
	require.Equal(t, int64(2), sumFor(t, metrics[MetricFramesRouted], AttrOutcome, "buffered"))
	require.Equal(t, int64(1), sumFor(t, metrics[MetricFramesRouted], AttrOutcome, "unknown_table"))
	require.Equal(t, int64(101), sumFor(t, metrics[MetricBufferEvictions], AttrChannel, "depth"))
	require.Equal(t, int64(1), sumFor(t, metrics[MetricCommandsSent], AttrOperation, "subscribe"))
	require.Equal(t, int64(1), sumFor(t, metrics[MetricCommandsRefused], AttrReason, "invalid_request"))
	require.Equal(t, int64(1), sumFor(t, metrics[MetricTransportErrors], AttrReason, "network"))
	require.Equal(t, int64(1), sumFor(t, metrics[MetricConnectAttempts], AttrResult, ResultFailure))
	require.Equal(t, int64(1), sumFor(t, metrics[MetricConnectAttempts], AttrResult, ResultSuccess))
	require.Equal(t, int64(1), sumFor(t, metrics[MetricPollRefused], AttrOperation, "get_kline"))

	hist, ok := metrics[MetricCommandWriteDuration].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	require.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestAdapterMetricsBufferDepthGauge(t *testing.T) {
	am, reader := newTestMetrics(t)
	depths := map[schema.Channel]int{schema.ChannelTrade: 3, schema.ChannelOrder: 0}
	require.NoError(t, am.ObserveDepths(func() map[schema.Channel]int { return depths }))

	metrics := collect(t, reader)
	gauge, ok := metrics[MetricBufferDepth].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	got := make(map[string]int64)
	for _, dp := range gauge.DataPoints {
		v, _ := dp.Attributes.Value(AttrChannel)
		got[v.AsString()] = dp.Value
	}
	require.Equal(t, map[string]int64{"trade": 3, "order": 0}, got)

	require.NoError(t, am.Close())
	metrics = collect(t, reader)
	if m, ok := metrics[MetricBufferDepth]; ok {
		gauge, _ := m.Data.(metricdata.Gauge[int64])
		require.Empty(t, gauge.DataPoints)
	}
}

func TestNilAdapterMetricsIsNoop(t *testing.T) {
	var am *AdapterMetrics
	ctx := context.Background()
	am.RecordFrame(ctx, "buffered", schema.ChannelDepth)
	am.RecordCommand(ctx, "subscribe", time.Millisecond)
	am.RecordConnectAttempt(ctx, true)
	require.NoError(t, am.ObserveDepths(nil))
	require.NoError(t, am.Close())
}

func TestEnvironmentDefaults(t *testing.T) {
	SetEnvironment("")
	require.Equal(t, "staging", Environment())
	SetEnvironment(" LIVE ")
	require.Equal(t, "live", Environment())
	SetEnvironment("")
}

func TestDisabledProviderUsesGlobalMeter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	p, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, p.Meter("adapter.coinflex"))
	require.NoError(t, p.Shutdown(context.Background()))
	require.Equal(t, "localhost:4318", stripScheme("http://localhost:4318"))
}
