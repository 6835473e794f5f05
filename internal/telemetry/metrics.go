package telemetry

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/coinflex-exchange/api-connectors/internal/schema"
)

// Instrument names.
const (
	MetricFramesRouted         = "coinflex_adapter_frames_routed"
	MetricBufferEvictions      = "coinflex_adapter_buffer_evictions"
	MetricBufferDepth          = "coinflex_adapter_buffer_depth"
	MetricCommandsSent         = "coinflex_adapter_commands_sent"
	MetricCommandsRefused      = "coinflex_adapter_commands_refused"
	MetricCommandWriteDuration = "coinflex_adapter_command_write_duration"
	MetricTransportErrors      = "coinflex_adapter_transport_errors"
	MetricConnectAttempts      = "coinflex_adapter_connect_attempts"
	MetricPollRefused          = "coinflex_adapter_poll_refused"
)

// AdapterMetrics records adapter activity. A nil *AdapterMetrics is a no-op.
type AdapterMetrics struct {
	environment string
	market      string

	framesRouted    metric.Int64Counter
	evictions       metric.Int64Counter
	commandsSent    metric.Int64Counter
	commandsRefused metric.Int64Counter
	writeDuration   metric.Float64Histogram
	transportErrors metric.Int64Counter
	connectAttempts metric.Int64Counter
	pollRefused     metric.Int64Counter
	bufferDepth     metric.Int64ObservableGauge

	meter        metric.Meter
	regMu        sync.Mutex
	registration metric.Registration
}

// NewAdapterMetrics creates the adapter instruments on meter. A nil meter uses the global provider.
func NewAdapterMetrics(meter metric.Meter, market string) *AdapterMetrics {
	if meter == nil {
		meter = otel.Meter("adapter.coinflex")
	}
	am := &AdapterMetrics{
		environment: Environment(),
		market:      strings.TrimSpace(market),
		meter:       meter,
	}

	am.framesRouted, _ = meter.Int64Counter(MetricFramesRouted,
		metric.WithDescription("Inbound frames handled by the router, by outcome"),
		metric.WithUnit("{frame}"))

	am.evictions, _ = meter.Int64Counter(MetricBufferEvictions,
		metric.WithDescription("Buffered events dropped by compaction"),
		metric.WithUnit("{event}"))

	am.commandsSent, _ = meter.Int64Counter(MetricCommandsSent,
		metric.WithDescription("Outbound command frames written to the venue"),
		metric.WithUnit("{command}"))

	am.commandsRefused, _ = meter.Int64Counter(MetricCommandsRefused,
		metric.WithDescription("Outbound commands refused before reaching the venue"),
		metric.WithUnit("{command}"))

	am.writeDuration, _ = meter.Float64Histogram(MetricCommandWriteDuration,
		metric.WithDescription("Time spent writing a command frame"),
		metric.WithUnit("ms"))

	am.transportErrors, _ = meter.Int64Counter(MetricTransportErrors,
		metric.WithDescription("Fatal transport errors after the session was established"),
		metric.WithUnit("{error}"))

	am.connectAttempts, _ = meter.Int64Counter(MetricConnectAttempts,
		metric.WithDescription("Websocket dial attempts, by result"),
		metric.WithUnit("{attempt}"))

	am.pollRefused, _ = meter.Int64Counter(MetricPollRefused,
		metric.WithDescription("Polls refused for an invalid interval or depth level"),
		metric.WithUnit("{poll}"))

	am.bufferDepth, _ = meter.Int64ObservableGauge(MetricBufferDepth,
		metric.WithDescription("Events currently buffered per channel"),
		metric.WithUnit("{event}"))

	return am
}

// ObserveDepths registers depths as the source of the buffer depth gauge, replacing any
// previous source.
func (am *AdapterMetrics) ObserveDepths(depths func() map[schema.Channel]int) error {
	if am == nil || am.bufferDepth == nil || depths == nil {
		return nil
	}
	reg, err := am.meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		for ch, n := range depths() {
			attrs := ChannelAttributes(am.environment, am.market, ch.String())
			observer.ObserveInt64(am.bufferDepth, int64(n), metric.WithAttributes(attrs...))
		}
		return nil
	}, am.bufferDepth)
	if err != nil {
		return err
	}
	am.regMu.Lock()
	prev := am.registration
	am.registration = reg
	am.regMu.Unlock()
	if prev != nil {
		return prev.Unregister()
	}
	return nil
}

// Close unregisters the buffer depth callback.
func (am *AdapterMetrics) Close() error {
	if am == nil {
		return nil
	}
	am.regMu.Lock()
	reg := am.registration
	am.registration = nil
	am.regMu.Unlock()
	if reg == nil {
		return nil
	}
	return reg.Unregister()
}

// RecordFrame counts one routed frame.
func (am *AdapterMetrics) RecordFrame(ctx context.Context, outcome string, ch schema.Channel) {
	if am == nil || am.framesRouted == nil {
		return
	}
	attrs := RouteAttributes(am.environment, am.market, outcome, ch.String())
	am.framesRouted.Add(ensureContext(ctx), 1, metric.WithAttributes(attrs...))
}

// RecordEviction counts events dropped by buffer compaction.
func (am *AdapterMetrics) RecordEviction(ctx context.Context, ch schema.Channel, n int) {
	if am == nil || am.evictions == nil || n <= 0 {
		return
	}
	attrs := ChannelAttributes(am.environment, am.market, ch.String())
	am.evictions.Add(ensureContext(ctx), int64(n), metric.WithAttributes(attrs...))
}

// RecordCommand counts a written command and its write latency.
func (am *AdapterMetrics) RecordCommand(ctx context.Context, op string, took time.Duration) {
	if am == nil || am.commandsSent == nil {
		return
	}
	ctx = ensureContext(ctx)
	attrs := CommandAttributes(am.environment, am.market, op)
	am.commandsSent.Add(ctx, 1, metric.WithAttributes(attrs...))
	if am.writeDuration != nil {
		if took < 0 {
			took = 0
		}
		am.writeDuration.Record(ctx, float64(took.Microseconds())/1000, metric.WithAttributes(attrs...))
	}
}

// RecordRefusal counts a command refused before reaching the venue.
func (am *AdapterMetrics) RecordRefusal(ctx context.Context, op, reason string) {
	if am == nil || am.commandsRefused == nil {
		return
	}
	attrs := append(CommandAttributes(am.environment, am.market, op), AttrReason.String(reason))
	am.commandsRefused.Add(ensureContext(ctx), 1, metric.WithAttributes(attrs...))
}

// RecordPollRefused counts a poll refused for an invalid selector.
func (am *AdapterMetrics) RecordPollRefused(ctx context.Context, op, reason string) {
	if am == nil || am.pollRefused == nil {
		return
	}
	attrs := append(CommandAttributes(am.environment, am.market, op), AttrReason.String(reason))
	am.pollRefused.Add(ensureContext(ctx), 1, metric.WithAttributes(attrs...))
}

// RecordTransportError counts a fatal transport error.
func (am *AdapterMetrics) RecordTransportError(ctx context.Context, reason string) {
	if am == nil || am.transportErrors == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrEnvironment.String(am.environment),
		AttrMarket.String(am.market),
		AttrReason.String(reason),
	}
	am.transportErrors.Add(ensureContext(ctx), 1, metric.WithAttributes(attrs...))
}

// RecordConnectAttempt counts a dial attempt.
func (am *AdapterMetrics) RecordConnectAttempt(ctx context.Context, success bool) {
	if am == nil || am.connectAttempts == nil {
		return
	}
	result := ResultSuccess
	if !success {
		result = ResultFailure
	}
	attrs := OperationResultAttributes(am.environment, am.market, "dial", result)
	am.connectAttempts.Add(ensureContext(ctx), 1, metric.WithAttributes(attrs...))
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
