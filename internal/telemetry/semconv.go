package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys follow OpenTelemetry naming: namespace.attribute_name.
const (
	AttrEnvironment = attribute.Key("environment")
	AttrMarket      = attribute.Key("market")
	AttrChannel     = attribute.Key("channel")
	AttrOutcome     = attribute.Key("route.outcome")
	AttrOperation   = attribute.Key("operation")
	AttrResult      = attribute.Key("result")
	AttrReason      = attribute.Key("reason")
)

// Result values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// ChannelAttributes returns attributes for per-channel buffer metrics.
func ChannelAttributes(environment, market, channel string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrEnvironment.String(environment),
		AttrMarket.String(market),
		AttrChannel.String(channel),
	}
}

// RouteAttributes returns attributes for routed frame metrics.
func RouteAttributes(environment, market, outcome, channel string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		AttrEnvironment.String(environment),
		AttrMarket.String(market),
		AttrOutcome.String(outcome),
	}
	if channel != "" {
		attrs = append(attrs, AttrChannel.String(channel))
	}
	return attrs
}

// CommandAttributes returns attributes for outbound command metrics.
func CommandAttributes(environment, market, operation string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrEnvironment.String(environment),
		AttrMarket.String(market),
		AttrOperation.String(operation),
	}
}

// OperationResultAttributes returns attributes for operation metrics with result classification.
func OperationResultAttributes(environment, market, operation, result string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrEnvironment.String(environment),
		AttrMarket.String(market),
		AttrOperation.String(operation),
		AttrResult.String(result),
	}
}
