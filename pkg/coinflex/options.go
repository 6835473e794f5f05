package coinflex

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/coinflex-exchange/api-connectors/config"
	"github.com/coinflex-exchange/api-connectors/internal/buffer"
	"github.com/coinflex-exchange/api-connectors/internal/observability"
	"github.com/coinflex-exchange/api-connectors/internal/schema"
	"github.com/coinflex-exchange/api-connectors/internal/transport"
)

// Options configures a Client.
type Options struct {
	URL         string
	Market      string
	Credentials schema.Credentials

	// BufferCapacity bounds each channel buffer. Zero selects buffer.DefaultCapacity.
	BufferCapacity int
	// Transport carries connect, keepalive, write and throttle settings. Its hooks are
	// owned by the client and overwritten.
	Transport transport.Options

	Logger observability.Logger
	// Meter receives adapter metrics. Nil uses the global meter provider.
	Meter metric.Meter
	// Clock stamps the login frame. Nil uses time.Now.
	Clock func() time.Time
}

// DefaultOptions returns options for market on url with the transport defaults.
func DefaultOptions(url, market string) Options {
	return Options{
		URL:            url,
		Market:         market,
		BufferCapacity: buffer.DefaultCapacity,
		Transport:      transport.DefaultOptions(),
	}
}

// OptionsFromSettings maps loaded settings onto client options.
func OptionsFromSettings(s config.Settings) Options {
	opts := DefaultOptions(s.WebsocketURL(), s.Market)
	opts.Credentials = s.CredentialPair()
	opts.BufferCapacity = s.Buffer.Capacity
	opts.Transport.Connect = s.Connect
	opts.Transport.PingInterval = s.Keepalive.PingInterval
	opts.Transport.PongTimeout = s.Keepalive.PongTimeout
	opts.Transport.WriteTimeout = s.Commands.WriteTimeout
	opts.Transport.Throttle = s.Commands.Throttle
	return opts
}
