package transport

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/coinflex-exchange/api-connectors/internal/observability"
	"github.com/coinflex-exchange/api-connectors/internal/telemetry"
)

const (
	defaultConnectAttempts = 5
	defaultConnectInterval = time.Second
	defaultDialTimeout     = defaultConnectInterval
	defaultPingInterval    = 30 * time.Second
	defaultPongTimeout     = 15 * time.Second
	defaultWriteTimeout    = 5 * time.Second
	defaultReadLimit       = 2 * 1024 * 1024
	defaultFrameBuffer     = 1024
)

// Handler consumes inbound frames in arrival order on the dispatch goroutine.
type Handler func(raw []byte, receivedAt time.Time)

// ConnectPolicy bounds the initial connect window. The whole window lasts at most
// Attempts x Interval; DialTimeout caps a single attempt inside it.
type ConnectPolicy struct {
	Attempts    int           `yaml:"attempts"`
	Interval    time.Duration `yaml:"interval"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// Throttle configures the outbound command token bucket. A zero Rate disables it.
type Throttle struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// Options configures a Session.
type Options struct {
	Connect      ConnectPolicy
	PingInterval time.Duration
	PongTimeout  time.Duration
	WriteTimeout time.Duration
	ReadLimit    int64
	FrameBuffer  int
	Throttle     Throttle
	HTTPHeader   http.Header

	Handler Handler
	// OnOpen runs once after connecting, before any frame is dispatched.
	OnOpen func(ctx context.Context, s *Session) error
	// Login runs after OnOpen. When set the session stays Authenticating until
	// MarkAuthenticated is called.
	Login func(ctx context.Context, s *Session) error
	// OnFatal is called once with the error that ended the session.
	OnFatal func(err error)

	SessionID string
	Logger    observability.Logger
	Metrics   *telemetry.AdapterMetrics
}

// DefaultOptions returns the connect, keepalive and write defaults.
func DefaultOptions() Options {
	return Options{
		Connect: ConnectPolicy{
			Attempts:    defaultConnectAttempts,
			Interval:    defaultConnectInterval,
			DialTimeout: defaultDialTimeout,
		},
		PingInterval: defaultPingInterval,
		PongTimeout:  defaultPongTimeout,
		WriteTimeout: defaultWriteTimeout,
		ReadLimit:    defaultReadLimit,
		FrameBuffer:  defaultFrameBuffer,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Connect.Attempts <= 0 {
		o.Connect.Attempts = def.Connect.Attempts
	}
	if o.Connect.Interval <= 0 {
		o.Connect.Interval = def.Connect.Interval
	}
	if o.Connect.DialTimeout <= 0 {
		o.Connect.DialTimeout = def.Connect.DialTimeout
	}
	if o.PingInterval <= 0 {
		o.PingInterval = def.PingInterval
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = def.PongTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = def.WriteTimeout
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = def.ReadLimit
	}
	if o.FrameBuffer <= 0 {
		o.FrameBuffer = def.FrameBuffer
	}
	if o.Logger == nil {
		o.Logger = observability.Log()
	}
	return o
}

// Window is the longest Dial may block before giving up.
func (p ConnectPolicy) Window() time.Duration {
	return time.Duration(p.Attempts) * p.Interval
}

func (t Throttle) limiter() *rate.Limiter {
	if t.Rate <= 0 {
		return nil
	}
	burst := t.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(t.Rate), burst)
}
