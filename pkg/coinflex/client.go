// Package coinflex is the public adapter: one authenticated websocket session, channel
// subscriptions polled through bounded buffers, and order commands.
package coinflex

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/coinflex-exchange/api-connectors/errs"
	"github.com/coinflex-exchange/api-connectors/internal/auth"
	"github.com/coinflex-exchange/api-connectors/internal/buffer"
	"github.com/coinflex-exchange/api-connectors/internal/command"
	"github.com/coinflex-exchange/api-connectors/internal/observability"
	"github.com/coinflex-exchange/api-connectors/internal/router"
	"github.com/coinflex-exchange/api-connectors/internal/telemetry"
	"github.com/coinflex-exchange/api-connectors/internal/transport"
)

// Client is safe for concurrent use. Polling methods never block and never fail.
type Client struct {
	market  string
	store   *buffer.Store
	encoder *command.Encoder
	router  *router.Router
	session atomic.Pointer[transport.Session]
	logger  observability.Logger
	metrics *telemetry.AdapterMetrics
}

// New validates opts, connects and, when credentials are present, sends the login frame.
// It returns once the connection is open; login success is observed asynchronously.
func New(ctx context.Context, opts Options) (*Client, error) {
	if err := opts.Credentials.Validate(); err != nil {
		return nil, err
	}
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		return nil, errs.New("coinflex.new", errs.CodeConfig, errs.WithMessage("websocket url is required"))
	}
	market := strings.TrimSpace(opts.Market)
	if market == "" {
		return nil, errs.New("coinflex.new", errs.CodeConfig, errs.WithMessage("market is required"))
	}

	topts := opts.Transport
	if topts.SessionID == "" {
		topts.SessionID = uuid.NewString()
	}
	base := opts.Logger
	if base == nil {
		base = observability.Log()
	}
	logger := observability.With(base,
		observability.Field{Key: "session_id", Value: topts.SessionID},
		observability.Field{Key: "market", Value: market})

	metrics := telemetry.NewAdapterMetrics(opts.Meter, market)
	store := buffer.NewStore(opts.BufferCapacity)
	if err := metrics.ObserveDepths(store.Depths); err != nil {
		logger.Warn("buffer depth gauge unavailable", observability.Field{Key: "error", Value: err})
	}

	c := &Client{
		market:  market,
		store:   store,
		encoder: command.NewEncoder(market),
		logger:  observability.With(logger, observability.Field{Key: "component", Value: "client"}),
		metrics: metrics,
	}
	c.router = router.New(store,
		router.WithWelcome(c.onWelcome),
		router.WithLogger(observability.With(logger, observability.Field{Key: "component", Value: "router"})),
		router.WithMetrics(metrics))

	topts.Handler = c.router.Handle
	topts.Logger = base
	topts.Metrics = metrics
	topts.OnOpen = func(_ context.Context, s *transport.Session) error {
		c.session.Store(s)
		return nil
	}
	if opts.Credentials.Present() {
		authOpts := []auth.Option{auth.WithLogger(logger)}
		if opts.Clock != nil {
			authOpts = append(authOpts, auth.WithClock(opts.Clock))
		}
		authenticator, err := auth.New(opts.Credentials, authOpts...)
		if err != nil {
			_ = metrics.Close()
			return nil, err
		}
		topts.Login = func(ctx context.Context, s *transport.Session) error {
			return authenticator.Authenticate(ctx, s)
		}
	}

	if _, err := transport.Dial(ctx, url, topts); err != nil {
		_ = metrics.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) onWelcome() {
	if s := c.session.Load(); s != nil {
		s.MarkAuthenticated()
	}
}

// Market returns the market code used by subscriptions and orders.
func (c *Client) Market() string { return c.market }

// Authenticated reports whether the venue confirmed the login.
func (c *Client) Authenticated() bool { return c.session.Load().Authenticated() }

// WaitAuthenticated blocks until the login is confirmed, ctx ends or the session ends.
func (c *Client) WaitAuthenticated(ctx context.Context) error {
	return c.session.Load().WaitAuthenticated(ctx)
}

// State returns the session lifecycle stage.
func (c *Client) State() transport.State { return c.session.Load().State() }

// Errors delivers the fatal transport error, if any.
func (c *Client) Errors() <-chan error { return c.session.Load().Errors() }

// Err returns the fatal transport error, if any.
func (c *Client) Err() error { return c.session.Load().Err() }

// Done is closed once the session goroutines have stopped.
func (c *Client) Done() <-chan struct{} { return c.session.Load().Done() }

// Exit closes the session. It is idempotent; buffered events remain pollable.
func (c *Client) Exit() {
	c.session.Load().Exit()
	if err := c.metrics.Close(); err != nil {
		c.logger.Debug("unregister metrics", observability.Field{Key: "error", Value: err})
	}
}

func (c *Client) send(ctx context.Context, op string, payload []byte) error {
	start := time.Now()
	if err := c.session.Load().SendCommand(ctx, payload); err != nil {
		c.refuse(ctx, op, err)
		return err
	}
	c.metrics.RecordCommand(ctx, op, time.Since(start))
	return nil
}

func (c *Client) refuse(ctx context.Context, op string, err error) {
	reason := "unknown"
	var e *errs.E
	if errors.As(err, &e) {
		reason = string(e.Code)
	}
	c.metrics.RecordRefusal(ctx, op, reason)
	c.logger.Debug("command refused",
		observability.Field{Key: "op", Value: op},
		observability.Field{Key: "error", Value: err})
}
