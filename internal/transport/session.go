// Package transport supervises the single websocket session to the venue.
package transport

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"

	"github.com/coinflex-exchange/api-connectors/errs"
	"github.com/coinflex-exchange/api-connectors/internal/observability"
	"github.com/coinflex-exchange/api-connectors/internal/telemetry"
)

type frame struct {
	data       []byte
	receivedAt time.Time
}

// Session owns one websocket connection. Inbound frames are read on one goroutine and handed
// to the Handler on a second, so a slow handler never stalls keepalive. The session does not
// reconnect: after a fatal transport error it stays Errored.
type Session struct {
	id      string
	url     string
	opts    Options
	logger  observability.Logger
	metrics *telemetry.AdapterMetrics
	limiter *rate.Limiter

	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc

	state         atomic.Int32
	authenticated atomic.Bool
	exited        atomic.Bool

	authCh    chan struct{}
	authOnce  sync.Once
	fatalOnce sync.Once
	errCh     chan error
	errMu     sync.Mutex
	err       error

	frames  chan frame
	started chan struct{}
	wg      conc.WaitGroup
	done    chan struct{}
}

// Dial connects to url and starts the session goroutines. Up to Connect.Attempts dials are
// made, spaced by Connect.Interval, and the caller blocks no longer than Connect.Window even
// when the peer accepts TCP but never answers the upgrade. When no dial succeeds the session
// is closed and an error with code errs.CodeTimeout is returned.
func Dial(ctx context.Context, url string, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	id := strings.TrimSpace(opts.SessionID)
	if id == "" {
		id = uuid.NewString()
	}
	s := &Session{
		id:      id,
		url:     url,
		opts:    opts,
		logger:  observability.With(opts.Logger, observability.Field{Key: "session_id", Value: id}, observability.Field{Key: "component", Value: "transport"}),
		metrics: opts.Metrics,
		limiter: opts.Throttle.limiter(),
		authCh:  make(chan struct{}),
		errCh:   make(chan error, 1),
		frames:  make(chan frame, opts.FrameBuffer),
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.state.Store(int32(StateConnecting))

	s.logger.Debug("connecting", observability.Field{Key: "url", Value: url})
	conn, err := s.connect(ctx)
	if err != nil {
		s.exited.Store(true)
		s.state.Store(int32(StateClosed))
		close(s.done)
		s.logger.Error("could not connect to websocket", observability.Field{Key: "error", Value: err})
		return nil, errs.New("transport.dial", errs.CodeTimeout,
			errs.WithMessage("could not connect to websocket"),
			errs.WithRemediation("check the websocket url and network reachability"),
			errs.WithField("url", url),
			errs.WithField("attempts", strconv.Itoa(opts.Connect.Attempts)),
			errs.WithCause(err))
	}
	conn.SetReadLimit(opts.ReadLimit)
	s.conn = conn
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.state.Store(int32(StateOpen))
	s.logger.Debug("websocket opened")

	s.wg.Go(s.readLoop)
	s.wg.Go(s.dispatchLoop)
	s.wg.Go(s.pingLoop)
	go func() {
		s.wg.Wait()
		close(s.done)
	}()

	if opts.OnOpen != nil {
		if err := opts.OnOpen(ctx, s); err != nil {
			s.Exit()
			return nil, err
		}
	}
	if opts.Login != nil {
		s.state.CompareAndSwap(int32(StateOpen), int32(StateAuthenticating))
		if err := opts.Login(ctx, s); err != nil {
			s.Exit()
			return nil, err
		}
	} else {
		s.state.CompareAndSwap(int32(StateOpen), int32(StateReady))
	}

	close(s.started)
	return s, nil
}

func (s *Session) connect(ctx context.Context) (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Connect.Window())
	defer cancel()
	attempt := 0
	operation := func() (*websocket.Conn, error) {
		attempt++
		dialCtx, cancel := context.WithTimeout(ctx, s.opts.Connect.DialTimeout)
		defer cancel()
		conn, _, err := websocket.Dial(dialCtx, s.url, &websocket.DialOptions{HTTPHeader: s.opts.HTTPHeader})
		s.metrics.RecordConnectAttempt(ctx, err == nil)
		if err != nil {
			s.logger.Debug("dial attempt failed",
				observability.Field{Key: "attempt", Value: attempt},
				observability.Field{Key: "error", Value: err})
			return nil, err
		}
		return conn, nil
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.opts.Connect.Interval)),
		backoff.WithMaxTries(uint(s.opts.Connect.Attempts)))
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle stage.
func (s *Session) State() State { return State(s.state.Load()) }

// Authenticated reports whether the venue confirmed the login.
func (s *Session) Authenticated() bool { return s.authenticated.Load() }

// MarkAuthenticated records a confirmed login and releases WaitAuthenticated callers.
func (s *Session) MarkAuthenticated() {
	s.authenticated.Store(true)
	s.state.CompareAndSwap(int32(StateAuthenticating), int32(StateReady))
	s.authOnce.Do(func() { close(s.authCh) })
}

// WaitAuthenticated blocks until the login is confirmed, ctx ends or the session ends.
func (s *Session) WaitAuthenticated(ctx context.Context) error {
	select {
	case <-s.authCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		if s.Authenticated() {
			return nil
		}
		if err := s.Err(); err != nil {
			return err
		}
		return errs.New("transport.wait_authenticated", errs.CodeUnavailable,
			errs.WithMessage("session closed before authentication"))
	}
}

// Send writes one text frame, bounded by WriteTimeout. It bypasses the command throttle.
func (s *Session) Send(ctx context.Context, payload []byte) error {
	if err := s.usable("transport.send"); err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
	defer cancel()
	if err := s.conn.Write(writeCtx, websocket.MessageText, payload); err != nil {
		return errs.New("transport.send", errs.CodeNetwork,
			errs.WithMessage("write frame"),
			errs.WithCause(err))
	}
	return nil
}

// SendCommand is Send behind the command throttle. When the throttle has no token the
// command is refused with errs.CodeRateLimited instead of waiting.
func (s *Session) SendCommand(ctx context.Context, payload []byte) error {
	if err := s.usable("transport.send_command"); err != nil {
		return err
	}
	if s.limiter != nil && !s.limiter.Allow() {
		return errs.New("transport.send_command", errs.CodeRateLimited,
			errs.WithMessage("command throttle exhausted"),
			errs.WithRemediation("retry later or raise the command throttle rate"))
	}
	return s.Send(ctx, payload)
}

func (s *Session) usable(op string) error {
	if s.exited.Load() || s.State().Terminal() {
		return errs.New(op, errs.CodeUnavailable,
			errs.WithMessage("session is "+s.State().String()))
	}
	return nil
}

// Errors delivers the fatal transport error, if any. It never blocks the session.
func (s *Session) Errors() <-chan error { return s.errCh }

// Err returns the fatal transport error, if any.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Done is closed once every session goroutine has returned.
func (s *Session) Done() <-chan struct{} { return s.done }

// Exit closes the session. It is idempotent and safe from any goroutine; transport
// callbacks that arrive afterwards are ignored.
func (s *Session) Exit() {
	if !s.exited.CompareAndSwap(false, true) {
		return
	}
	s.state.CompareAndSwap(int32(StateOpen), int32(StateClosed))
	s.state.CompareAndSwap(int32(StateAuthenticating), int32(StateClosed))
	s.state.CompareAndSwap(int32(StateReady), int32(StateClosed))
	if s.conn != nil {
		_ = s.conn.Close(websocket.StatusNormalClosure, "exit")
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Debug("websocket closed")
}

func (s *Session) readLoop() {
	defer close(s.frames)
	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			s.fail("read", err)
			return
		}
		select {
		case s.frames <- frame{data: data, receivedAt: time.Now()}:
		case <-s.ctx.Done():
			return
		}
	}
}

// dispatchLoop holds frames until Dial finished its open and login hooks.
func (s *Session) dispatchLoop() {
	select {
	case <-s.started:
	case <-s.ctx.Done():
	}
	for f := range s.frames {
		if s.exited.Load() {
			continue
		}
		if s.opts.Handler != nil {
			s.opts.Handler(f.data, f.receivedAt)
		}
	}
}

func (s *Session) pingLoop() {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(s.ctx, s.opts.PongTimeout)
			err := s.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				s.fail("ping", err)
				return
			}
		}
	}
}

// fail records the error that ended the session. It is a no-op after Exit.
func (s *Session) fail(reason string, err error) {
	if s.exited.Load() || err == nil {
		return
	}
	if errors.Is(err, context.Canceled) && s.ctx.Err() != nil {
		return
	}
	s.fatalOnce.Do(func() {
		wrapped := errs.New("transport."+reason, errs.CodeNetwork,
			errs.WithMessage("websocket transport failed"),
			errs.WithCause(err))
		s.state.Store(int32(StateErrored))
		s.errMu.Lock()
		s.err = wrapped
		s.errMu.Unlock()
		select {
		case s.errCh <- wrapped:
		default:
		}
		s.metrics.RecordTransportError(context.Background(), reason)
		s.logger.Error("websocket error", observability.Field{Key: "reason", Value: reason}, observability.Field{Key: "error", Value: err})
		if s.opts.OnFatal != nil {
			s.opts.OnFatal(wrapped)
		}
		s.exited.Store(true)
		s.cancel()
		_ = s.conn.Close(websocket.StatusInternalError, "transport error")
	})
}
