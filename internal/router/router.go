// Package router classifies inbound venue frames and files them into channel buffers.
package router

import (
	"context"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/coinflex-exchange/api-connectors/internal/buffer"
	"github.com/coinflex-exchange/api-connectors/internal/observability"
	"github.com/coinflex-exchange/api-connectors/internal/schema"
	"github.com/coinflex-exchange/api-connectors/internal/telemetry"
)

// Outcome describes what Route did with a frame.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeBuffered
	OutcomeUnknownTable
	OutcomeOrderBuffered
	OutcomeOrderDiscarded
	OutcomeWelcome
	OutcomeLoggedIn
	OutcomeLoginFailed
	OutcomeSubscribed
	OutcomeSubscribeFailed
	OutcomeMalformed
)

var outcomeNames = [...]string{
	OutcomeIgnored:         "ignored",
	OutcomeBuffered:        "buffered",
	OutcomeUnknownTable:    "unknown_table",
	OutcomeOrderBuffered:   "order_buffered",
	OutcomeOrderDiscarded:  "order_discarded",
	OutcomeWelcome:         "welcome",
	OutcomeLoggedIn:        "logged_in",
	OutcomeLoginFailed:     "login_failed",
	OutcomeSubscribed:      "subscribed",
	OutcomeSubscribeFailed: "subscribe_failed",
	OutcomeMalformed:       "malformed",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// frameHeader holds the routing keys of a frame. Event-only fields stay raw so an odd
// value there cannot keep a table frame out of its buffer.
type frameHeader struct {
	Table   string          `json:"table"`
	Event   string          `json:"event"`
	Success json.RawMessage `json:"success"`
	Code    json.RawMessage `json:"code"`
	Message json.RawMessage `json:"message"`
	Channel json.RawMessage `json:"channel"`
}

// Router decodes frames and appends them to the store. It is driven by a single
// dispatch goroutine, which keeps per-channel order equal to arrival order.
type Router struct {
	store     *buffer.Store
	onWelcome func()
	logger    observability.Logger
	metrics   *telemetry.AdapterMetrics
}

// Option configures a Router.
type Option func(*Router)

// WithWelcome sets the callback run when the venue confirms the login.
func WithWelcome(fn func()) Option {
	return func(r *Router) { r.onWelcome = fn }
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics *telemetry.AdapterMetrics) Option {
	return func(r *Router) { r.metrics = metrics }
}

// New returns a router writing into store.
func New(store *buffer.Store, opts ...Option) *Router {
	r := &Router{
		store:  store,
		logger: observability.Log(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Handle implements the transport frame handler.
func (r *Router) Handle(raw []byte, receivedAt time.Time) {
	r.Route(raw, receivedAt)
}

// Route classifies one frame. It never blocks on I/O and never fails: routing misses are
// logged and counted. A frame with both a table and an event is handled for both and the
// table outcome is returned.
func (r *Router) Route(raw []byte, receivedAt time.Time) Outcome {
	var p frameHeader
	if err := json.Unmarshal(raw, &p); err != nil {
		r.logger.Debug("drop undecodable frame",
			observability.Field{Key: "error", Value: err},
			observability.Field{Key: "size", Value: len(raw)})
		r.record(OutcomeMalformed, "")
		return OutcomeMalformed
	}

	var tableOutcome, eventOutcome Outcome
	hasTable := p.Table != ""
	if hasTable {
		tableOutcome = r.routeTable(p.Table, raw, receivedAt)
	}
	if p.Event != "" {
		eventOutcome = r.routeEvent(&p, raw, receivedAt)
	}
	if hasTable {
		return tableOutcome
	}
	return eventOutcome
}

func (r *Router) routeTable(table string, raw []byte, receivedAt time.Time) Outcome {
	ch := schema.Channel(table)
	ev := schema.Event{Channel: ch, Payload: raw, ReceivedAt: receivedAt}
	stored, evicted := r.store.Append(ch, ev)
	if !stored {
		r.logger.Debug("drop frame for unsubscribed table", observability.Field{Key: "table", Value: table})
		r.record(OutcomeUnknownTable, ch)
		return OutcomeUnknownTable
	}
	if evicted > 0 {
		r.metrics.RecordEviction(context.Background(), ch, evicted)
	}
	r.record(OutcomeBuffered, ch)
	return OutcomeBuffered
}

func (r *Router) routeEvent(p *frameHeader, raw []byte, receivedAt time.Time) Outcome {
	switch {
	case schema.IsOrderEvent(p.Event):
		ev := schema.Event{Channel: schema.ChannelOrder, Kind: p.Event, Payload: raw, ReceivedAt: receivedAt}
		stored, evicted := r.store.Append(schema.ChannelOrder, ev)
		if !stored {
			r.logger.Debug("order acknowledgment discarded; subscribe to the order channel to receive it",
				observability.Field{Key: "event", Value: p.Event})
			r.record(OutcomeOrderDiscarded, schema.ChannelOrder)
			return OutcomeOrderDiscarded
		}
		if evicted > 0 {
			r.metrics.RecordEviction(context.Background(), schema.ChannelOrder, evicted)
		}
		r.record(OutcomeOrderBuffered, schema.ChannelOrder)
		return OutcomeOrderBuffered

	case p.Event == schema.EventWelcome:
		r.welcome()
		r.logger.Debug("authentication confirmed")
		r.record(OutcomeWelcome, "")
		return OutcomeWelcome

	case p.Event == schema.EventLogin:
		if succeeded(p.Success) {
			r.welcome()
			r.logger.Debug("login accepted")
			r.record(OutcomeLoggedIn, "")
			return OutcomeLoggedIn
		}
		r.logger.Warn("login rejected",
			observability.Field{Key: "code", Value: rawText(p.Code)},
			observability.Field{Key: "message", Value: rawText(p.Message)})
		r.record(OutcomeLoginFailed, "")
		return OutcomeLoginFailed

	case p.Event == schema.EventSubscribe:
		if succeeded(p.Success) {
			r.logger.Debug("subscribed", observability.Field{Key: "channel", Value: rawText(p.Channel)})
			r.record(OutcomeSubscribed, "")
			return OutcomeSubscribed
		}
		r.logger.Warn("subscription rejected",
			observability.Field{Key: "channel", Value: rawText(p.Channel)},
			observability.Field{Key: "code", Value: rawText(p.Code)},
			observability.Field{Key: "message", Value: rawText(p.Message)})
		r.record(OutcomeSubscribeFailed, "")
		return OutcomeSubscribeFailed
	}
	r.record(OutcomeIgnored, "")
	return OutcomeIgnored
}

func (r *Router) welcome() {
	if r.onWelcome != nil {
		r.onWelcome()
	}
}

func (r *Router) record(outcome Outcome, ch schema.Channel) {
	r.metrics.RecordFrame(context.Background(), outcome.String(), ch)
}

func succeeded(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "true"
}

func rawText(raw json.RawMessage) string {
	return strings.Trim(string(raw), `"`)
}
