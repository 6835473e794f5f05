package schema

import (
	"time"

	json "github.com/goccy/go-json"
)

// Order acknowledgment event names emitted by the venue.
const (
	EventPlaceOrder  = "placeorder"
	EventCancelOrder = "cancelorder"
	EventModifyOrder = "modifyorder"
	EventWelcome     = "Welcome"
	EventSubscribe   = "subscribe"
	EventLogin       = "login"
)

// Event is one decoded inbound frame held in a channel buffer.
type Event struct {
	Channel Channel
	// Kind carries the order operation for order acknowledgments and is empty for table frames.
	Kind       string
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// IsZero reports whether the event is the empty result.
func (e Event) IsZero() bool {
	return e.Channel == "" && len(e.Payload) == 0
}

// Decode unmarshals the raw frame into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// IsOrderEvent reports whether the event name is an order acknowledgment.
func IsOrderEvent(name string) bool {
	switch name {
	case EventPlaceOrder, EventCancelOrder, EventModifyOrder:
		return true
	default:
		return false
	}
}
