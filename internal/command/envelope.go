// Package command builds the outbound JSON envelopes sent to the venue.
package command

import (
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Outbound operation names.
const (
	OpLogin        = "login"
	OpSubscribe    = "subscribe"
	OpPlaceOrder   = "placeorder"
	OpPlaceOrders  = "placeorders"
	OpModifyOrder  = "modifyorder"
	OpModifyOrders = "modifyorders"
	OpCancelOrder  = "cancelorder"
	OpCancelOrders = "cancelorders"
)

// MaxBatchSize bounds the dataArray of batched order operations.
const MaxBatchSize = 20

// Envelope is the outbound wire shape {op, args|data|dataArray, tag}.
type Envelope struct {
	Op        string   `json:"op"`
	Args      []string `json:"args,omitempty"`
	Data      any      `json:"data,omitempty"`
	DataArray any      `json:"dataArray,omitempty"`
	Tag       Tag      `json:"tag"`
}

// Marshal encodes the envelope.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Tag is the correlation token echoed back by the venue. It is either an integer or a string.
// The zero Tag encodes as 1.
type Tag struct {
	str   string
	num   int64
	isStr bool
	set   bool
}

// IntTag returns an integer tag.
func IntTag(n int64) Tag { return Tag{num: n, set: true} }

// StringTag returns a string tag.
func StringTag(s string) Tag { return Tag{str: s, isStr: true, set: true} }

// DefaultTag is used when the caller supplies none.
var DefaultTag = IntTag(1)

// MarshalJSON encodes the tag as a JSON number or string.
func (t Tag) MarshalJSON() ([]byte, error) {
	if !t.set {
		return []byte("1"), nil
	}
	if t.isStr {
		return json.Marshal(t.str)
	}
	return []byte(strconv.FormatInt(t.num, 10)), nil
}

func (t Tag) String() string {
	if !t.set {
		return "1"
	}
	if t.isStr {
		return t.str
	}
	return strconv.FormatInt(t.num, 10)
}

// number renders a decimal as a bare JSON number.
type number decimal.Decimal

func (n number) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(n).String()), nil
}

func num(d decimal.Decimal) *number {
	n := number(d)
	return &n
}
