// Package schema defines the channel keys, events and order payloads exchanged with the venue.
package schema

import (
	"strconv"
	"strings"

	"github.com/coinflex-exchange/api-connectors/errs"
)

// Channel names a buffered stream of venue events. The value is the table name the venue
// stamps on data frames for that stream.
type Channel string

const (
	ChannelDepth       Channel = "depth"
	ChannelDepthL5     Channel = "depthL5"
	ChannelDepthL10    Channel = "depthL10"
	ChannelDepthL25    Channel = "depthL25"
	ChannelTrade       Channel = "trade"
	ChannelTicker      Channel = "ticker"
	ChannelMarket      Channel = "market"
	ChannelLiquidation Channel = "liquidationRFQ"
	ChannelBalance     Channel = "balance"
	ChannelPosition    Channel = "position"
	ChannelOrder       Channel = "order"
)

const candlePrefix = "candles"

// DefaultBalanceCoin selects every coin on the balance channel.
const DefaultBalanceCoin = "all"

// Interval is a candle width accepted by the venue.
type Interval string

const (
	Interval60s    Interval = "60s"
	Interval300s   Interval = "300s"
	Interval900s   Interval = "900s"
	Interval1800s  Interval = "1800s"
	Interval3600s  Interval = "3600s"
	Interval7200s  Interval = "7200s"
	Interval14400s Interval = "14400s"
	Interval86400s Interval = "86400s"
)

var intervals = []Interval{
	Interval60s,
	Interval300s,
	Interval900s,
	Interval1800s,
	Interval3600s,
	Interval7200s,
	Interval14400s,
	Interval86400s,
}

// Intervals returns every supported candle interval in ascending order.
func Intervals() []Interval {
	out := make([]Interval, len(intervals))
	copy(out, intervals)
	return out
}

// Valid reports whether the interval belongs to the enumerated set.
func (i Interval) Valid() bool {
	for _, candidate := range intervals {
		if i == candidate {
			return true
		}
	}
	return false
}

// DepthLevel selects a leveled order-book channel. DepthFull selects the full book.
type DepthLevel int

const (
	DepthFull DepthLevel = 0
	DepthL5   DepthLevel = 5
	DepthL10  DepthLevel = 10
	DepthL25  DepthLevel = 25
)

// Valid reports whether the level is full depth or one of 5, 10, 25.
func (l DepthLevel) Valid() bool {
	switch l {
	case DepthFull, DepthL5, DepthL10, DepthL25:
		return true
	default:
		return false
	}
}

// DepthChannel maps a depth level to its channel.
func DepthChannel(level DepthLevel) (Channel, error) {
	if !level.Valid() {
		return "", errs.Invalid("schema.depth", "depth level must be one of 5, 10, 25 or omitted",
			errs.WithField("level", strconv.Itoa(int(level))))
	}
	if level == DepthFull {
		return ChannelDepth, nil
	}
	return Channel("depthL" + strconv.Itoa(int(level))), nil
}

// CandleChannel maps a candle interval to its channel.
func CandleChannel(interval Interval) (Channel, error) {
	if !interval.Valid() {
		return "", errs.Invalid("schema.candles", "unsupported candle interval",
			errs.WithField("interval", string(interval)))
	}
	return Channel(candlePrefix + string(interval)), nil
}

// ParseChannel resolves a channel name against the known set.
func ParseChannel(name string) (Channel, bool) {
	name = strings.TrimSpace(name)
	switch ch := Channel(name); ch {
	case ChannelDepth, ChannelDepthL5, ChannelDepthL10, ChannelDepthL25,
		ChannelTrade, ChannelTicker, ChannelMarket, ChannelLiquidation,
		ChannelBalance, ChannelPosition, ChannelOrder:
		return ch, true
	}
	if rest, ok := strings.CutPrefix(name, candlePrefix); ok && Interval(rest).Valid() {
		return Channel(name), true
	}
	return "", false
}

// Private reports whether the channel requires an authenticated session.
func (c Channel) Private() bool {
	switch c {
	case ChannelBalance, ChannelPosition, ChannelOrder:
		return true
	default:
		return false
	}
}

// Topic renders the subscription argument for the channel, e.g. "depth:BTC-USD".
// The selector is the market code, or the coin for the balance channel.
func (c Channel) Topic(selector string) string {
	if c == ChannelLiquidation {
		return string(c)
	}
	return string(c) + ":" + selector
}

func (c Channel) String() string { return string(c) }
