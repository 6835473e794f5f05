package coinflex

import (
	"context"
	"strconv"

	"github.com/coinflex-exchange/api-connectors/internal/command"
	"github.com/coinflex-exchange/api-connectors/internal/observability"
	"github.com/coinflex-exchange/api-connectors/internal/schema"
)

// Subscribe sends a subscription for ch on the client's market and creates its buffer.
// The balance channel subscribes to every coin.
func (c *Client) Subscribe(ctx context.Context, ch schema.Channel) error {
	selector := c.market
	if ch == schema.ChannelBalance {
		selector = schema.DefaultBalanceCoin
	}
	return c.subscribe(ctx, ch, selector)
}

func (c *Client) subscribe(ctx context.Context, ch schema.Channel, selector string) error {
	if ch.Private() && !c.Authenticated() {
		c.logger.Debug("subscribing to a private channel before authentication was confirmed",
			observability.Field{Key: "channel", Value: ch.String()})
	}
	payload, err := c.encoder.Subscribe([]string{ch.Topic(selector)}, command.DefaultTag)
	if err != nil {
		c.refuse(ctx, command.OpSubscribe, err)
		return err
	}
	if err := c.send(ctx, command.OpSubscribe, payload); err != nil {
		return err
	}
	c.store.Ensure(ch)
	return nil
}

// SubscribeBalance subscribes to balances for coin, or every coin when coin is empty.
func (c *Client) SubscribeBalance(ctx context.Context, coin string) error {
	if coin == "" {
		coin = schema.DefaultBalanceCoin
	}
	return c.subscribe(ctx, schema.ChannelBalance, coin)
}

// SubscribePosition subscribes to positions in the client's market.
func (c *Client) SubscribePosition(ctx context.Context) error {
	return c.subscribe(ctx, schema.ChannelPosition, c.market)
}

// SubscribeOrder subscribes to order updates; it also enables buffering of order acknowledgments.
func (c *Client) SubscribeOrder(ctx context.Context) error {
	return c.subscribe(ctx, schema.ChannelOrder, c.market)
}

// SubscribeLiquidation subscribes to liquidation RFQs across all markets.
func (c *Client) SubscribeLiquidation(ctx context.Context) error {
	return c.subscribe(ctx, schema.ChannelLiquidation, "")
}

// SubscribeDepth subscribes to the order book at level 5, 10 or 25, or the full book for DepthFull.
func (c *Client) SubscribeDepth(ctx context.Context, level schema.DepthLevel) error {
	ch, err := schema.DepthChannel(level)
	if err != nil {
		c.refuse(ctx, command.OpSubscribe, err)
		return err
	}
	return c.subscribe(ctx, ch, c.market)
}

// SubscribeTrade subscribes to trades in the client's market.
func (c *Client) SubscribeTrade(ctx context.Context) error {
	return c.subscribe(ctx, schema.ChannelTrade, c.market)
}

// SubscribeTicker subscribes to ticker updates in the client's market.
func (c *Client) SubscribeTicker(ctx context.Context) error {
	return c.subscribe(ctx, schema.ChannelTicker, c.market)
}

// SubscribeKline subscribes to candles of the given interval.
func (c *Client) SubscribeKline(ctx context.Context, interval schema.Interval) error {
	ch, err := schema.CandleChannel(interval)
	if err != nil {
		c.refuse(ctx, command.OpSubscribe, err)
		return err
	}
	return c.subscribe(ctx, ch, c.market)
}

// SubscribeMarket subscribes to market reference data.
func (c *Client) SubscribeMarket(ctx context.Context) error {
	return c.subscribe(ctx, schema.ChannelMarket, c.market)
}

// Get pops the oldest buffered event of ch. It returns false when nothing is buffered or
// the channel was never subscribed.
func (c *Client) Get(ch schema.Channel) (schema.Event, bool) {
	if !c.store.Has(ch) {
		c.logger.Debug("not subscribed to channel", observability.Field{Key: "channel", Value: ch.String()})
		return schema.Event{}, false
	}
	return c.store.PopOldest(ch)
}

func (c *Client) GetBalance() (schema.Event, bool)     { return c.Get(schema.ChannelBalance) }
func (c *Client) GetPosition() (schema.Event, bool)    { return c.Get(schema.ChannelPosition) }
func (c *Client) GetOrder() (schema.Event, bool)       { return c.Get(schema.ChannelOrder) }
func (c *Client) GetLiquidation() (schema.Event, bool) { return c.Get(schema.ChannelLiquidation) }
func (c *Client) GetTrade() (schema.Event, bool)       { return c.Get(schema.ChannelTrade) }
func (c *Client) GetTicker() (schema.Event, bool)      { return c.Get(schema.ChannelTicker) }
func (c *Client) GetMarket() (schema.Event, bool)      { return c.Get(schema.ChannelMarket) }

// GetDepth pops the oldest order book event for level. An invalid level is refused
// without touching any buffer.
func (c *Client) GetDepth(level schema.DepthLevel) (schema.Event, bool) {
	ch, err := schema.DepthChannel(level)
	if err != nil {
		c.pollRefused("get_depth", "level", strconv.Itoa(int(level)))
		return schema.Event{}, false
	}
	return c.Get(ch)
}

// GetKline pops the oldest candle event for interval. An interval outside the supported
// set is refused without touching any buffer.
func (c *Client) GetKline(interval schema.Interval) (schema.Event, bool) {
	ch, err := schema.CandleChannel(interval)
	if err != nil {
		c.pollRefused("get_kline", "interval", string(interval))
		return schema.Event{}, false
	}
	return c.Get(ch)
}

func (c *Client) pollRefused(op, key, value string) {
	c.logger.Debug("invalid poll selector", observability.Field{Key: key, Value: value})
	c.metrics.RecordPollRefused(context.Background(), op, "invalid_request")
}
