package coinflex

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/coinflex-exchange/api-connectors/internal/command"
	"github.com/coinflex-exchange/api-connectors/internal/schema"
)

// Tag is the correlation token echoed in the venue's acknowledgment.
type Tag = command.Tag

// IntTag and StringTag build tags; the zero Tag is sent as 1.
var (
	IntTag    = command.IntTag
	StringTag = command.StringTag
)

// PlaceLimitOrder places a LIMIT order in the client's market.
func (c *Client) PlaceLimitOrder(ctx context.Context, clientOrderID uint64, side schema.Side, price, quantity decimal.Decimal, tif schema.TimeInForce, tag Tag) error {
	return c.PlaceOrder(ctx, schema.PlaceOrder{
		ClientOrderID: clientOrderID,
		Side:          side,
		Type:          schema.OrderTypeLimit,
		Quantity:      quantity,
		Price:         price,
		TimeInForce:   tif,
	}, tag)
}

// PlaceMarketOrder places a MARKET order in the client's market.
func (c *Client) PlaceMarketOrder(ctx context.Context, clientOrderID uint64, side schema.Side, quantity decimal.Decimal, tag Tag) error {
	return c.PlaceOrder(ctx, schema.PlaceOrder{
		ClientOrderID: clientOrderID,
		Side:          side,
		Type:          schema.OrderTypeMarket,
		Quantity:      quantity,
	}, tag)
}

// PlaceStopOrder places a STOP order in the client's market.
func (c *Client) PlaceStopOrder(ctx context.Context, clientOrderID uint64, side schema.Side, stopPrice, limitPrice, quantity decimal.Decimal, tif schema.TimeInForce, tag Tag) error {
	return c.PlaceOrder(ctx, schema.PlaceOrder{
		ClientOrderID: clientOrderID,
		Side:          side,
		Type:          schema.OrderTypeStop,
		Quantity:      quantity,
		StopPrice:     stopPrice,
		LimitPrice:    limitPrice,
		TimeInForce:   tif,
	}, tag)
}

// PlaceOrder places one order. An empty market code uses the client's market.
func (c *Client) PlaceOrder(ctx context.Context, order schema.PlaceOrder, tag Tag) error {
	return c.command(ctx, command.OpPlaceOrder, func() ([]byte, error) {
		return c.encoder.PlaceOrder(order, tag)
	})
}

// PlaceOrders places up to 20 orders in one request. Larger batches are refused and nothing is sent.
func (c *Client) PlaceOrders(ctx context.Context, orders []schema.PlaceOrder, tag Tag) error {
	return c.command(ctx, command.OpPlaceOrders, func() ([]byte, error) {
		return c.encoder.PlaceOrders(orders, tag)
	})
}

// ModifyOrder amends an open order in the client's market.
func (c *Client) ModifyOrder(ctx context.Context, orderID string, side schema.Side, price, quantity decimal.Decimal, tag Tag) error {
	order := schema.ModifyOrder{OrderID: orderID, Side: side, Price: price, Quantity: quantity}
	return c.command(ctx, command.OpModifyOrder, func() ([]byte, error) {
		return c.encoder.ModifyOrder(order, tag)
	})
}

// ModifyOrders amends up to 20 orders in one request.
func (c *Client) ModifyOrders(ctx context.Context, orders []schema.ModifyOrder, tag Tag) error {
	return c.command(ctx, command.OpModifyOrders, func() ([]byte, error) {
		return c.encoder.ModifyOrders(orders, tag)
	})
}

// CancelOrder cancels an open order in the client's market.
func (c *Client) CancelOrder(ctx context.Context, orderID string, tag Tag) error {
	order := schema.CancelOrder{OrderID: orderID}
	return c.command(ctx, command.OpCancelOrder, func() ([]byte, error) {
		return c.encoder.CancelOrder(order, tag)
	})
}

// CancelOrders cancels up to 20 orders in one request.
func (c *Client) CancelOrders(ctx context.Context, orders []schema.CancelOrder, tag Tag) error {
	return c.command(ctx, command.OpCancelOrders, func() ([]byte, error) {
		return c.encoder.CancelOrders(orders, tag)
	})
}

func (c *Client) command(ctx context.Context, op string, encode func() ([]byte, error)) error {
	payload, err := encode()
	if err != nil {
		c.refuse(ctx, op, err)
		return err
	}
	return c.send(ctx, op, payload)
}
