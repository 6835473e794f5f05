package schema

import "github.com/shopspring/decimal"

// Side is the order direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether the side is BUY or SELL.
func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

// OrderType is the venue order type.
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeStop   OrderType = "STOP"
)

// TimeInForce is the venue time-in-force policy.
type TimeInForce string

const (
	TimeInForceGTC              TimeInForce = "GTC"
	TimeInForceIOC              TimeInForce = "IOC"
	TimeInForceFOK              TimeInForce = "FOK"
	TimeInForceMakerOnly        TimeInForce = "MAKER_ONLY"
	TimeInForceMakerOnlyReprice TimeInForce = "MAKER_ONLY_REPRICE"
)

// PlaceOrder describes a new order. Which price fields are required depends on Type:
// LIMIT needs Price and TimeInForce, MARKET needs neither, STOP needs StopPrice,
// LimitPrice and TimeInForce.
type PlaceOrder struct {
	ClientOrderID uint64
	MarketCode    string
	Side          Side
	Type          OrderType
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	StopPrice     decimal.Decimal
	LimitPrice    decimal.Decimal
	TimeInForce   TimeInForce
}

// ModifyOrder amends a resting order identified by its venue order id.
type ModifyOrder struct {
	OrderID    string
	MarketCode string
	Side       Side
	Type       OrderType
	Price      decimal.Decimal
	Quantity   decimal.Decimal
}

// CancelOrder cancels a resting order identified by its venue order id.
type CancelOrder struct {
	OrderID    string
	MarketCode string
}
