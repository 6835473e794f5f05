package command

import (
	"strconv"
	"strings"

	"github.com/coinflex-exchange/api-connectors/errs"
	"github.com/coinflex-exchange/api-connectors/internal/schema"
)

type placeOrderData struct {
	ClientOrderID uint64             `json:"clientOrderId"`
	MarketCode    string             `json:"marketCode"`
	Side          schema.Side        `json:"side"`
	OrderType     schema.OrderType   `json:"orderType"`
	Quantity      *number            `json:"quantity"`
	TimeInForce   schema.TimeInForce `json:"timeInForce,omitempty"`
	Price         *number            `json:"price,omitempty"`
	StopPrice     *number            `json:"stopPrice,omitempty"`
	LimitPrice    *number            `json:"limitPrice,omitempty"`
}

type modifyOrderData struct {
	MarketCode string           `json:"marketCode"`
	OrderID    uint64           `json:"orderId"`
	Side       schema.Side      `json:"side"`
	OrderType  schema.OrderType `json:"orderType,omitempty"`
	Price      *number          `json:"price"`
	Quantity   *number          `json:"quantity"`
}

type cancelOrderData struct {
	MarketCode string `json:"marketCode"`
	OrderID    uint64 `json:"orderId"`
}

// Encoder builds command envelopes for one market. It is pure and safe for concurrent use.
// Validation covers shape only: required fields per order type and batch bounds.
type Encoder struct {
	market string
}

// NewEncoder returns an encoder whose default market code is market.
func NewEncoder(market string) *Encoder {
	return &Encoder{market: strings.TrimSpace(market)}
}

// Market returns the default market code.
func (e *Encoder) Market() string { return e.market }

// Subscribe builds a subscription request for the given topics.
func (e *Encoder) Subscribe(topics []string, tag Tag) ([]byte, error) {
	if len(topics) == 0 {
		return nil, errs.Invalid("command.subscribe", "at least one topic is required")
	}
	return Envelope{Op: OpSubscribe, Args: topics, Tag: tag}.Marshal()
}

// PlaceOrder builds a single order placement.
func (e *Encoder) PlaceOrder(order schema.PlaceOrder, tag Tag) ([]byte, error) {
	data, err := e.placeData(order)
	if err != nil {
		return nil, err
	}
	return Envelope{Op: OpPlaceOrder, Data: data, Tag: tag}.Marshal()
}

// PlaceOrders builds a batched order placement of at most MaxBatchSize orders.
func (e *Encoder) PlaceOrders(orders []schema.PlaceOrder, tag Tag) ([]byte, error) {
	if err := checkBatch(OpPlaceOrders, len(orders)); err != nil {
		return nil, err
	}
	batch := make([]placeOrderData, 0, len(orders))
	for i, order := range orders {
		data, err := e.placeData(order)
		if err != nil {
			return nil, batchEntryError(OpPlaceOrders, i, err)
		}
		batch = append(batch, data)
	}
	return Envelope{Op: OpPlaceOrders, DataArray: batch, Tag: tag}.Marshal()
}

// ModifyOrder builds a single order amendment.
func (e *Encoder) ModifyOrder(order schema.ModifyOrder, tag Tag) ([]byte, error) {
	data, err := e.modifyData(order)
	if err != nil {
		return nil, err
	}
	return Envelope{Op: OpModifyOrder, Data: data, Tag: tag}.Marshal()
}

// ModifyOrders builds a batched amendment of at most MaxBatchSize orders.
func (e *Encoder) ModifyOrders(orders []schema.ModifyOrder, tag Tag) ([]byte, error) {
	if err := checkBatch(OpModifyOrders, len(orders)); err != nil {
		return nil, err
	}
	batch := make([]modifyOrderData, 0, len(orders))
	for i, order := range orders {
		data, err := e.modifyData(order)
		if err != nil {
			return nil, batchEntryError(OpModifyOrders, i, err)
		}
		batch = append(batch, data)
	}
	return Envelope{Op: OpModifyOrders, DataArray: batch, Tag: tag}.Marshal()
}

// CancelOrder builds a single cancellation.
func (e *Encoder) CancelOrder(order schema.CancelOrder, tag Tag) ([]byte, error) {
	data, err := e.cancelData(order)
	if err != nil {
		return nil, err
	}
	return Envelope{Op: OpCancelOrder, Data: data, Tag: tag}.Marshal()
}

// CancelOrders builds a batched cancellation of at most MaxBatchSize orders.
func (e *Encoder) CancelOrders(orders []schema.CancelOrder, tag Tag) ([]byte, error) {
	if err := checkBatch(OpCancelOrders, len(orders)); err != nil {
		return nil, err
	}
	batch := make([]cancelOrderData, 0, len(orders))
	for i, order := range orders {
		data, err := e.cancelData(order)
		if err != nil {
			return nil, batchEntryError(OpCancelOrders, i, err)
		}
		batch = append(batch, data)
	}
	return Envelope{Op: OpCancelOrders, DataArray: batch, Tag: tag}.Marshal()
}

func (e *Encoder) marketOr(code string) string {
	if code = strings.TrimSpace(code); code != "" {
		return code
	}
	return e.market
}

func (e *Encoder) placeData(order schema.PlaceOrder) (placeOrderData, error) {
	const op = "command." + OpPlaceOrder
	data := placeOrderData{
		ClientOrderID: order.ClientOrderID,
		MarketCode:    e.marketOr(order.MarketCode),
		Side:          order.Side,
		OrderType:     order.Type,
	}
	if data.ClientOrderID == 0 {
		return data, errs.Invalid(op, "clientOrderId is required")
	}
	if data.MarketCode == "" {
		return data, errs.Invalid(op, "marketCode is required")
	}
	if !order.Side.Valid() {
		return data, errs.Invalid(op, "side must be BUY or SELL", errs.WithField("side", string(order.Side)))
	}
	if order.Quantity.IsZero() {
		return data, errs.Invalid(op, "quantity is required")
	}
	data.Quantity = num(order.Quantity)

	switch order.Type {
	case schema.OrderTypeLimit:
		if order.Price.IsZero() {
			return data, errs.Invalid(op, "LIMIT order requires price")
		}
		if order.TimeInForce == "" {
			return data, errs.Invalid(op, "LIMIT order requires timeInForce")
		}
		data.Price = num(order.Price)
		data.TimeInForce = order.TimeInForce
	case schema.OrderTypeMarket:
	case schema.OrderTypeStop:
		if order.StopPrice.IsZero() || order.LimitPrice.IsZero() {
			return data, errs.Invalid(op, "STOP order requires stopPrice and limitPrice")
		}
		if order.TimeInForce == "" {
			return data, errs.Invalid(op, "STOP order requires timeInForce")
		}
		data.StopPrice = num(order.StopPrice)
		data.LimitPrice = num(order.LimitPrice)
		data.TimeInForce = order.TimeInForce
	default:
		return data, errs.Invalid(op, "orderType must be LIMIT, MARKET or STOP",
			errs.WithField("orderType", string(order.Type)))
	}
	return data, nil
}

func (e *Encoder) modifyData(order schema.ModifyOrder) (modifyOrderData, error) {
	const op = "command." + OpModifyOrder
	data := modifyOrderData{
		MarketCode: e.marketOr(order.MarketCode),
		Side:       order.Side,
		OrderType:  order.Type,
	}
	id, err := orderID(op, order.OrderID)
	if err != nil {
		return data, err
	}
	data.OrderID = id
	if data.MarketCode == "" {
		return data, errs.Invalid(op, "marketCode is required")
	}
	if !order.Side.Valid() {
		return data, errs.Invalid(op, "side must be BUY or SELL", errs.WithField("side", string(order.Side)))
	}
	if order.Price.IsZero() || order.Quantity.IsZero() {
		return data, errs.Invalid(op, "price and quantity are required")
	}
	data.Price = num(order.Price)
	data.Quantity = num(order.Quantity)
	return data, nil
}

func (e *Encoder) cancelData(order schema.CancelOrder) (cancelOrderData, error) {
	data := cancelOrderData{MarketCode: e.marketOr(order.MarketCode)}
	id, err := orderID("command."+OpCancelOrder, order.OrderID)
	if err != nil {
		return data, err
	}
	data.OrderID = id
	if data.MarketCode == "" {
		return data, errs.Invalid("command."+OpCancelOrder, "marketCode is required")
	}
	return data, nil
}

// orderID parses a venue order id. The venue expects it as a JSON number.
func orderID(op, raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errs.Invalid(op, "orderId is required")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errs.Invalid(op, "orderId must be a positive integer", errs.WithField("orderId", raw))
	}
	return id, nil
}

func checkBatch(op string, size int) error {
	if size == 0 {
		return errs.Invalid("command."+op, "batch is empty")
	}
	if size > MaxBatchSize {
		return errs.Invalid("command."+op, "batch requests are limited to 20 orders",
			errs.WithField("size", strconv.Itoa(size)))
	}
	return nil
}

func batchEntryError(op string, index int, cause error) error {
	return errs.New("command."+op, errs.CodeInvalid,
		errs.WithMessage("invalid batch entry"),
		errs.WithField("index", strconv.Itoa(index)),
		errs.WithCause(cause))
}
