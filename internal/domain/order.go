package domain

import (
	"fmt"
	"time"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderType is how the order is priced.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// ParseOrderType converts a config string into an OrderType.
func ParseOrderType(s string) (OrderType, error) {
	switch OrderType(s) {
	case OrderTypeLimit, OrderTypeMarket:
		return OrderType(s), nil
	}
	return "", fmt.Errorf("domain.ParseOrderType: unknown order type %q", s)
}

// OrderStatus is the broker-reported lifecycle summary of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderOpen      OrderStatus = "open"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
)

// Unresolved reports whether the broker may still change the order.
func (s OrderStatus) Unresolved() bool {
	return s == OrderPending || s == OrderOpen
}

// Order is a snapshot of an order as returned by the broker. The core never
// mutates it; it only replaces cached snapshots with newer ones.
type Order struct {
	ID     string
	Symbol string
	Side   OrderSide
	Type   OrderType
	Status OrderStatus
	Closed bool

	RequestedQuantity float64
	OrderedUnitPrice  float64 // limit price; 0 for market orders
	FilledQuantity    float64
	FilledUnitPrice   float64
	FilledTotalValue  float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Label is a human readable description, e.g. "BUY LIMIT".
func (o Order) Label() string {
	return fmt.Sprintf("%s %s", o.Side, o.Type)
}

// IsFilled is shorthand for Status == OrderFilled.
func (o Order) IsFilled() bool {
	return o.Status == OrderFilled
}

// LogAttrs returns slog-friendly key/value pairs describing the order.
func (o Order) LogAttrs() []any {
	return []any{
		"order_id", o.ID,
		"order", o.Label(),
		"status", string(o.Status),
		"closed", o.Closed,
		"requested_qty", o.RequestedQuantity,
		"ordered_price", o.OrderedUnitPrice,
		"filled_qty", o.FilledQuantity,
		"filled_price", o.FilledUnitPrice,
	}
}
