// Package core holds the trading engine's shared vocabulary: market data,
// orders, holdings, trades and equity samples. It has no dependency on any
// other internal package, so it can be imported by every layer.
package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the sign of an order's quantity, kept as a convenience accessor
// rather than a separate field — quantity itself carries the sign.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// MarketDataEvent is an immutable tick: a single observed price for a
// symbol at a point in time. Timestamps within one stream are non-decreasing.
type MarketDataEvent struct {
	Timestamp time.Time
	Symbol    string
	Price     decimal.Decimal
}

// OrderStatus is the order lifecycle tag. Terminal states are Filled,
// Canceled and Failed.
type OrderStatus int

const (
	Pending OrderStatus = iota
	Active
	PartiallyFilled
	Filled
	Canceled
	Failed
)

func (s OrderStatus) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Active:
		return "Active"
	case PartiallyFilled:
		return "PartiallyFilled"
	case Filled:
		return "Filled"
	case Canceled:
		return "Canceled"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the status is terminal (no further transitions).
func (s OrderStatus) Terminal() bool {
	return s == Filled || s == Canceled || s == Failed
}

// Order is mutable and unique by identity. Quantity is nonzero and signed:
// positive is a buy, negative is a sell. FilledQuantity is unsigned,
// monotonically nondecreasing, and never exceeds |Quantity|.
type Order struct {
	ID             string
	Symbol         string
	Quantity       int64
	LimitPrice     decimal.Decimal
	Status         OrderStatus
	FilledQuantity int64
}

// AbsQuantity returns |Quantity|.
func (o *Order) AbsQuantity() int64 {
	if o.Quantity < 0 {
		return -o.Quantity
	}
	return o.Quantity
}

// RemainingQuantity returns |quantity| - filled_quantity.
func (o *Order) RemainingQuantity() int64 {
	return o.AbsQuantity() - o.FilledQuantity
}

// OrderSide returns Buy for a positive quantity, Sell otherwise.
func (o *Order) OrderSide() Side {
	if o.Quantity < 0 {
		return Sell
	}
	return Buy
}

// Holding is one symbol's position within a Portfolio. When Quantity is
// zero the entry must not exist in the holdings map — callers delete it.
type Holding struct {
	Quantity int64
	AvgPrice decimal.Decimal
}

// Trade is an immutable tracker record of a fill.
type Trade struct {
	Timestamp      time.Time
	Symbol         string
	SignedQuantity int64
	Price          decimal.Decimal
}

// EquitySample is one point of the append-only equity curve.
type EquitySample struct {
	Timestamp  time.Time
	TotalValue decimal.Decimal
}

// Action is the direction a Signal asks for; Hold produces no order.
type Action int

const (
	Hold Action = iota
	BuySignal
	SellSignal
)

func (a Action) String() string {
	switch a {
	case BuySignal:
		return "Buy"
	case SellSignal:
		return "Sell"
	default:
		return "Hold"
	}
}

// Signal is what a Strategy emits for a tick: zero or more of these are
// turned into candidate Orders by the TradingEngine.
type Signal struct {
	Symbol     string
	Quantity   int64
	LimitPrice decimal.Decimal
	Action     Action
}

// OrderUpdate is what a Gateway publishes back to order-update subscribers.
// It carries the full current state of the order (not a delta); callers
// diff against previously-known filled quantity.
type OrderUpdate struct {
	Order *Order
}

// AccountState is a point-in-time snapshot of the brokerage account: cash
// and buying power, current mark-to-market portfolio value, open positions
// keyed by symbol, and orders still working at the venue.
type AccountState struct {
	Cash           decimal.Decimal
	BuyingPower    decimal.Decimal
	PortfolioValue decimal.Decimal
	Positions      map[string]Holding
	OpenOrders     []Order
}
