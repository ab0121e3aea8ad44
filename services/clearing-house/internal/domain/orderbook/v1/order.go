package orderbookv1

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	// SideBuy is a bid.
	SideBuy Side = "buy"
	// SideSell is an ask.
	SideSell Side = "sell"
)

// Opposite returns the side an order of s matches against.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderType represents the type of order.
type OrderType string

const (
	// OrderTypeLimit represents a limit order.
	OrderTypeLimit OrderType = "limit"
	// OrderTypeMarket represents a market order.
	OrderTypeMarket OrderType = "market"
)

// TimeInForce controls what happens to an order's unfilled remainder.
type TimeInForce string

const (
	// GTC rests until filled or cancelled.
	GTC TimeInForce = "GTC"
	// IOC fills what it can and cancels the rest.
	IOC TimeInForce = "IOC"
	// FOK fills completely or not at all.
	FOK TimeInForce = "FOK"
	// DAY rests until the end of the trading day.
	DAY TimeInForce = "DAY"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusExpired         OrderStatus = "expired"
)

// IsTerminal reports whether no further fills can happen.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected, OrderStatusExpired:
		return true
	}
	return false
}

// Order represents a single order owned by a member.
type Order struct {
	ID           string          `json:"id"`
	MemberID     string          `json:"memberID"`
	Instrument   string          `json:"instrument"`
	Side         Side            `json:"side"`
	Type         OrderType       `json:"type"`
	TimeInForce  TimeInForce     `json:"timeInForce"`
	Quantity     decimal.Decimal `json:"quantity"`
	Remaining    decimal.Decimal `json:"remaining"`
	Price        decimal.Decimal `json:"price"`
	Sequence     int64           `json:"sequence"`
	Status       OrderStatus     `json:"status"`
	SubmittedAt  time.Time       `json:"submittedAt"`
	ExpiresAt    *time.Time      `json:"expiresAt,omitempty"`
	RejectReason string          `json:"rejectReason,omitempty"`
}

// NewOrder creates a pending order. Market orders carry a zero price.
func NewOrder(memberID, instrument string, side Side, orderType OrderType, tif TimeInForce, quantity, price decimal.Decimal) *Order {
	if orderType == OrderTypeMarket {
		price = decimal.Zero
	}
	return &Order{
		ID:          ulid.Make().String(),
		MemberID:    memberID,
		Instrument:  instrument,
		Side:        side,
		Type:        orderType,
		TimeInForce: tif,
		Quantity:    quantity,
		Remaining:   quantity,
		Price:       price,
		Status:      OrderStatusPending,
		SubmittedAt: time.Now().UTC(),
	}
}

// IsBuy checks if the order is a bid.
func (o *Order) IsBuy() bool {
	return o.Side == SideBuy
}

// Filled returns the executed quantity.
func (o *Order) Filled() decimal.Decimal {
	return o.Quantity.Sub(o.Remaining)
}

// IsFilled checks if nothing remains.
func (o *Order) IsFilled() bool {
	return !o.Remaining.IsPositive()
}

// Validate checks the order parameters.
func (o *Order) Validate() error {
	if !o.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if !o.Side.Valid() {
		return ErrInvalidSide
	}
	switch o.Type {
	case OrderTypeLimit:
		if !o.Price.IsPositive() {
			return ErrInvalidPrice
		}
	case OrderTypeMarket:
	default:
		return ErrInvalidOrderType
	}
	switch o.TimeInForce {
	case GTC, IOC, FOK, DAY:
	default:
		return ErrInvalidTimeInForce
	}
	return nil
}

// Accepts reports whether the order is willing to trade at price.
func (o *Order) Accepts(price decimal.Decimal) bool {
	if o.Type == OrderTypeMarket {
		return true
	}
	if o.IsBuy() {
		return o.Price.GreaterThanOrEqual(price)
	}
	return o.Price.LessThanOrEqual(price)
}

// Rests reports whether an unfilled remainder stays on the book.
func (o *Order) Rests() bool {
	return o.Type == OrderTypeLimit && (o.TimeInForce == GTC || o.TimeInForce == DAY)
}

// Fill reduces the remaining quantity and moves the status forward.
func (o *Order) Fill(quantity decimal.Decimal) {
	o.Remaining = o.Remaining.Sub(quantity)
	if o.IsFilled() {
		o.Status = OrderStatusFilled
		return
	}
	o.Status = OrderStatusPartiallyFilled
}

// Reject marks the order rejected with reason.
func (o *Order) Reject(reason error) {
	o.Status = OrderStatusRejected
	o.RejectReason = reason.Error()
}

// Expired reports whether a DAY order is past its expiry at now.
func (o *Order) Expired(now time.Time) bool {
	return o.ExpiresAt != nil && !now.Before(*o.ExpiresAt)
}

// Clone returns a copy safe to hand to other goroutines.
func (o *Order) Clone() *Order {
	c := *o
	if o.ExpiresAt != nil {
		t := *o.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}
