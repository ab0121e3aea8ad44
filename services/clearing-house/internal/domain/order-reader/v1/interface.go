package orderreaderv1

import (
	"context"
	"errors"
	"time"

	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// ErrMalformedMessage marks an intake message that cannot be decoded. It is
// committed and skipped.
var ErrMalformedMessage = errors.New("malformed order message")

// Action is what an intake message asks for.
type Action string

const (
	ActionPlace  Action = "place"
	ActionCancel Action = "cancel"
)

// OrderRequest is the JSON payload of an order intake message.
type OrderRequest struct {
	Action      Action                  `json:"action"`
	OrderID     string                  `json:"orderID"`
	MemberID    string                  `json:"memberID"`
	Instrument  string                  `json:"instrument"`
	Side        orderbookv1.Side        `json:"side"`
	Type        orderbookv1.OrderType   `json:"type"`
	TimeInForce orderbookv1.TimeInForce `json:"timeInForce"`
	Quantity    decimal.Decimal         `json:"quantity"`
	Price       decimal.Decimal         `json:"price"`
	Offset      int64                   `json:"-"`
}

// ToOrder builds the order to submit. The request's id is kept so a replayed
// message maps to the same order.
func (r OrderRequest) ToOrder(now time.Time) *orderbookv1.Order {
	order := orderbookv1.NewOrder(r.MemberID, r.Instrument, r.Side, r.Type, r.TimeInForce, r.Quantity, r.Price)
	if r.OrderID != "" {
		order.ID = r.OrderID
	}
	order.SubmittedAt = now
	return order
}

// OrderReader defines the interface for reading orders from a source.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=orderreaderv1_mock
type OrderReader interface {
	// ReadMessage reads a message and returns it with the parsed request.
	ReadMessage(ctx context.Context) (kafka.Message, OrderRequest, error)
	// CommitMessages commits the messages after processing.
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
