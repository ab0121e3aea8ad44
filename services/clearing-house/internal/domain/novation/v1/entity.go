package novationv1

import (
	"context"
	"errors"
	"time"

	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
	"github.com/shopspring/decimal"
)

// ErrAlreadyNovated is returned when a trade already has exposures recorded.
var ErrAlreadyNovated = errors.New("trade already novated")

// Direction is the cash direction of an exposure from the member's side.
type Direction string

const (
	// Payable means the member pays the CCP.
	Payable Direction = "payable"
	// Receivable means the CCP pays the member.
	Receivable Direction = "receivable"
)

// Kind distinguishes novated trade legs from carried-over obligations and
// auctioned positions.
type Kind string

const (
	KindTrade    Kind = "trade"
	KindRequeue  Kind = "requeue"
	KindTransfer Kind = "transfer"
)

// OpensPosition reports whether the exposure changes a member's open position.
func (k Kind) OpensPosition() bool {
	return k == KindTrade || k == KindTransfer
}

// NovatedExposure is one CCP-facing leg of a trade.
type NovatedExposure struct {
	ID             string           `json:"id"`
	TradeID        string           `json:"tradeID"`
	Kind           Kind             `json:"kind"`
	MemberID       string           `json:"memberID"`
	Counterparty   string           `json:"counterparty"`
	Instrument     string           `json:"instrument"`
	Side           orderbookv1.Side `json:"side"`
	Quantity       decimal.Decimal  `json:"quantity"`
	Price          decimal.Decimal  `json:"price"`
	Amount         decimal.Decimal  `json:"amount"`
	Currency       string           `json:"currency"`
	Direction      Direction        `json:"direction"`
	SettlementDate time.Time        `json:"settlementDate"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// SignedAmount is positive when the member owes the CCP.
func (e NovatedExposure) SignedAmount() decimal.Decimal {
	if e.Direction == Receivable {
		return e.Amount.Neg()
	}
	return e.Amount
}

// SignedDelivery is positive when the member delivers metal.
func (e NovatedExposure) SignedDelivery() decimal.Decimal {
	if e.Side == orderbookv1.SideSell {
		return e.Quantity
	}
	return e.Quantity.Neg()
}

// SignedQuantity is the position effect: positive for a long.
func (e NovatedExposure) SignedQuantity() decimal.Decimal {
	return e.SignedDelivery().Neg()
}

// Store records exposures.
//
//go:generate mockgen -source entity.go -destination=mock/entity_mock.go -package=novationv1_mock
type Store interface {
	// Record stores every exposure of one trade or none of them. It returns
	// ErrAlreadyNovated if the trade already has exposures.
	Record(ctx context.Context, exposures ...NovatedExposure) error
	ByTrade(ctx context.Context, tradeID string) ([]NovatedExposure, error)
	// Unsettled returns exposures whose settlement date has not been marked settled.
	Unsettled(ctx context.Context) ([]NovatedExposure, error)
	MarkSettled(ctx context.Context, settlementDate time.Time) error
}
