package orderbookv1

import (
	"context"
	"time"

	snapshotv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/snapshot/v1"
	"github.com/shopspring/decimal"
)

// SubmitResult is the outcome of one submission.
type SubmitResult struct {
	Order    *Order  `json:"order"`
	Accepted bool    `json:"accepted"`
	Trades   []Trade `json:"trades"`
}

// Orderbook defines the single-writer book of one instrument.
type Orderbook interface {
	Submit(order *Order) (*SubmitResult, error)
	Cancel(orderID string) (*Order, error)
	Expire(now time.Time) []*Order

	Halt()
	Resume()
	Halted() bool

	BestBid() (decimal.Decimal, bool)
	BestAsk() (decimal.Decimal, bool)
	Depth(side Side) []Level

	Snapshot() *snapshotv1.Snapshot
	Restore(snapshot *snapshotv1.Snapshot) error
}

// TradeJournal durably records trades before a submission is acknowledged.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=orderbookv1_mock
type TradeJournal interface {
	// Append is idempotent on trade id.
	Append(ctx context.Context, trades ...Trade) error
	// Unnovated returns journaled trades that have no exposures recorded.
	Unnovated(ctx context.Context) ([]Trade, error)
}

// MarginGate refuses trading to members whose margin is in default.
type MarginGate interface {
	CanTrade(ctx context.Context, memberID string) (bool, error)
}
