// Package collaboratorv1 declares the external services the clearing core consumes.
package collaboratorv1

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrRejected is a permanent refusal by a collaborator. It is never retried.
	ErrRejected = errors.New("rejected by collaborator")
	// ErrUnavailable is a transient collaborator failure.
	ErrUnavailable = errors.New("collaborator unavailable")
)

// Warehouse holds and transfers warehouse receipts.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=collaboratorv1_mock
type Warehouse interface {
	// LocateReceipts picks receipts owned by owner covering quantity of instrument.
	LocateReceipts(ctx context.Context, owner, instrument string, quantity decimal.Decimal) ([]string, error)
	HoldForDelivery(ctx context.Context, receiptID string) (string, error)
	ReleaseHold(ctx context.Context, token string) error
	TransferOwnership(ctx context.Context, receiptID, newOwner string) error
}

// PaymentRail moves cash through settlement-reserved accounts.
type PaymentRail interface {
	Escrow(ctx context.Context, amount decimal.Decimal, currency, fromAccount string) (string, error)
	Release(ctx context.Context, token, toAccount string) error
	Reverse(ctx context.Context, token string) error
}

// MemberRegistry answers KYC and capital questions about members.
type MemberRegistry interface {
	IsEligibleToTrade(ctx context.Context, memberID string) (bool, error)
	CapitalOnFile(ctx context.Context, memberID string) (decimal.Decimal, error)
}

// PriceReference provides marks for mark-to-market.
type PriceReference interface {
	LatestPrice(ctx context.Context, instrument string) (decimal.Decimal, error)
}
