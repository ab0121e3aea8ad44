package marginv1

import (
	"context"
	"time"

	nettingv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/netting/v1"
)

// AccountStore persists margin accounts with optimistic versioning.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=marginv1_mock
type AccountStore interface {
	// Get returns ErrAccountNotFound when the member has no account.
	Get(ctx context.Context, memberID string) (*MarginAccount, error)
	// Save writes account if the stored version equals account.Version and
	// bumps the version, else returns ErrVersionConflict.
	Save(ctx context.Context, account *MarginAccount) error
	Members(ctx context.Context) ([]string, error)
}

// PriceHistory provides daily closes, oldest first.
type PriceHistory interface {
	DailyCloses(ctx context.Context, instrument string, days int) ([]PricePoint, error)
}

// PositionSource exposes open positions as copies.
type PositionSource interface {
	OpenPositions(memberID string) []nettingv1.Position
	AllOpenPositions() map[string][]nettingv1.Position
}

// DefaultHandler is invoked for margin calls not cured in time.
type DefaultHandler interface {
	HandleMarginDefault(ctx context.Context, call MarginCall) error
}

// Clock returns the current time.
type Clock func() time.Time
