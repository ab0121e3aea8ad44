package snapshotv1

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot represents a snapshot of one instrument's book at a specific point in time.
type Snapshot struct {
	Instrument string `json:"instrument"`
	// OrderOffset is the last intake offset applied to the book, -1 when unknown.
	OrderOffset   int64       `json:"orderOffset"`
	TradeSequence int64       `json:"tradeSequence"`
	OrderSequence int64       `json:"orderSequence"`
	Halted        bool        `json:"halted"`
	Orders        []BookOrder `json:"orders"`
	// SeenOrderIDs lists the filled or cancelled orders the book accepted.
	SeenOrderIDs []string  `json:"seenOrderIDs,omitempty"`
	TakenAt      time.Time `json:"takenAt"`
}

// BookOrder represents a resting order, listed in priority order within its side.
type BookOrder struct {
	OrderID     string          `json:"orderID"`
	MemberID    string          `json:"memberID"`
	Side        string          `json:"side"`
	Type        string          `json:"type"`
	TimeInForce string          `json:"timeInForce"`
	Quantity    decimal.Decimal `json:"quantity"`
	Remaining   decimal.Decimal `json:"remaining"`
	Price       decimal.Decimal `json:"price"`
	Sequence    int64           `json:"sequence"`
	Status      string          `json:"status"`
	SubmittedAt time.Time       `json:"submittedAt"`
	ExpiresAt   *time.Time      `json:"expiresAt,omitempty"`
}
