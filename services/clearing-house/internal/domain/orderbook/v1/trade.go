package orderbookv1

import (
	"fmt"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/util"
	"github.com/shopspring/decimal"
)

// SelfMatchPolicy decides what happens when both sides of a fill belong to one member.
type SelfMatchPolicy string

const (
	// SelfMatchReject rejects the incoming order outright.
	SelfMatchReject SelfMatchPolicy = "reject"
	// SelfMatchAllow lets the fill happen.
	SelfMatchAllow SelfMatchPolicy = "allow"
)

// ParseSelfMatchPolicy parses a configured policy. There is no implicit default.
func ParseSelfMatchPolicy(s string) (SelfMatchPolicy, error) {
	switch p := SelfMatchPolicy(s); p {
	case SelfMatchReject, SelfMatchAllow:
		return p, nil
	}
	return "", fmt.Errorf("self-match policy %q: want reject or allow", s)
}

// Instrument is a tradable contract.
type Instrument struct {
	Symbol            string `json:"symbol"`
	Currency          string `json:"currency"`
	SettlementLagDays int    `json:"settlementLagDays"`
}

// SettlementDate returns the UTC day on which a trade executed at t settles.
func (i Instrument) SettlementDate(t time.Time) time.Time {
	return util.AddDays(util.TruncateDay(t), i.SettlementLagDays)
}

// Trade is the immutable record of one fill.
type Trade struct {
	ID             string          `json:"id"`
	Instrument     string          `json:"instrument"`
	Quantity       decimal.Decimal `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	BuyOrderID     string          `json:"buyOrderID"`
	SellOrderID    string          `json:"sellOrderID"`
	BuyerID        string          `json:"buyerID"`
	SellerID       string          `json:"sellerID"`
	Aggressor      Side            `json:"aggressor"`
	Sequence       int64           `json:"sequence"`
	Currency       string          `json:"currency"`
	SettlementDate time.Time       `json:"settlementDate"`
	ExecutedAt     time.Time       `json:"executedAt"`
}

// TradeID derives the id of the trade with the given execution sequence, so a
// replayed order stream reproduces the same ids.
func TradeID(instrument string, sequence int64) string {
	return fmt.Sprintf("%s-T%012d", instrument, sequence)
}

// Notional returns price times quantity.
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(t.Quantity)
}
