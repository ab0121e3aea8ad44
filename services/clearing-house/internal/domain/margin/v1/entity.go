package marginv1

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrVersionConflict    = errors.New("margin account changed since it was read")
	ErrAccountNotFound    = errors.New("margin account not found")
	ErrInvalidCollateral  = errors.New("collateral amount must be positive and haircut within [0,1)")
	ErrMemberDefaulted    = errors.New("member is in default")
	ErrMemberNotDefaulted = errors.New("member is not in default")
)

// CollateralType is the kind of asset posted as collateral.
type CollateralType string

const (
	CollateralCash             CollateralType = "cash"
	CollateralGovernmentBond   CollateralType = "government_bond"
	CollateralWarehouseWarrant CollateralType = "warehouse_warrant"
)

// CollateralItem is one posted asset.
type CollateralItem struct {
	ID      string          `json:"id"`
	Type    CollateralType  `json:"type"`
	Amount  decimal.Decimal `json:"amount"`
	Haircut decimal.Decimal `json:"haircut"`
}

// Value returns the haircut-adjusted value.
func (c CollateralItem) Value() decimal.Decimal {
	return c.Amount.Mul(decimal.NewFromInt(1).Sub(c.Haircut))
}

// Validate checks amount and haircut bounds.
func (c CollateralItem) Validate() error {
	if !c.Amount.IsPositive() || c.Haircut.IsNegative() || c.Haircut.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return ErrInvalidCollateral
	}
	return nil
}

// CallStatus is the state of a margin call.
type CallStatus string

const (
	CallOpen      CallStatus = "open"
	CallCured     CallStatus = "cured"
	CallDefaulted CallStatus = "defaulted"
)

// MarginCall demands collateral covering a deficit by DueAt.
type MarginCall struct {
	ID       string          `json:"id"`
	MemberID string          `json:"memberID"`
	Amount   decimal.Decimal `json:"amount"`
	IssuedAt time.Time       `json:"issuedAt"`
	DueAt    time.Time       `json:"dueAt"`
	Status   CallStatus      `json:"status"`
	ClosedAt *time.Time      `json:"closedAt,omitempty"`
}

// MarginAccount is the per-member margin state.
type MarginAccount struct {
	MemberID      string          `json:"memberID"`
	InitialMargin decimal.Decimal `json:"initialMargin"`
	// VariationMargin is the outstanding variation margin owed by the member.
	VariationMargin decimal.Decimal `json:"variationMargin"`
	// UnrealizedPnL is the mark-to-market value at the last revaluation.
	UnrealizedPnL decimal.Decimal `json:"unrealizedPnL"`
	// Unrealized splits UnrealizedPnL by instrument.
	Unrealized    map[string]decimal.Decimal `json:"unrealized"`
	Collateral    []CollateralItem           `json:"collateral"`
	Excess        decimal.Decimal            `json:"excess"`
	Deficit       decimal.Decimal            `json:"deficit"`
	Contributions map[string]decimal.Decimal `json:"contributions"`
	Calls         []MarginCall               `json:"calls"`
	Defaulted     bool                       `json:"defaulted"`
	// Seized accumulates the collateral value taken since default.
	Seized     decimal.Decimal `json:"seized"`
	Version    int64           `json:"version"`
	RevaluedAt time.Time       `json:"revaluedAt"`
}

// NewMarginAccount returns an empty account for member.
func NewMarginAccount(memberID string) *MarginAccount {
	return &MarginAccount{
		MemberID:      memberID,
		Unrealized:    make(map[string]decimal.Decimal),
		Contributions: make(map[string]decimal.Decimal),
	}
}

// CollateralValue returns the haircut-adjusted value of all collateral.
func (a *MarginAccount) CollateralValue() decimal.Decimal {
	total := decimal.Zero
	for _, c := range a.Collateral {
		total = total.Add(c.Value())
	}
	return total
}

// Requirement is initial margin plus outstanding variation margin.
func (a *MarginAccount) Requirement() decimal.Decimal {
	return a.InitialMargin.Add(a.VariationMargin)
}

// Recompute refreshes Excess and Deficit from the current figures.
func (a *MarginAccount) Recompute() {
	diff := a.CollateralValue().Sub(a.Requirement())
	if diff.IsNegative() {
		a.Deficit = diff.Neg()
		a.Excess = decimal.Zero
		return
	}
	a.Deficit = decimal.Zero
	a.Excess = diff
}

// OpenCall returns the open margin call, if any.
func (a *MarginAccount) OpenCall() *MarginCall {
	for i := range a.Calls {
		if a.Calls[i].Status == CallOpen {
			return &a.Calls[i]
		}
	}
	return nil
}

// AddCash credits cash collateral.
func (a *MarginAccount) AddCash(id string, amount decimal.Decimal) {
	a.Collateral = append(a.Collateral, CollateralItem{ID: id, Type: CollateralCash, Amount: amount, Haircut: decimal.Zero})
}

// DebitCash takes up to amount from cash collateral and returns the part
// that could not be covered.
func (a *MarginAccount) DebitCash(amount decimal.Decimal) decimal.Decimal {
	kept := a.Collateral[:0]
	for _, c := range a.Collateral {
		if c.Type == CollateralCash && amount.IsPositive() {
			taken := decimal.Min(c.Amount, amount)
			c.Amount = c.Amount.Sub(taken)
			amount = amount.Sub(taken)
		}
		if c.Amount.IsPositive() {
			kept = append(kept, c)
		}
	}
	a.Collateral = kept
	return amount
}

// Clone returns a deep copy.
func (a *MarginAccount) Clone() *MarginAccount {
	c := *a
	c.Collateral = append([]CollateralItem(nil), a.Collateral...)
	c.Calls = append([]MarginCall(nil), a.Calls...)
	c.Contributions = cloneAmounts(a.Contributions)
	c.Unrealized = cloneAmounts(a.Unrealized)
	return &c
}

func cloneAmounts(in map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// PricePoint is one daily close.
type PricePoint struct {
	Day   time.Time       `json:"day"`
	Close decimal.Decimal `json:"close"`
}
