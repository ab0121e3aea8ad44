package nettingv1

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/util"
	"github.com/shopspring/decimal"
)

var (
	ErrCycleClosed          = errors.New("netting cycle is closed")
	ErrNettingImbalance     = errors.New("netting cycle does not sum to zero")
	ErrCycleNotFound        = errors.New("netting cycle not found")
	ErrCycleNotClosed       = errors.New("netting cycle is not closed")
	ErrMixedSettlementDates = errors.New("exposures of one trade must share a settlement date")
)

// CycleStatus is the state of a netting cycle.
type CycleStatus string

const (
	CycleOpen    CycleStatus = "open"
	CycleClosing CycleStatus = "closing"
	CycleClosed  CycleStatus = "closed"
	CycleHalted  CycleStatus = "halted"
	CycleSettled CycleStatus = "settled"
)

// AcceptsExposures reports whether new exposures may join the cycle.
func (s CycleStatus) AcceptsExposures() bool {
	return s == CycleOpen
}

// NetObligation is one member's net position with the CCP for one currency.
type NetObligation struct {
	ID             string    `json:"id"`
	SettlementDate time.Time `json:"settlementDate"`
	MemberID       string    `json:"memberID"`
	Currency       string    `json:"currency"`
	// Amount is positive when the member owes the CCP.
	Amount decimal.Decimal `json:"amount"`
	// Deliveries maps instrument to signed quantity, positive when the member delivers.
	Deliveries map[string]decimal.Decimal `json:"deliveries"`
}

// ObligationID derives the id of a member's obligation in a cycle.
func ObligationID(settlementDate time.Time, memberID, currency string) string {
	return fmt.Sprintf("%s-%s-%s", util.DayKey(settlementDate), memberID, currency)
}

// MemberPaysOrDelivers reports whether the member moves anything to the CCP.
func (o NetObligation) MemberPaysOrDelivers() bool {
	if o.Amount.IsPositive() {
		return true
	}
	for _, qty := range o.Deliveries {
		if qty.IsPositive() {
			return true
		}
	}
	return false
}

// ReceivesDelivery reports whether the CCP delivers any instrument to the member.
func (o NetObligation) ReceivesDelivery() bool {
	for _, qty := range o.Deliveries {
		if qty.IsNegative() {
			return true
		}
	}
	return false
}

// IsZero reports whether the obligation moves nothing.
func (o NetObligation) IsZero() bool {
	if !o.Amount.IsZero() {
		return false
	}
	for _, qty := range o.Deliveries {
		if !qty.IsZero() {
			return false
		}
	}
	return true
}

// Instruments returns the instruments with a non-zero delivery, sorted.
func (o NetObligation) Instruments() []string {
	out := make([]string, 0, len(o.Deliveries))
	for instrument, qty := range o.Deliveries {
		if !qty.IsZero() {
			out = append(out, instrument)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy.
func (o NetObligation) Clone() NetObligation {
	c := o
	c.Deliveries = make(map[string]decimal.Decimal, len(o.Deliveries))
	for k, v := range o.Deliveries {
		c.Deliveries[k] = v
	}
	return c
}

// NettingCycle aggregates exposures of one settlement date.
type NettingCycle struct {
	SettlementDate time.Time       `json:"settlementDate"`
	Status         CycleStatus     `json:"status"`
	Obligations    []NetObligation `json:"obligations"`
	ExposureCount  int             `json:"exposureCount"`
	ClosedAt       *time.Time      `json:"closedAt,omitempty"`
	Reason         string          `json:"reason,omitempty"`
}

// Clone returns a deep copy so readers never share state with the engine.
func (c *NettingCycle) Clone() *NettingCycle {
	out := *c
	out.Obligations = make([]NetObligation, len(c.Obligations))
	for i, o := range c.Obligations {
		out.Obligations[i] = o.Clone()
	}
	if c.ClosedAt != nil {
		t := *c.ClosedAt
		out.ClosedAt = &t
	}
	return &out
}

// Totals returns the sum of obligation amounts per currency.
func (c *NettingCycle) Totals() map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, o := range c.Obligations {
		totals[o.Currency] = totals[o.Currency].Add(o.Amount)
	}
	return totals
}

// DeliveryTotals returns the sum of deliveries per instrument.
func (c *NettingCycle) DeliveryTotals() map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, o := range c.Obligations {
		for instrument, qty := range o.Deliveries {
			totals[instrument] = totals[instrument].Add(qty)
		}
	}
	return totals
}

// CheckBalanced verifies the cycle sums to zero per currency and per instrument.
func (c *NettingCycle) CheckBalanced() error {
	for currency, total := range c.Totals() {
		if !total.IsZero() {
			return fmt.Errorf("%w: %s off by %s", ErrNettingImbalance, currency, total)
		}
	}
	for instrument, total := range c.DeliveryTotals() {
		if !total.IsZero() {
			return fmt.Errorf("%w: %s deliveries off by %s", ErrNettingImbalance, instrument, total)
		}
	}
	return nil
}

// Position is a member's open, unsettled position in one instrument.
type Position struct {
	MemberID   string          `json:"memberID"`
	Instrument string          `json:"instrument"`
	Currency   string          `json:"currency"`
	Quantity   decimal.Decimal `json:"quantity"`
	// Cost is the sum of signed quantity times trade price.
	Cost decimal.Decimal `json:"cost"`
}

// Unrealized returns the mark-to-market profit of the position at mark.
func (p Position) Unrealized(mark decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(mark).Sub(p.Cost)
}

// Repository persists closed cycles.
//
//go:generate mockgen -source entity.go -destination=mock/entity_mock.go -package=nettingv1_mock
type Repository interface {
	SaveCycle(ctx context.Context, cycle *NettingCycle) error
	GetCycle(ctx context.Context, settlementDate time.Time) (*NettingCycle, error)
	UpdateStatus(ctx context.Context, settlementDate time.Time, status CycleStatus) error
}
