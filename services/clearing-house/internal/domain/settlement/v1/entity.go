package settlementv1

import (
	"context"
	"errors"
	"time"

	nettingv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/netting/v1"
	"github.com/shopspring/decimal"
)

var (
	ErrLegsNotHeld         = errors.New("both legs must be held before completion")
	ErrCommitIncomplete    = errors.New("settlement commit did not finish both legs")
	ErrSettlementNotFound  = errors.New("settlement not found")
	ErrSettlementTerminal  = errors.New("settlement already terminal")
	ErrSettlementCommitted = errors.New("settlement is committing and cannot roll back")
	ErrVersionConflict     = errors.New("settlement changed since it was read")
	ErrAlreadyOpen         = errors.New("settlement already open for obligation")
	ErrRollingBack         = errors.New("settlement is rolling back")
)

// DeliveryStatus is the state of the delivery leg.
type DeliveryStatus string

const (
	DeliveryPending     DeliveryStatus = "pending"
	DeliveryBlocked     DeliveryStatus = "blocked"
	DeliveryTransferred DeliveryStatus = "transferred"
	DeliveryFailed      DeliveryStatus = "failed"
)

// PaymentStatus is the state of the payment leg.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentEscrowed PaymentStatus = "escrowed"
	PaymentReleased PaymentStatus = "released"
	PaymentFailed   PaymentStatus = "failed"
)

// Status is the overall state, derived from both legs.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPrepared   Status = "prepared"
	StatusCompleted  Status = "completed"
	StatusRolledBack Status = "rolled_back"

	// StatusRollingBack holds a settlement whose holds, escrow or requeue
	// still have to be undone before it counts as rolled back.
	StatusRollingBack Status = "rolling_back"
)

// Hold is one warehouse receipt blocked for delivery.
type Hold struct {
	Instrument  string `json:"instrument"`
	ReceiptID   string `json:"receiptID"`
	Token       string `json:"token"`
	From        string `json:"from"`
	To          string `json:"to"`
	Transferred bool   `json:"transferred"`
	Released    bool   `json:"released,omitempty"`
}

// DeliveryLeg tracks the metal side.
type DeliveryLeg struct {
	Status DeliveryStatus `json:"status"`
	Holds  []Hold         `json:"holds"`
}

// PaymentLeg tracks the cash side.
type PaymentLeg struct {
	Status   PaymentStatus   `json:"status"`
	Token    string          `json:"token"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	From     string          `json:"from"`
	To       string          `json:"to"`
	Reversed bool            `json:"reversed,omitempty"`
}

// DvpSettlement is the delivery-versus-payment state machine of one obligation.
type DvpSettlement struct {
	ID          string                  `json:"id"`
	Obligation  nettingv1.NetObligation `json:"obligation"`
	Status      Status                  `json:"status"`
	Delivery    DeliveryLeg             `json:"delivery"`
	Payment     PaymentLeg              `json:"payment"`
	Committing  bool                    `json:"committing"`
	Reason      string                  `json:"reason,omitempty"`
	Deadline    time.Time               `json:"deadline"`
	Version     int64                   `json:"version"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
	CompletedAt *time.Time              `json:"completedAt,omitempty"`
}

// DeriveStatus computes the overall status from the legs.
func (s *DvpSettlement) DeriveStatus() Status {
	switch {
	case s.Delivery.Status == DeliveryTransferred && s.Payment.Status == PaymentReleased:
		return StatusCompleted
	case s.Delivery.Status == DeliveryFailed || s.Payment.Status == PaymentFailed:
		return StatusRolledBack
	case s.BothHeld():
		return StatusPrepared
	}
	return StatusPending
}

// RollingBack reports whether a rollback started and has not finished.
func (s *DvpSettlement) RollingBack() bool {
	return s.Status == StatusRollingBack
}

// BothHeld reports whether delivery is blocked and payment escrowed.
func (s *DvpSettlement) BothHeld() bool {
	return s.Delivery.Status == DeliveryBlocked && s.Payment.Status == PaymentEscrowed
}

// IsTerminal reports whether the settlement is completed or rolled back.
func (s *DvpSettlement) IsTerminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusRolledBack
}

// OneSided reports the forbidden state where exactly one leg was released.
func (s *DvpSettlement) OneSided() bool {
	delivered := s.Delivery.Status == DeliveryTransferred
	paid := s.Payment.Status == PaymentReleased
	return delivered != paid
}

// Clone returns a deep copy.
func (s *DvpSettlement) Clone() *DvpSettlement {
	c := *s
	c.Obligation = s.Obligation.Clone()
	c.Delivery.Holds = append([]Hold(nil), s.Delivery.Holds...)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Repository persists settlements with optimistic versioning.
//
//go:generate mockgen -source entity.go -destination=mock/entity_mock.go -package=settlementv1_mock
type Repository interface {
	// Create stores a new settlement, ErrAlreadyOpen if the id exists.
	Create(ctx context.Context, settlement *DvpSettlement) error
	// Save writes settlement if the stored version equals settlement.Version and
	// bumps the version, else returns ErrVersionConflict.
	Save(ctx context.Context, settlement *DvpSettlement) error
	Get(ctx context.Context, id string) (*DvpSettlement, error)
	ListOpen(ctx context.Context) ([]*DvpSettlement, error)
}

// Requeuer puts a rolled-back obligation back into netting.
type Requeuer interface {
	Requeue(ctx context.Context, obligation nettingv1.NetObligation, reason string) error
}
