// Package sim provides in-process warehouse and payment rail collaborators
// for local runs and end-to-end tests.
package sim

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	collaboratorv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/collaborator/v1"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Receipt is a warehouse receipt for a lot of metal.
type Receipt struct {
	ID         string
	Owner      string
	Instrument string
	Quantity   decimal.Decimal
	HoldToken  string
}

// Warehouse keeps receipts in memory. Held receipts are invisible to
// LocateReceipts until released or transferred.
type Warehouse struct {
	logger logger.Interface

	mu       sync.Mutex
	receipts map[string]*Receipt
	holds    map[string]string // token -> receipt id
}

var _ collaboratorv1.Warehouse = (*Warehouse)(nil)

// NewWarehouse creates an empty warehouse.
func NewWarehouse(logger logger.Interface) *Warehouse {
	return &Warehouse{
		logger:   logger,
		receipts: make(map[string]*Receipt),
		holds:    make(map[string]string),
	}
}

// Deposit adds a receipt. An existing receipt with the same id is replaced.
func (w *Warehouse) Deposit(receipt Receipt) {
	w.mu.Lock()
	defer w.mu.Unlock()
	receipt.HoldToken = ""
	w.receipts[receipt.ID] = &receipt
}

// Receipt returns a copy of one receipt.
func (w *Warehouse) Receipt(id string) (Receipt, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.receipts[id]
	if !ok {
		return Receipt{}, false
	}
	return *r, true
}

// Holdings sums the unheld quantity owner has of instrument.
func (w *Warehouse) Holdings(owner, instrument string) decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	total := decimal.Zero
	for _, r := range w.receipts {
		if r.Owner == owner && r.Instrument == instrument && r.HoldToken == "" {
			total = total.Add(r.Quantity)
		}
	}
	return total
}

// LocateReceipts picks free receipts of owner in id order until quantity is
// covered. Whole receipts are picked, so the total may exceed quantity.
func (w *Warehouse) LocateReceipts(_ context.Context, owner, instrument string, quantity decimal.Decimal) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var free []*Receipt
	for _, r := range w.receipts {
		if r.Owner == owner && r.Instrument == instrument && r.HoldToken == "" {
			free = append(free, r)
		}
	}
	sort.Slice(free, func(i, j int) bool { return free[i].ID < free[j].ID })

	var (
		ids     []string
		covered = decimal.Zero
	)
	for _, r := range free {
		if covered.GreaterThanOrEqual(quantity) {
			break
		}
		ids = append(ids, r.ID)
		covered = covered.Add(r.Quantity)
	}
	if covered.LessThan(quantity) {
		return nil, fmt.Errorf("%w: %s holds %s %s, needs %s", collaboratorv1.ErrRejected, owner, covered, instrument, quantity)
	}
	return ids, nil
}

// HoldForDelivery blocks a receipt and returns the hold token.
func (w *Warehouse) HoldForDelivery(_ context.Context, receiptID string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	r, ok := w.receipts[receiptID]
	if !ok {
		return "", fmt.Errorf("%w: unknown receipt %s", collaboratorv1.ErrRejected, receiptID)
	}
	if r.HoldToken != "" {
		return "", fmt.Errorf("%w: receipt %s already held", collaboratorv1.ErrRejected, receiptID)
	}

	token := "hold-" + ulid.Make().String()
	r.HoldToken = token
	w.holds[token] = receiptID
	return token, nil
}

// ReleaseHold frees a held receipt. Releasing an unknown token is a no-op so
// a repeated rollback succeeds.
func (w *Warehouse) ReleaseHold(ctx context.Context, token string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	receiptID, ok := w.holds[token]
	if !ok {
		w.logger.DebugContext(ctx, "Release of unknown hold", logger.Field{Key: "token", Value: token})
		return nil
	}
	delete(w.holds, token)
	if r, ok := w.receipts[receiptID]; ok && r.HoldToken == token {
		r.HoldToken = ""
	}
	return nil
}

// TransferOwnership moves a receipt to newOwner and clears its hold.
func (w *Warehouse) TransferOwnership(ctx context.Context, receiptID, newOwner string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	r, ok := w.receipts[receiptID]
	if !ok {
		return fmt.Errorf("%w: unknown receipt %s", collaboratorv1.ErrRejected, receiptID)
	}
	if r.HoldToken != "" {
		delete(w.holds, r.HoldToken)
		r.HoldToken = ""
	}
	previous := r.Owner
	r.Owner = newOwner

	w.logger.InfoContext(ctx, "Receipt transferred",
		logger.Field{Key: "receiptID", Value: receiptID},
		logger.Field{Key: "from", Value: previous},
		logger.Field{Key: "to", Value: newOwner},
	)
	return nil
}
