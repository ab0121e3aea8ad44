package novation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/util"
	novationv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/novation/v1"
)

// MemoryStore is an in-process exposure store.
type MemoryStore struct {
	mu      sync.RWMutex
	byTrade map[string][]novationv1.NovatedExposure
	order   []string
	settled map[string]bool
}

var _ novationv1.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byTrade: make(map[string][]novationv1.NovatedExposure),
		settled: make(map[string]bool),
	}
}

// Record stores the exposures of one trade.
func (m *MemoryStore) Record(_ context.Context, exposures ...novationv1.NovatedExposure) error {
	if len(exposures) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tradeID := exposures[0].TradeID
	if _, exists := m.byTrade[tradeID]; exists {
		return novationv1.ErrAlreadyNovated
	}
	m.byTrade[tradeID] = append([]novationv1.NovatedExposure(nil), exposures...)
	m.order = append(m.order, tradeID)
	return nil
}

// ByTrade returns the exposures of one trade.
func (m *MemoryStore) ByTrade(_ context.Context, tradeID string) ([]novationv1.NovatedExposure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]novationv1.NovatedExposure(nil), m.byTrade[tradeID]...), nil
}

// Unsettled returns exposures of unsettled dates in recording order.
func (m *MemoryStore) Unsettled(_ context.Context) ([]novationv1.NovatedExposure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []novationv1.NovatedExposure
	for _, tradeID := range m.order {
		for _, e := range m.byTrade[tradeID] {
			if !m.settled[util.DayKey(e.SettlementDate)] {
				out = append(out, e)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SettlementDate.Before(out[j].SettlementDate) })
	return out, nil
}

// MarkSettled flags every exposure of settlementDate as settled.
func (m *MemoryStore) MarkSettled(_ context.Context, settlementDate time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settled[util.DayKey(settlementDate)] = true
	return nil
}
