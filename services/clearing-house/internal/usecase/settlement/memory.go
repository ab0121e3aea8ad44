package settlement

import (
	"context"
	"sort"
	"sync"

	settlementv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/settlement/v1"
)

// MemoryRepository keeps settlements in process.
type MemoryRepository struct {
	mu          sync.RWMutex
	settlements map[string]*settlementv1.DvpSettlement
}

var _ settlementv1.Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{settlements: make(map[string]*settlementv1.DvpSettlement)}
}

func (m *MemoryRepository) Create(_ context.Context, settlement *settlementv1.DvpSettlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.settlements[settlement.ID]; ok {
		return settlementv1.ErrAlreadyOpen
	}
	settlement.Version = 1
	m.settlements[settlement.ID] = settlement.Clone()
	return nil
}

func (m *MemoryRepository) Save(_ context.Context, settlement *settlementv1.DvpSettlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.settlements[settlement.ID]
	if !ok {
		return settlementv1.ErrSettlementNotFound
	}
	if current.Version != settlement.Version {
		return settlementv1.ErrVersionConflict
	}
	settlement.Version++
	m.settlements[settlement.ID] = settlement.Clone()
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*settlementv1.DvpSettlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	settlement, ok := m.settlements[id]
	if !ok {
		return nil, settlementv1.ErrSettlementNotFound
	}
	return settlement.Clone(), nil
}

func (m *MemoryRepository) ListOpen(_ context.Context) ([]*settlementv1.DvpSettlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*settlementv1.DvpSettlement, 0)
	for _, s := range m.settlements {
		if !s.IsTerminal() {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
