package waterfall

import (
	"context"
	"sync"

	waterfallv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/waterfall/v1"
)

// MemoryCaseRepository keeps default cases in process.
type MemoryCaseRepository struct {
	mu    sync.RWMutex
	cases map[string]*waterfallv1.DefaultCase
}

var _ waterfallv1.CaseRepository = (*MemoryCaseRepository)(nil)

// NewMemoryCaseRepository creates an empty repository.
func NewMemoryCaseRepository() *MemoryCaseRepository {
	return &MemoryCaseRepository{cases: make(map[string]*waterfallv1.DefaultCase)}
}

func (m *MemoryCaseRepository) Create(_ context.Context, c *waterfallv1.DefaultCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.cases {
		if existing.MemberID == c.MemberID && existing.Status != waterfallv1.CaseClosed {
			return waterfallv1.ErrAlreadyInDefault
		}
	}
	c.Version = 1
	m.cases[c.ID] = c.Clone()
	return nil
}

func (m *MemoryCaseRepository) Save(_ context.Context, c *waterfallv1.DefaultCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.cases[c.ID]
	if !ok {
		return waterfallv1.ErrCaseNotFound
	}
	if current.Version != c.Version {
		return waterfallv1.ErrVersionConflict
	}
	c.Version++
	m.cases[c.ID] = c.Clone()
	return nil
}

func (m *MemoryCaseRepository) Get(_ context.Context, id string) (*waterfallv1.DefaultCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cases[id]
	if !ok {
		return nil, waterfallv1.ErrCaseNotFound
	}
	return c.Clone(), nil
}

func (m *MemoryCaseRepository) OpenByMember(_ context.Context, memberID string) (*waterfallv1.DefaultCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.cases {
		if c.MemberID == memberID && c.Status != waterfallv1.CaseClosed {
			return c.Clone(), nil
		}
	}
	return nil, waterfallv1.ErrCaseNotFound
}

// MemoryFundRepository keeps the guarantee fund in process.
type MemoryFundRepository struct {
	mu   sync.Mutex
	fund *waterfallv1.GuaranteeFund
}

var _ waterfallv1.FundRepository = (*MemoryFundRepository)(nil)

// NewMemoryFundRepository seeds the repository with fund.
func NewMemoryFundRepository(fund *waterfallv1.GuaranteeFund) *MemoryFundRepository {
	return &MemoryFundRepository{fund: fund.Clone()}
}

func (m *MemoryFundRepository) Get(_ context.Context) (*waterfallv1.GuaranteeFund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fund.Clone(), nil
}

func (m *MemoryFundRepository) Save(_ context.Context, fund *waterfallv1.GuaranteeFund) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fund.Version != fund.Version {
		return waterfallv1.ErrVersionConflict
	}
	fund.Version++
	m.fund = fund.Clone()
	return nil
}
