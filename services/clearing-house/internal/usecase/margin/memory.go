package margin

import (
	"context"
	"sort"
	"sync"

	marginv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/margin/v1"
)

// MemoryStore keeps margin accounts in process with the same versioning
// rules as the database store.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*marginv1.MarginAccount
}

var _ marginv1.AccountStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*marginv1.MarginAccount)}
}

func (m *MemoryStore) Get(_ context.Context, memberID string) (*marginv1.MarginAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[memberID]
	if !ok {
		return nil, marginv1.ErrAccountNotFound
	}
	return account.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, account *marginv1.MarginAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.accounts[account.MemberID]
	stored := int64(0)
	if ok {
		stored = current.Version
	}
	if stored != account.Version {
		return marginv1.ErrVersionConflict
	}
	account.Version++
	m.accounts[account.MemberID] = account.Clone()
	return nil
}

func (m *MemoryStore) Members(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members := make([]string, 0, len(m.accounts))
	for member := range m.accounts {
		members = append(members, member)
	}
	sort.Strings(members)
	return members, nil
}
