package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"hairsim/internal/models/db_models"
	"hairsim/pkg/utils"
)

// MemoryLedgerRepository guards every balance with one mutex so the
// check-and-decrement in DecrementIfSufficient cannot interleave.
type MemoryLedgerRepository struct {
	mu           sync.Mutex
	balances     map[string]decimal.Decimal
	transactions map[string][]db_models.LedgerTransaction
}

func NewMemoryLedgerRepository() *MemoryLedgerRepository {
	return &MemoryLedgerRepository{
		balances:     make(map[string]decimal.Decimal),
		transactions: make(map[string][]db_models.LedgerTransaction),
	}
}

var _ LedgerRepository = (*MemoryLedgerRepository)(nil)

func (m *MemoryLedgerRepository) Balance(_ context.Context, accountID string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[accountID], nil
}

func (m *MemoryLedgerRepository) Increment(_ context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.balances[accountID].Add(amount)
	m.balances[accountID] = next
	return next, nil
}

func (m *MemoryLedgerRepository) DecrementIfSufficient(_ context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.balances[accountID]
	if current.LessThan(amount) {
		return current, utils.ErrInsufficientFunds
	}
	next := current.Sub(amount)
	m.balances[accountID] = next
	return next, nil
}

func (m *MemoryLedgerRepository) AppendTransaction(_ context.Context, txn *db_models.LedgerTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[txn.AccountID] = append(m.transactions[txn.AccountID], *txn)
	return nil
}

func (m *MemoryLedgerRepository) ListTransactions(_ context.Context, accountID string, limit int) ([]db_models.LedgerTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.transactions[accountID]
	out := make([]db_models.LedgerTransaction, len(all))
	copy(out, all)
	// appended in order, so reversing gives newest first even for equal timestamps
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
