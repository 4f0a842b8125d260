package repositories

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"hairsim/internal/models/db_models"
	"hairsim/pkg/utils"
)

func TestMemoryLedger_DecrementIfSufficient(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryLedgerRepository()

	bal, err := r.Balance(ctx, "acc")
	require.NoError(t, err)
	require.True(t, bal.IsZero())

	_, err = r.DecrementIfSufficient(ctx, "acc", decimal.RequireFromString("0.01"))
	require.ErrorIs(t, err, utils.ErrInsufficientFunds)

	_, err = r.Increment(ctx, "acc", decimal.RequireFromString("0.39"))
	require.NoError(t, err)

	bal, err = r.DecrementIfSufficient(ctx, "acc", decimal.RequireFromString("0.39"))
	require.NoError(t, err)
	require.True(t, bal.IsZero())
}

func TestMemoryLedger_ConcurrentDecrements(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryLedgerRepository()
	amount := decimal.RequireFromString("0.16")
	const n = 40
	_, err := r.Increment(ctx, "acc", amount.Mul(decimal.NewFromInt(n-1)))
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.DecrementIfSufficient(ctx, "acc", amount); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, n-1, succeeded)
	bal, _ := r.Balance(ctx, "acc")
	require.True(t, bal.IsZero())
}

func TestMemoryLedger_ListTransactionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryLedgerRepository()
	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, r.AppendTransaction(ctx, &db_models.LedgerTransaction{
			ID:        uuid.New(),
			AccountID: "acc",
			Type:      db_models.LedgerCredit,
			Amount:    decimal.NewFromInt(int64(i + 1)),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	txns, err := r.ListTransactions(ctx, "acc", 3)
	require.NoError(t, err)
	require.Len(t, txns, 3)
	require.Equal(t, "5", txns[0].Amount.String())
	require.Equal(t, "3", txns[2].Amount.String())
}
