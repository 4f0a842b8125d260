package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"hairsim/internal/infra"
	"hairsim/internal/models/db_models"
	"hairsim/pkg/utils"
)

type LedgerRepository interface {
	// Balance returns zero for accounts that have never been credited.
	Balance(ctx context.Context, accountID string) (decimal.Decimal, error)
	Increment(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error)
	// DecrementIfSufficient subtracts amount in one atomic step, or returns
	// utils.ErrInsufficientFunds leaving the balance untouched.
	DecrementIfSufficient(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error)
	AppendTransaction(ctx context.Context, txn *db_models.LedgerTransaction) error
	ListTransactions(ctx context.Context, accountID string, limit int) ([]db_models.LedgerTransaction, error)
}

type ledgerRepository struct {
	pool infra.PgxPool
}

func NewLedgerRepository(pool infra.PgxPool) LedgerRepository {
	return &ledgerRepository{pool: pool}
}

func (l *ledgerRepository) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	const q = `SELECT balance::text FROM ledger_accounts WHERE account_id=$1`
	var raw string
	err := l.pool.QueryRow(ctx, q, accountID).Scan(&raw)
	switch {
	case err == nil:
		return decimal.NewFromString(raw)
	case errors.Is(err, pgx.ErrNoRows):
		return decimal.Zero, nil
	default:
		return decimal.Zero, err
	}
}

func (l *ledgerRepository) Increment(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	const q = `
INSERT INTO ledger_accounts (account_id, balance, updated_at)
VALUES ($1, $2::numeric, now())
ON CONFLICT (account_id)
DO UPDATE SET balance = ledger_accounts.balance + EXCLUDED.balance, updated_at = now()
RETURNING balance::text`
	var raw string
	if err := l.pool.QueryRow(ctx, q, accountID, amount.String()).Scan(&raw); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

func (l *ledgerRepository) DecrementIfSufficient(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	const q = `
UPDATE ledger_accounts
SET balance = balance - $2::numeric, updated_at = now()
WHERE account_id=$1 AND balance >= $2::numeric
RETURNING balance::text`
	var raw string
	err := l.pool.QueryRow(ctx, q, accountID, amount.String()).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, utils.ErrInsufficientFunds
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

func (l *ledgerRepository) AppendTransaction(ctx context.Context, txn *db_models.LedgerTransaction) error {
	const q = `
INSERT INTO ledger_transactions (id, account_id, type, amount, service_type, balance_after, created_at)
VALUES ($1, $2, $3, $4::numeric, NULLIF($5, ''), $6::numeric, $7)`
	_, err := l.pool.Exec(ctx, q,
		txn.ID, txn.AccountID, string(txn.Type), txn.Amount.String(),
		txn.ServiceType, txn.BalanceAfter.String(), txn.CreatedAt)
	return err
}

func (l *ledgerRepository) ListTransactions(ctx context.Context, accountID string, limit int) ([]db_models.LedgerTransaction, error) {
	const q = `
SELECT id, account_id, type, amount::text, COALESCE(service_type, ''), balance_after::text, created_at
FROM ledger_transactions
WHERE account_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2`
	rows, err := l.pool.Query(ctx, q, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []db_models.LedgerTransaction
	for rows.Next() {
		var (
			txn                  db_models.LedgerTransaction
			txnType              string
			amount, balanceAfter string
		)
		if err := rows.Scan(&txn.ID, &txn.AccountID, &txnType, &amount, &txn.ServiceType, &balanceAfter, &txn.CreatedAt); err != nil {
			return nil, err
		}
		txn.Type = db_models.LedgerTransactionType(txnType)
		if txn.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transaction %s amount: %w", txn.ID, err)
		}
		if txn.BalanceAfter, err = decimal.NewFromString(balanceAfter); err != nil {
			return nil, fmt.Errorf("transaction %s balance: %w", txn.ID, err)
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}
