package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"hairsim/internal/models/db_models"
	"hairsim/internal/models/domain_models"
	"hairsim/internal/repositories"
	"hairsim/pkg/metrics"
	"hairsim/pkg/utils"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 500
)

type LedgerServiceInterface interface {
	GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
	Credit(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error)
	Debit(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error)
	// Charge debits the account and records the charge. A failure to record is
	// reported as a reconciliation gap; the debit itself stands.
	Charge(ctx context.Context, accountID string, amount decimal.Decimal, service domain_models.ServiceType) (decimal.Decimal, error)
	Transactions(ctx context.Context, accountID string, limit int) ([]db_models.LedgerTransaction, error)
}

type LedgerService struct {
	repo    repositories.LedgerRepository
	alerts  IAlertService
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

func NewLedgerService(repo repositories.LedgerRepository, alerts IAlertService, m *metrics.Metrics, log *zap.Logger) *LedgerService {
	return &LedgerService{
		repo:    repo,
		alerts:  alerts,
		metrics: m,
		log:     log.Named("ledger"),
		now:     time.Now,
	}
}

func (s *LedgerService) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	if accountID == "" {
		return decimal.Zero, fmt.Errorf("%w: account id", utils.ErrMissingInput)
	}
	bal, err := s.repo.Balance(ctx, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)
	}
	return bal, nil
}

func (s *LedgerService) Credit(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := validateAmount(accountID, amount); err != nil {
		return decimal.Zero, err
	}
	bal, err := s.repo.Increment(ctx, accountID, amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)
	}
	s.log.Info("balance credited",
		zap.String("account_id", accountID),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("balance", bal.StringFixed(2)))

	s.record(ctx, &db_models.LedgerTransaction{
		AccountID:    accountID,
		Type:         db_models.LedgerCredit,
		Amount:       amount,
		BalanceAfter: bal,
	})
	return bal, nil
}

func (s *LedgerService) Debit(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := validateAmount(accountID, amount); err != nil {
		return decimal.Zero, err
	}
	bal, err := s.repo.DecrementIfSufficient(ctx, accountID, amount)
	if err != nil {
		if errors.Is(err, utils.ErrInsufficientFunds) {
			return decimal.Zero, err
		}
		return decimal.Zero, fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)
	}
	return bal, nil
}

func (s *LedgerService) Charge(ctx context.Context, accountID string, amount decimal.Decimal, service domain_models.ServiceType) (decimal.Decimal, error) {
	bal, err := s.Debit(ctx, accountID, amount)
	if err != nil {
		s.metrics.Charge(string(service), "rejected")
		return decimal.Zero, err
	}
	s.metrics.Charge(string(service), "charged")
	s.log.Info("balance charged",
		zap.String("account_id", accountID),
		zap.String("service_type", string(service)),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("balance", bal.StringFixed(2)))

	s.record(ctx, &db_models.LedgerTransaction{
		AccountID:    accountID,
		Type:         db_models.LedgerCharge,
		Amount:       amount,
		ServiceType:  string(service),
		BalanceAfter: bal,
	})
	return bal, nil
}

func (s *LedgerService) Transactions(ctx context.Context, accountID string, limit int) ([]db_models.LedgerTransaction, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id", utils.ErrMissingInput)
	}
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}
	txns, err := s.repo.ListTransactions(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrDatabaseError, err)
	}
	if txns == nil {
		txns = []db_models.LedgerTransaction{}
	}
	return txns, nil
}

// record appends the audit entry. The balance change has already committed,
// so a failure here only opens a reconciliation gap.
func (s *LedgerService) record(ctx context.Context, txn *db_models.LedgerTransaction) {
	txn.ID = uuid.New()
	txn.CreatedAt = s.now().UTC()

	if err := s.repo.AppendTransaction(context.WithoutCancel(ctx), txn); err != nil {
		s.metrics.ReconciliationGap(GapTransactionRecord)
		s.alerts.NotifyReconciliationGap(ctx, ReconciliationGap{
			Reason:       GapTransactionRecord,
			AccountID:    txn.AccountID,
			ServiceType:  txn.ServiceType,
			Amount:       txn.Amount,
			BalanceAfter: txn.BalanceAfter,
			Err:          err,
			OccurredAt:   txn.CreatedAt,
		})
	}
}

func validateAmount(accountID string, amount decimal.Decimal) error {
	if accountID == "" {
		return fmt.Errorf("%w: account id", utils.ErrMissingInput)
	}
	if !amount.IsPositive() {
		return utils.ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: at most 2 decimal places", utils.ErrInvalidAmount)
	}
	return nil
}
