package db_models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LedgerTransactionType string

const (
	LedgerCharge LedgerTransactionType = "charge"
	LedgerCredit LedgerTransactionType = "credit"
)

type LedgerAccount struct {
	AccountID string
	Balance   decimal.Decimal
	UpdatedAt time.Time
}

// LedgerTransaction is an append-only audit entry. ServiceType is empty for credits.
type LedgerTransaction struct {
	ID           uuid.UUID             `json:"id"`
	AccountID    string                `json:"account_id"`
	Type         LedgerTransactionType `json:"type"`
	Amount       decimal.Decimal       `json:"amount"`
	ServiceType  string                `json:"service_type,omitempty"`
	BalanceAfter decimal.Decimal       `json:"balance_after"`
	CreatedAt    time.Time             `json:"created_at"`
}
