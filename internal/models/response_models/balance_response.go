package response_models

import (
	"github.com/shopspring/decimal"
	"hairsim/internal/models/db_models"
)

type BalanceResponse struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
}

type TransactionsResponse struct {
	Transactions []db_models.LedgerTransaction `json:"transactions"`
}
