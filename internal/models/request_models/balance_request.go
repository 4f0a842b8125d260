package request_models

import "github.com/shopspring/decimal"

type CreditRequest struct {
	AccountID string          `json:"account_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
}
