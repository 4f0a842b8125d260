package response_models

import (
	"github.com/shopspring/decimal"
	"hairsim/internal/models/domain_models"
)

type ChargeResponse struct {
	ServiceType  string           `json:"service_type"`
	Amount       decimal.Decimal  `json:"amount"`
	Charged      bool             `json:"charged"`
	BalanceAfter *decimal.Decimal `json:"balance_after,omitempty"`
	ChargeFailed bool             `json:"charge_failed,omitempty"`
	Error        string           `json:"error,omitempty"`
}

type GenerationResponse struct {
	ClientID          string               `json:"client_id"`
	Kind              string               `json:"kind"`
	Status            string               `json:"status,omitempty"`
	Report            domain_models.Report `json:"report,omitempty"`
	GeneratedImageURL string               `json:"generated_image_url,omitempty"`
	Charges           []ChargeResponse     `json:"charges"`
	Stages            []string             `json:"stages"`
}
