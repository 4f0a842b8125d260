package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"hairsim/internal/models/domain_models"
	"hairsim/pkg/utils"
)

// GateDecision is advisory: nothing is reserved, and the charge can still be
// refused later if the balance moves in between.
type GateDecision struct {
	Allowed   bool                        `json:"allowed"`
	Balance   decimal.Decimal             `json:"balance"`
	Price     decimal.Decimal             `json:"price"`
	Shortfall decimal.Decimal             `json:"shortfall"`
	Services  []domain_models.ServiceType `json:"services"`
}

type GateServiceInterface interface {
	Check(ctx context.Context, accountID string, services ...domain_models.ServiceType) (*GateDecision, error)
}

type GateService struct {
	ledger LedgerServiceInterface
	prices domain_models.PriceTable
}

func NewGateService(ledger LedgerServiceInterface, prices domain_models.PriceTable) *GateService {
	return &GateService{ledger: ledger, prices: prices}
}

// Check reads the balance fresh on every call.
func (g *GateService) Check(ctx context.Context, accountID string, services ...domain_models.ServiceType) (*GateDecision, error) {
	if len(services) == 0 {
		return nil, fmt.Errorf("%w: service type", utils.ErrMissingInput)
	}
	price, err := g.prices.Total(services...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrInvalidRequest, err)
	}
	balance, err := g.ledger.GetBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}

	decision := &GateDecision{
		Allowed:   balance.GreaterThanOrEqual(price),
		Balance:   balance,
		Price:     price,
		Shortfall: decimal.Zero,
		Services:  services,
	}
	if !decision.Allowed {
		decision.Shortfall = price.Sub(balance)
	}
	return decision, nil
}
