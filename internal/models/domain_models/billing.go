package domain_models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type ServiceType string

const (
	ServiceReportGeneration ServiceType = "report_generation"
	ServiceImageGeneration  ServiceType = "image_generation"
)

func ParseServiceType(s string) (ServiceType, error) {
	switch ServiceType(s) {
	case ServiceReportGeneration, ServiceImageGeneration:
		return ServiceType(s), nil
	}
	return "", fmt.Errorf("unknown service type %q", s)
}

type PriceTable map[ServiceType]decimal.Decimal

func DefaultPrices() PriceTable {
	return PriceTable{
		ServiceReportGeneration: decimal.RequireFromString("0.16"),
		ServiceImageGeneration:  decimal.RequireFromString("0.39"),
	}
}

func (p PriceTable) Price(s ServiceType) (decimal.Decimal, error) {
	v, ok := p[s]
	if !ok {
		return decimal.Zero, fmt.Errorf("no price for service %q", s)
	}
	return v, nil
}

// Total sums the prices of the given services.
func (p PriceTable) Total(services ...ServiceType) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, s := range services {
		v, err := p.Price(s)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(v)
	}
	return total, nil
}
