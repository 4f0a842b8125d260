package ledger_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"hairsim/internal/config"
	"hairsim/internal/models/domain_models"
	"hairsim/internal/repositories"
	"hairsim/internal/services"
	"hairsim/pkg/metrics"
)

var Module = fx.Provide(
	providePriceTable, provideLedgerService, provideGateService)

func providePriceTable(cfg *config.Config) domain_models.PriceTable {
	return domain_models.PriceTable{
		domain_models.ServiceReportGeneration: cfg.PriceReportGeneration,
		domain_models.ServiceImageGeneration:  cfg.PriceImageGeneration,
	}
}

func provideLedgerService(repo repositories.LedgerRepository, alerts services.IAlertService, m *metrics.Metrics, log *zap.Logger) services.LedgerServiceInterface {
	return services.NewLedgerService(repo, alerts, m, log)
}

func provideGateService(ledger services.LedgerServiceInterface, prices domain_models.PriceTable) services.GateServiceInterface {
	return services.NewGateService(ledger, prices)
}
