package generation_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"hairsim/internal/config"
	"hairsim/internal/models/domain_models"
	"hairsim/internal/repositories"
	"hairsim/internal/services"
	mem "hairsim/pkg/memcache"
	"hairsim/pkg/metrics"
	"hairsim/pkg/objectstore"
	"hairsim/pkg/utils"
)

var Module = fx.Provide(provideGenerationService)

type generationParams struct {
	fx.In

	Config    *config.Config
	Clients   repositories.ClientRepository
	Ledger    services.LedgerServiceInterface
	Gate      services.GateServiceInterface
	Prompts   *services.PromptBuilder
	Parser    *utils.ReportParser
	Providers utils.ProviderSet
	Objects   objectstore.Store
	Leases    mem.LeaseStore
	Prices    domain_models.PriceTable
	Alerts    services.IAlertService
	Metrics   *metrics.Metrics
	Log       *zap.Logger
}

func provideGenerationService(p generationParams) services.GenerationServiceInterface {
	return services.NewGenerationService(services.GenerationDeps{
		Clients:         p.Clients,
		Ledger:          p.Ledger,
		Gate:            p.Gate,
		Prompts:         p.Prompts,
		Parser:          p.Parser,
		Providers:       p.Providers,
		Objects:         p.Objects,
		Leases:          p.Leases,
		Prices:          p.Prices,
		Alerts:          p.Alerts,
		Metrics:         p.Metrics,
		Log:             p.Log,
		ProviderTimeout: p.Config.ProviderTimeout,
		LeaseTTL:        p.Config.LeaseTTL,
	})
}
