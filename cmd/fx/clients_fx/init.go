package clients_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"hairsim/internal/repositories"
	"hairsim/internal/services"
	"hairsim/pkg/objectstore"
)

var Module = fx.Provide(
	provideClientService, provideClientRepo)

func provideClientRepo(docs repositories.DocumentRepository) repositories.ClientRepository {
	return repositories.NewClientRepository(docs)
}

func provideClientService(clientRepo repositories.ClientRepository, objects objectstore.Store, prompts *services.PromptBuilder, log *zap.Logger) services.ClientServiceInterface {
	return services.NewClientService(clientRepo, objects, prompts, log)
}
