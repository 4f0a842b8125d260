package prompt_fx

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"hairsim/internal/config"
	"hairsim/internal/models/domain_models"
	"hairsim/internal/services"
	"hairsim/pkg/utils"
)

var Module = fx.Provide(
	ProvidePromptBuilder,
	ProvideReportParser,
	ProvideAIProviders)

func ProvidePromptBuilder() *services.PromptBuilder {
	return services.NewPromptBuilder(domain_models.DefaultCatalog())
}

func ProvideReportParser(log *zap.Logger) *utils.ReportParser {
	return utils.NewReportParser(log)
}

// ProvideAIProviders picks the report provider from AI_PROVIDER. Images are
// always generated by Gemini.
func ProvideAIProviders(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (utils.ProviderSet, error) {
	ctx := context.Background()

	image, err := utils.NewGeminiImageClient(ctx, cfg.GeminiAPIKey, cfg.GeminiImageModel)
	if err != nil {
		return utils.ProviderSet{}, err
	}

	var report utils.AIProvider
	switch cfg.AIProvider {
	case config.ProviderOpenAI:
		report = utils.NewOpenAIReportClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		log.Info("report provider initialised", zap.String("provider", "openai"), zap.String("model", cfg.OpenAIModel))
	case config.ProviderGemini:
		client, err := utils.NewGeminiReportClient(ctx, cfg.GeminiAPIKey, cfg.GeminiReportModel)
		if err != nil {
			return utils.ProviderSet{}, err
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
		report = client
		log.Info("report provider initialised", zap.String("provider", "gemini"), zap.String("model", cfg.GeminiReportModel))
	default:
		return utils.ProviderSet{}, fmt.Errorf("unsupported AI provider: %s. Use 'openai' or 'gemini'", cfg.AIProvider)
	}

	return utils.ProviderSet{Report: report, Image: image}, nil
}
