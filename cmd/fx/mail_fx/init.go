package mail_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"hairsim/internal/config"
	"hairsim/internal/services"
)

var Module = fx.Provide(provideAlertService)

func provideAlertService(cfg *config.Config, log *zap.Logger) services.IAlertService {
	if !cfg.SMTP.Enabled() || cfg.AlertEmail == "" {
		log.Info("SMTP or ALERT_EMAIL not configured, reconciliation gaps are only logged")
	}
	return services.NewAlertService(cfg.SMTP, cfg.AlertEmail, log)
}
