package controllers_fx

import (
	"go.uber.org/fx"
	"hairsim/internal/api/controllers"
)

var Module = fx.Options(
	fx.Provide(controllers.NewClientController),
	fx.Provide(controllers.NewGenerationController),
	fx.Provide(controllers.NewBalanceController),
	fx.Provide(controllers.NewCatalogController))
