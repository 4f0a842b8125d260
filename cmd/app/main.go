package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"hairsim/cmd/fx/clients_fx"
	"hairsim/cmd/fx/config_fx"
	"hairsim/cmd/fx/controllers_fx"
	"hairsim/cmd/fx/db_fx"
	"hairsim/cmd/fx/generation_fx"
	"hairsim/cmd/fx/ledger_fx"
	"hairsim/cmd/fx/mail_fx"
	"hairsim/cmd/fx/memcache_fx"
	"hairsim/cmd/fx/prompt_fx"
	"hairsim/cmd/fx/storage_fx"
	"hairsim/internal/api/controllers"
	"hairsim/internal/config"
	"hairsim/internal/infra"
	"hairsim/pkg/middleware"
	"hairsim/pkg/objectstore"
	"hairsim/pkg/utils"
)

func main() {
	app := fx.New(
		config_fx.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		db_fx.Module,
		storage_fx.Module,
		memcache_fx.Module,
		mail_fx.Module,
		prompt_fx.Module,
		ledger_fx.Module,
		clients_fx.Module,
		generation_fx.Module,
		controllers_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, cfg *config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			go func() {
				log.Info("starting HTTP server", zap.String("addr", srv.Addr))
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}

type RouterParams struct {
	fx.In

	Config     *config.Config
	Log        *zap.Logger
	Registry   *prometheus.Registry
	Health     infra.HealthCheck
	Objects    objectstore.Store
	Clients    *controllers.ClientController
	Generation *controllers.GenerationController
	Balance    *controllers.BalanceController
	Catalog    *controllers.CatalogController
}

func ProvideRouter(p RouterParams) *gin.Engine {
	if p.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if p.Config.JWTSecret == "" {
		p.Log.Warn("JWT_SECRET is empty, do not expose this instance")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.RequestLogger(p.Log.Named("http")))

	RegisterRoutes(r, p)

	return r
}

func RegisterRoutes(r *gin.Engine, p RouterParams) {
	r.GET("/healthz", healthHandler(p.Health))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{})))
	r.GET("/catalog", p.Catalog.GetCatalog)

	if memory, ok := p.Objects.(*objectstore.Memory); ok {
		r.GET("/objects/*ref", memoryObjectHandler(memory))
	}

	auth := middleware.JWTAuthMiddleware([]byte(p.Config.JWTSecret))

	clientsGroup := r.Group("/clients", auth)
	clientsGroup.POST("", p.Clients.CreateClient)
	clientsGroup.GET("", p.Clients.ListClients)
	clientsGroup.GET("/:id", p.Clients.GetClient)
	clientsGroup.POST("/:id/front-image", p.Clients.UploadFrontImage)
	clientsGroup.PUT("/:id/selection", p.Clients.SaveSelection)
	clientsGroup.POST("/:id/report", p.Generation.GenerateReport)
	clientsGroup.POST("/:id/image", p.Generation.GenerateImage)
	clientsGroup.POST("/:id/report-and-image", p.Generation.GenerateReportAndImage)

	balanceGroup := r.Group("/balance", auth)
	balanceGroup.GET("", p.Balance.GetBalance)
	balanceGroup.GET("/gate", p.Balance.CheckGate)
	balanceGroup.GET("/transactions", p.Balance.ListTransactions)

	adminGroup := r.Group("/admin", auth, middleware.RoleMiddleware("admin"))
	adminGroup.POST("/balance/credit", p.Balance.Credit)
}

func healthHandler(check infra.HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := check(ctx); err != nil {
			utils.RespondError(c, http.StatusServiceUnavailable, "Store unavailable")
			return
		}
		utils.RespondSuccess(c, gin.H{"status": "ok"}, "")
	}
}

// memoryObjectHandler serves images from the in-memory store in development.
func memoryObjectHandler(store *objectstore.Memory) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := strings.TrimPrefix(c.Param("ref"), "/")
		data, err := store.Get(c.Request.Context(), ref)
		if err != nil {
			utils.RespondError(c, http.StatusNotFound, "Object not found")
			return
		}
		c.Data(http.StatusOK, store.ContentType(ref), data)
	}
}
