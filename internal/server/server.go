package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/mercato/internal/branch"
	branchdomain "github.com/smallbiznis/mercato/internal/branch/domain"
	"github.com/smallbiznis/mercato/internal/config"
	"github.com/smallbiznis/mercato/internal/fiscal"
	fiscaldomain "github.com/smallbiznis/mercato/internal/fiscal/domain"
	"github.com/smallbiznis/mercato/internal/observability"
	obsmiddleware "github.com/smallbiznis/mercato/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/mercato/internal/observability/metrics"
	obstracing "github.com/smallbiznis/mercato/internal/observability/tracing"
	"github.com/smallbiznis/mercato/internal/plan"
	plandomain "github.com/smallbiznis/mercato/internal/plan/domain"
	"github.com/smallbiznis/mercato/internal/ratelimit"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fiscal.Module,
	plan.Module,
	branch.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	genID      *snowflake.Node
	fiscalSvc  fiscaldomain.Service
	planSvc    plandomain.Service
	branchSvc  branchdomain.Service
	taxLimiter *ratelimit.TaxCalcLimiter
	obsMetrics *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	GenID      *snowflake.Node
	FiscalSvc  fiscaldomain.Service
	PlanSvc    plandomain.Service
	BranchSvc  branchdomain.Service
	TaxLimiter *ratelimit.TaxCalcLimiter
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		genID:      p.GenID,
		fiscalSvc:  p.FiscalSvc,
		planSvc:    p.PlanSvc,
		branchSvc:  p.BranchSvc,
		taxLimiter: p.TaxLimiter,
		obsMetrics: p.ObsMetrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	store := v1.Group("/stores/:store_id", s.StoreContext())
	{
		cfg := store.Group("/fiscal-configuration")
		{
			cfg.POST("", s.CreateFiscalConfiguration)
			cfg.GET("", s.GetFiscalConfiguration)
			cfg.PATCH("", s.UpdateFiscalConfiguration)
			cfg.DELETE("", s.DeleteFiscalConfiguration)

			cfg.GET("/validate", s.ValidateFiscalConfiguration)
			cfg.GET("/applicable-rates", s.ListApplicableRates)

			cfg.POST("/regions", s.AddFiscalRegion)
			cfg.PUT("/regions", s.UpdateFiscalRegion)
			cfg.DELETE("/regions", s.RemoveFiscalRegion)

			cfg.POST("/reduced-rates", s.AddReducedRate)
			cfg.PUT("/reduced-rates/:description", s.UpdateReducedRate)
			cfg.DELETE("/reduced-rates/:description", s.RemoveReducedRate)

			cfg.POST("/tariff-fees", s.AddTariffFee)
			cfg.PUT("/tariff-fees/:index", s.UpdateTariffFee)
			cfg.DELETE("/tariff-fees/:index", s.RemoveTariffFee)

			cfg.POST("/customs-codes", s.AddCustomsCode)
			cfg.PUT("/customs-codes/:code", s.UpdateCustomsCode)
			cfg.DELETE("/customs-codes/:code", s.RemoveCustomsCode)
		}

		store.POST("/tax/calculate", s.CalculateTax)

		plans := store.Group("/plans")
		{
			plans.POST("", s.CreatePlan)
			plans.GET("", s.ListPlans)
			plans.GET("/:id", s.GetPlan)
			plans.PATCH("/:id", s.UpdatePlan)
		}

		branches := store.Group("/branches")
		{
			branches.POST("", s.CreateBranch)
			branches.GET("", s.ListBranches)
			branches.GET("/:id", s.GetBranch)
			branches.PATCH("/:id", s.UpdateBranch)
			branches.DELETE("/:id", s.DeleteBranch)
			branches.POST("/:id/default", s.SetDefaultBranch)
		}
	}
}
