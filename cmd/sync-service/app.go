package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	"cablesync/internal/config"
	"cablesync/internal/constants"
	"cablesync/internal/importer"
	"cablesync/internal/logger"
	"cablesync/internal/vocabulary"
	"cablesync/pkg/bootstrap"
	"cablesync/pkg/health"
	"cablesync/pkg/metrics"
	"cablesync/pkg/middleware"
	"cablesync/pkg/ratelimit"
	"cablesync/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	stack   *bootstrap.ImportStack
	limiter *ratelimit.Store
	router  *gin.Engine
	server  *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base: bootstrap.NewBase(cfg, log, constants.ServiceNameSync),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.InitTracing(); err != nil {
		return err
	}

	if err := a.Connect(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.InitProducer(); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	stack, err := a.NewImportStack(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize import pipeline: %w", err)
	}
	a.stack = stack

	metrics.RegisterImportMetrics()
	metrics.RegisterAPIMetrics()
	metrics.RegisterDatabaseMetrics()
	if a.Producer != nil {
		metrics.RegisterBrokerMetrics()
	}
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	a.initRouter(ctx)

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds,
	}
	return nil
}

func (a *App) initRouter(ctx context.Context) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(a.ServiceName))
	}
	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.MetricsMiddleware())

	var writeMiddleware []gin.HandlerFunc
	if a.Config.API.RateLimit.Enabled {
		limitCfg := ratelimit.FromSettings(a.Config.API.RateLimit)
		a.limiter = ratelimit.NewStore(limitCfg)
		writeMiddleware = append(writeMiddleware, a.limiter.Middleware())
		a.Logger.InfowCtx(ctx, "Rate limiting enabled", "rps", limitCfg.RPS, "burst", limitCfg.Burst)
	}

	maxUpload := a.Config.Import.MaxSourceBytes
	if maxUpload <= 0 {
		maxUpload = constants.DefaultMaxSourceBytes
	}
	importer.NewHandler(a.stack.Service, a.Logger, maxUpload).RegisterRoutes(router, writeMiddleware...)

	if a.stack.Vocabulary != nil {
		vocabulary.NewHandler(a.stack.Vocabulary, a.Logger).RegisterRoutes(router)
	}

	registry := a.HealthRegistry(a.stack)
	router.GET("/health", func(c *gin.Context) {
		h := registry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.router = router
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(gCtx, "Server listening", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if a.limiter != nil {
		g.Go(func() error {
			a.limiter.Run(gCtx)
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.Base.Shutdown(ctx, func(ctx context.Context) []error {
		if a.server == nil {
			return nil
		}
		shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return []error{fmt.Errorf("server shutdown error: %w", err)}
		}
		return nil
	})
}
