package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"cablesync/internal/broker"
	"cablesync/internal/config"
	"cablesync/internal/constants"
	"cablesync/internal/importer"
	"cablesync/internal/logger"
	"cablesync/pkg/bootstrap"
	"cablesync/pkg/health"
	"cablesync/pkg/metrics"
)

type App struct {
	*bootstrap.Base
	consumer broker.Consumer
	handler  *importer.RequestHandler
	server   *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if cfg.Broker.Type != "" {
		// Worker results are only observable on the output topic.
		cfg.Import.PublishResults = true
	}
	return &App{
		Base: bootstrap.NewBase(cfg, log, constants.ServiceNameWorker),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.InitTracing(); err != nil {
		return err
	}

	consumer, err := a.NewConsumer()
	if err != nil {
		return err
	}
	a.consumer = consumer

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
	a.handler = importer.NewRequestHandler(stack.Service, a.Logger)

	metrics.RegisterImportMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterDatabaseMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	a.initHTTPServer(a.HealthRegistry(stack))
	return nil
}

func (a *App) initHTTPServer(registry *health.CheckerRegistry) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := registry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(h)
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: mux,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(gCtx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	inputTopic := a.Config.Broker.Kafka.InputTopic
	if inputTopic == "" {
		inputTopic = constants.DefaultInputTopic
	}
	g.Go(func() error {
		a.Logger.InfowCtx(gCtx, "Consuming import requests", "topic", inputTopic)
		return a.consumer.Consume(gCtx, inputTopic, a.handler.Handle)
	})

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.Base.Shutdown(ctx, func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.consumer != nil {
			if err := a.consumer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("consumer close error: %w", err))
			}
		}

		return errs
	})
}
