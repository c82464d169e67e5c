package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"cablesync/internal/broker"
	"cablesync/internal/config"
	"cablesync/internal/logger"
	"cablesync/pkg/logging"
	"cablesync/pkg/tracing"
)

// Base holds the connections shared by the sync service and the worker.
// Postgres is always present after Connect; Redis, MongoDB and the producer are
// nil when not configured.
type Base struct {
	Config      *config.Config
	Logger      logger.Logger
	ServiceName string

	Postgres *sql.DB
	Redis    *redis.Client
	Mongo    *mongo.Client
	Producer broker.Producer
	Tracer   *tracing.TracerProvider

	db *DatabaseConnector
}

func NewBase(cfg *config.Config, log logger.Logger, serviceName string) *Base {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(serviceName)
	}
	return &Base{
		Config:      cfg,
		Logger:      log,
		ServiceName: serviceName,
		db:          NewDatabaseConnector(cfg, log),
	}
}

func (b *Base) context(ctx context.Context) context.Context {
	return logging.WithServiceName(ctx, b.ServiceName)
}

// Connect opens the databases. A failing optional store is logged and skipped
// so imports keep running on Postgres alone.
func (b *Base) Connect(ctx context.Context) error {
	ctx = b.context(ctx)

	db, err := b.db.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	b.Postgres = db

	if b.Config.Database.RunMigrations {
		if err := b.db.MigratePostgreSQL(ctx, db); err != nil {
			return err
		}
	}

	rdb, err := b.db.InitRedis(ctx)
	if err != nil {
		b.Logger.WarnwCtx(ctx, "Redis unavailable, counters will not be cached", "error", err)
	}
	b.Redis = rdb

	mongoClient, err := b.db.InitMongoDB(ctx)
	if err != nil {
		b.Logger.WarnwCtx(ctx, "MongoDB unavailable, vocabulary overrides disabled", "error", err)
	}
	b.Mongo = mongoClient

	return nil
}

// InitProducer creates the result producer. It is a no-op when no broker is configured.
func (b *Base) InitProducer() error {
	if !broker.Enabled(b.Config.Broker) {
		return nil
	}
	producer, err := broker.NewProducer(b.Config.Broker, b.ServiceName, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}
	b.Producer = producer
	return nil
}

// NewConsumer fails when no broker is configured; only the worker calls it.
func (b *Base) NewConsumer() (broker.Consumer, error) {
	if !broker.Enabled(b.Config.Broker) {
		return nil, fmt.Errorf("broker.type is required to consume import requests")
	}
	consumer, err := broker.NewConsumer(b.Config.Broker, b.ServiceName, b.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}
	return consumer, nil
}

func (b *Base) InitTracing() error {
	tp, err := tracing.Init(b.Config.Tracing, b.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	b.Tracer = tp
	return nil
}

// Shutdown runs additionalShutdown first so servers and consumers stop before
// the connections they use are closed.
func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	ctx = b.context(ctx)
	b.Logger.InfowCtx(ctx, "Shutting down application")

	var errs []error
	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	if b.Tracer != nil {
		if err := b.Tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
		}
	}

	errs = append(errs, b.db.ShutdownDatabases(ctx, b.Redis, b.Postgres, b.Mongo)...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.InfowCtx(ctx, "Application exited successfully")
	return nil
}
