package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"cablesync/internal/classification"
	"cablesync/internal/config"
	"cablesync/internal/constants"
	"cablesync/internal/diff"
	"cablesync/internal/importer"
	"cablesync/internal/inventory"
	"cablesync/internal/normalizer"
	"cablesync/internal/source"
	"cablesync/internal/vocabulary"
	"cablesync/pkg/cel"
	"cablesync/pkg/health"
	"cablesync/pkg/migrations"
)

// ImportStack is the import pipeline wired from configuration. Vocabulary and
// Counters are nil when MongoDB or Redis is not connected.
type ImportStack struct {
	Service    *importer.Service
	Vocabulary *vocabulary.Service
	Counters   importer.CounterCache
}

// NewNormalizer builds the configured normalizer and its base vocabulary.
func NewNormalizer(cfg config.NormalizerConfig) (*normalizer.Normalizer, error) {
	opts := []normalizer.Option{}
	if cfg.Marker != "" {
		opts = append(opts, normalizer.WithMarker(cfg.Marker))
	}

	if cfg.DefaultStatus != "" {
		status, err := inventory.ParseStatus(cfg.DefaultStatus)
		if err != nil {
			return nil, fmt.Errorf("normalizer.default_status: %w", err)
		}
		opts = append(opts, normalizer.WithVocabulary(normalizer.DefaultVocabulary().WithDefault(status)))
	}

	if cfg.ExcludeExpression != "" {
		evaluator, err := cel.NewEvaluator()
		if err != nil {
			return nil, err
		}
		filter, err := evaluator.CompileRowFilter(cfg.ExcludeExpression)
		if err != nil {
			return nil, fmt.Errorf("normalizer.exclude_expression: %w", err)
		}
		opts = append(opts, normalizer.WithRowFilter(filter))
	}

	return normalizer.New(opts...), nil
}

func NewEngine(cfg config.ClassificationConfig) (*diff.Engine, error) {
	table := classification.DefaultTable()
	if cfg.RegressionEpsilon != "" {
		eps, err := decimal.NewFromString(cfg.RegressionEpsilon)
		if err != nil {
			return nil, fmt.Errorf("classification.regression_epsilon: %w", err)
		}
		table = table.WithRegressionEpsilon(eps)
	}
	return diff.NewEngine(table), nil
}

func counterTTL(cfg *config.Config) time.Duration {
	switch {
	case cfg.Counters.CacheTTLSeconds > 0:
		return time.Duration(cfg.Counters.CacheTTLSeconds) * time.Second
	case cfg.Database.Redis.TTLSeconds > 0:
		return time.Duration(cfg.Database.Redis.TTLSeconds) * time.Second
	default:
		return constants.DefaultTTLSeconds * time.Second
	}
}

// NewImportStack wires the import service over whatever Connect and InitProducer
// managed to open.
func (b *Base) NewImportStack(ctx context.Context) (*ImportStack, error) {
	ctx = b.context(ctx)
	cfg := b.Config

	norm, err := NewNormalizer(cfg.Normalizer)
	if err != nil {
		return nil, err
	}
	engine, err := NewEngine(cfg.Classification)
	if err != nil {
		return nil, err
	}

	store := importer.NewPostgresStore(b.Postgres,
		importer.WithChunkSizes(cfg.Import),
		importer.WithStoreServiceName(b.ServiceName),
	)

	opts := []importer.ServiceOption{
		importer.WithNormalizer(norm),
		importer.WithEngine(engine),
	}
	if cfg.Import.MaxSourceBytes > 0 {
		opts = append(opts, importer.WithMaxSourceBytes(cfg.Import.MaxSourceBytes))
	}
	if cfg.Import.SourceRoot != "" {
		opts = append(opts, importer.WithSourceResolver(source.NewFileResolver(cfg.Import.SourceRoot, cfg.Import.MaxSourceBytes)))
	}

	stack := &ImportStack{}

	if b.Mongo != nil {
		mongoDB := MongoDatabase(b.Mongo, cfg.Database.MongoDB)
		if err := migrations.EnsureVocabularyCollection(ctx, mongoDB); err != nil {
			return nil, err
		}
		stack.Vocabulary = vocabulary.NewService(vocabulary.NewRepository(mongoDB), norm.Vocabulary(), constants.DefaultMongoTimeout, b.Logger)
		opts = append(opts, importer.WithVocabularyProvider(stack.Vocabulary))
	}

	if b.Redis != nil {
		cache := importer.NewRedisCounterCache(b.Redis, counterTTL(cfg))
		stack.Counters = importer.NewCircuitBreakerCounterCache(cache, cfg.CircuitBreaker)
		opts = append(opts, importer.WithCounterCache(stack.Counters))
	}

	if cfg.Import.PublishResults && b.Producer != nil {
		topic := cfg.Broker.Kafka.OutputTopic
		if topic == "" {
			topic = constants.DefaultOutputTopic
		}
		opts = append(opts, importer.WithNotifier(importer.NewBrokerNotifier(b.Producer, topic, b.ServiceName)))
		b.Logger.InfowCtx(ctx, "Publishing import results", "topic", topic)
	}

	stack.Service = importer.NewService(store, source.NewRegistry(cfg.Normalizer), b.Logger, opts...)
	return stack, nil
}

// HealthRegistry requires Postgres; every other dependency only degrades health.
func (b *Base) HealthRegistry(stack *ImportStack) *health.CheckerRegistry {
	registry := health.NewCheckerRegistry()
	registry.Register(health.Postgres(b.Postgres))
	if b.Redis != nil {
		registry.RegisterOptional(health.Redis(b.Redis))
	}
	// Imports load the scope vocabulary from MongoDB once it is configured.
	if b.Mongo != nil {
		registry.Register(health.Mongo(b.Mongo))
	}
	if stack != nil {
		if breaker, ok := stack.Counters.(interface{ State() string }); ok {
			registry.RegisterOptional(health.Breaker("redis-counters", breaker.State))
		}
	}
	return registry
}
