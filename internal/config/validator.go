package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"cablesync/internal/inventory"
	"cablesync/pkg/cel"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

var sslModes = map[string]bool{
	"disable": true, "allow": true, "prefer": true,
	"require": true, "verify-ca": true, "verify-full": true,
}

// problems collects every invalid field so one failed start reports all of them.
type problems []error

func (p *problems) add(field, format string, args ...interface{}) {
	*p = append(*p, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (p *problems) port(field string, port int) {
	if port < 1 || port > 65535 {
		p.add(field, "port must be between 1 and 65535, got %d", port)
	}
}

func (p *problems) positive(field string, value int64) {
	if value <= 0 {
		p.add(field, "must be positive, got %d", value)
	}
}

func (p *problems) nonNegative(field string, value int64) {
	if value < 0 {
		p.add(field, "must be non-negative, got %d", value)
	}
}

// ValidateStatic checks cfg without touching the network.
func ValidateStatic(cfg *Config) error {
	var p problems

	p.server(cfg.Server)
	p.broker(cfg.Broker)
	p.database(cfg.Database)
	p.importSettings(cfg.Import)
	p.normalizer(cfg.Normalizer)
	p.classification(cfg.Classification)
	p.nonNegative("counters.cache_ttl_seconds", int64(cfg.Counters.CacheTTLSeconds))
	p.rateLimit(cfg.API.RateLimit)
	p.circuitBreaker(cfg.CircuitBreaker)
	p.tracing(cfg.Tracing)

	return errors.Join(p...)
}

func (p *problems) server(cfg ServerConfig) {
	p.port("server.port", cfg.Port)
	p.positive("server.read_timeout_seconds", int64(cfg.ReadTimeoutSeconds))
	p.positive("server.write_timeout_seconds", int64(cfg.WriteTimeoutSeconds))
}

// An empty broker type disables messaging.
func (p *problems) broker(cfg BrokerConfig) {
	switch cfg.Type {
	case "":
	case "kafka":
		p.kafka(cfg.Kafka)
	default:
		p.add("broker.type", "unknown broker type: %s (supported: kafka)", cfg.Type)
	}
}

func (p *problems) kafka(cfg KafkaConfig) {
	if len(cfg.Brokers) == 0 {
		p.add("broker.kafka.brokers", "at least one Kafka broker is required")
	}
	if cfg.GroupID == "" {
		p.add("broker.kafka.group_id", "Kafka consumer group ID is required")
	}

	r := cfg.Retry
	p.nonNegative("broker.kafka.retry.max_attempts", int64(r.MaxAttempts))
	p.nonNegative("broker.kafka.retry.initial_interval", int64(r.InitialInterval))
	p.nonNegative("broker.kafka.retry.max_interval", int64(r.MaxInterval))
	if r.MaxInterval > 0 && r.InitialInterval > r.MaxInterval {
		p.add("broker.kafka.retry.max_interval", "must not be below initial_interval")
	}
	if r.Multiplier <= 0 {
		p.add("broker.kafka.retry.multiplier", "multiplier must be positive")
	}
}

// Stores are optional; a section is checked only once it is partly filled in.
func (p *problems) database(cfg DatabaseConfig) {
	if pg := cfg.Postgres; pg.Host != "" || pg.Port > 0 {
		if pg.Host == "" {
			p.add("database.postgres.host", "PostgreSQL host is required")
		}
		p.port("database.postgres.port", pg.Port)
		if pg.User == "" {
			p.add("database.postgres.user", "PostgreSQL user is required")
		}
		if pg.DBName == "" {
			p.add("database.postgres.dbname", "PostgreSQL database name is required")
		}
		if pg.SSLMode != "" && !sslModes[strings.ToLower(pg.SSLMode)] {
			p.add("database.postgres.sslmode", "invalid SSL mode: %s", pg.SSLMode)
		}
	}

	if rd := cfg.Redis; rd.Host != "" || rd.Port > 0 {
		if rd.Host == "" {
			p.add("database.redis.host", "Redis host is required")
		}
		p.port("database.redis.port", rd.Port)
		p.nonNegative("database.redis.ttl_seconds", int64(rd.TTLSeconds))
	}

	if mg := cfg.MongoDB; mg.URI != "" {
		if !strings.HasPrefix(mg.URI, "mongodb://") && !strings.HasPrefix(mg.URI, "mongodb+srv://") {
			p.add("database.mongodb.uri", "MongoDB URI must start with mongodb:// or mongodb+srv://")
		}
		if mg.Database == "" {
			p.add("database.mongodb.database", "MongoDB database name is required")
		}
	}
}

func (p *problems) importSettings(cfg ImportConfig) {
	p.positive("import.snapshot_write_chunk", int64(cfg.SnapshotWriteChunk))
	p.positive("import.snapshot_read_page", int64(cfg.SnapshotReadPage))
	p.positive("import.event_write_chunk", int64(cfg.EventWriteChunk))
	p.positive("import.projection_write_chunk", int64(cfg.ProjectionWriteChunk))
	p.positive("import.max_source_bytes", cfg.MaxSourceBytes)
}

func (p *problems) normalizer(cfg NormalizerConfig) {
	if _, err := inventory.ParseStatus(cfg.DefaultStatus); err != nil {
		p.add("normalizer.default_status", "%v", err)
	}
	if strings.TrimSpace(cfg.Columns.Code) == "" {
		p.add("normalizer.columns.code", "code column name is required")
	}
	if cfg.ExcludeExpression == "" {
		return
	}
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		p.add("normalizer.exclude_expression", "%v", err)
		return
	}
	if err := evaluator.ValidateFilterExpression(cfg.ExcludeExpression); err != nil {
		p.add("normalizer.exclude_expression", "%v", err)
	}
}

func (p *problems) classification(cfg ClassificationConfig) {
	eps, err := decimal.NewFromString(cfg.RegressionEpsilon)
	switch {
	case err != nil:
		p.add("classification.regression_epsilon", "not a decimal: %q", cfg.RegressionEpsilon)
	case eps.IsNegative():
		p.add("classification.regression_epsilon", "epsilon must be non-negative")
	}
}

func (p *problems) rateLimit(cfg RateLimitConfig) {
	if !cfg.Enabled {
		return
	}
	if cfg.RPS < 0 {
		p.add("api.rate_limit.rps", "must be non-negative, got %g", cfg.RPS)
	}
	p.nonNegative("api.rate_limit.burst", int64(cfg.Burst))
	p.nonNegative("api.rate_limit.cleanup_interval", int64(cfg.CleanupInterval))
	p.nonNegative("api.rate_limit.max_age", int64(cfg.MaxAge))
}

func (p *problems) circuitBreaker(cfg CircuitBreakerConfig) {
	if !cfg.Enabled {
		return
	}
	if cfg.FailureRatio < 0 || cfg.FailureRatio > 1 {
		p.add("circuit_breaker.failure_ratio", "must be within [0, 1], got %g", cfg.FailureRatio)
	}
	p.nonNegative("circuit_breaker.interval", int64(cfg.Interval))
	p.nonNegative("circuit_breaker.timeout", int64(cfg.Timeout))
}

func (p *problems) tracing(cfg TracingConfig) {
	if !cfg.Enabled {
		return
	}
	if cfg.OTLP.Endpoint == "" {
		p.add("tracing.otlp.endpoint", "endpoint is required when tracing is enabled")
	}
	switch cfg.Sampler.Type {
	case "", "always_on", "always_off", "parentbased_always_on":
	case "traceidratio", "parentbased_traceidratio":
		if cfg.Sampler.Param < 0 || cfg.Sampler.Param > 1 {
			p.add("tracing.sampler.param", "ratio must be within [0, 1], got %g", cfg.Sampler.Param)
		}
	default:
		p.add("tracing.sampler.type", "unknown sampler: %s", cfg.Sampler.Type)
	}
}
