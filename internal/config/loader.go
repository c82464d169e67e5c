package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"cablesync/internal/constants"
)

var defaults = map[string]interface{}{
	"server.port":                  8080,
	"server.read_timeout_seconds":  "30s",
	"server.write_timeout_seconds": "120s",

	"logging.level":  "info",
	"logging.format": "json",

	"import.snapshot_write_chunk":   constants.DefaultSnapshotWriteChunk,
	"import.snapshot_read_page":     constants.DefaultSnapshotReadPage,
	"import.event_write_chunk":      constants.DefaultEventWriteChunk,
	"import.projection_write_chunk": constants.DefaultProjectionWriteChunk,
	"import.max_source_bytes":       constants.DefaultMaxSourceBytes,

	"normalizer.marker":            "*",
	"normalizer.default_status":    "Free",
	"normalizer.columns.code":      "code",
	"normalizer.columns.status":    "status",
	"normalizer.columns.measure_a": "measure_a",
	"normalizer.columns.measure_b": "measure_b",

	"classification.regression_epsilon": "0.01",
	"counters.cache_ttl_seconds":        300,

	"broker.kafka.input_topic":      constants.DefaultInputTopic,
	"broker.kafka.output_topic":     constants.DefaultOutputTopic,
	"broker.kafka.retry.multiplier": 2.0,
}

// envKeys can be set from the environment without appearing in the file.
// DATABASE_POSTGRES_HOST overrides database.postgres.host, and so on.
var envKeys = []string{
	"server.port",
	"server.read_timeout_seconds",
	"server.write_timeout_seconds",
	"logging.level",
	"logging.format",

	"database.run_migrations",
	"database.postgres.host",
	"database.postgres.port",
	"database.postgres.user",
	"database.postgres.password",
	"database.postgres.dbname",
	"database.postgres.sslmode",
	"database.redis.host",
	"database.redis.port",
	"database.redis.password",
	"database.redis.db",
	"database.mongodb.uri",
	"database.mongodb.database",

	"broker.type",
	"broker.kafka.brokers",
	"broker.kafka.group_id",
	"broker.kafka.input_topic",
	"broker.kafka.output_topic",
	"broker.kafka.dlq_topic",

	"import.source_root",
	"import.publish_results",
	"normalizer.exclude_expression",
	"classification.regression_epsilon",

	"tracing.enabled",
	"tracing.service_name",
	"tracing.otlp.endpoint",
	"tracing.otlp.insecure",
}

// Load reads configFile, layers environment overrides on top and validates
// the result.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(configFile)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Broker.Kafka.Brokers = splitList(cfg.Broker.Kafka.Brokers)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// splitList accepts both a YAML list and a comma separated env value.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
