package broker

import (
	"fmt"

	"cablesync/internal/config"
	"cablesync/internal/logger"
)

const TypeKafka = "kafka"

// Enabled reports whether messaging is configured. The sync service runs
// without a broker; the worker requires one.
func Enabled(cfg config.BrokerConfig) bool {
	return cfg.Type != ""
}

func NewProducer(cfg config.BrokerConfig, serviceName string, log logger.Logger) (Producer, error) {
	switch cfg.Type {
	case TypeKafka:
		p := NewKafkaProducer(cfg.Kafka, log)
		p.SetServiceName(serviceName)
		return p, nil
	default:
		return nil, fmt.Errorf("unknown broker type: %q", cfg.Type)
	}
}

func NewConsumer(cfg config.BrokerConfig, serviceName string, log logger.Logger) (Consumer, error) {
	switch cfg.Type {
	case TypeKafka:
		c := NewKafkaConsumer(cfg.Kafka, log)
		c.SetServiceName(serviceName)
		return c, nil
	default:
		return nil, fmt.Errorf("unknown broker type: %q", cfg.Type)
	}
}
