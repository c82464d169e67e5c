//go:build integration

package broker

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cablesync/internal/config"
	"cablesync/internal/logger"
	"cablesync/internal/testinfra"
	"cablesync/pkg/models"
	"cablesync/pkg/retry"
)

func testKafkaConfig(brokers []string) config.KafkaConfig {
	return config.KafkaConfig{
		Brokers:  brokers,
		GroupID:  "sync-worker-test",
		DLQTopic: "import_requests_dlq",
		Retry: config.RetryConfig{
			MaxAttempts:     2,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     20 * time.Millisecond,
		},
	}
}

func envelope(id string) models.MessageEnvelope {
	msg, err := models.NewEnvelope(id, "test", models.EventTypeImportRequested, models.ImportRequested{
		DatasetScopeID: "S",
		SourceBase64:   "QQ==",
	})
	if err != nil {
		panic(err)
	}
	return msg
}

func TestIntegration_KafkaRoundTrip(t *testing.T) {
	brokers := testinfra.Kafka(t, "import_requests", "import_requests_dlq")
	cfg := testKafkaConfig(brokers)

	producer := NewKafkaProducer(cfg, logger.NopLogger())
	defer producer.Close()
	require.NoError(t, producer.Publish(context.Background(), "import_requests", envelope("ok-1")))
	require.NoError(t, producer.Publish(context.Background(), "import_requests", envelope("bad-1")))

	consumer := NewKafkaConsumer(cfg, logger.NopLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	received := make(chan string, 4)
	var badAttempts atomic.Int32
	go func() {
		_ = consumer.Consume(ctx, "import_requests", func(ctx context.Context, msg models.MessageEnvelope) error {
			if msg.ID == "bad-1" {
				badAttempts.Add(1)
				return retry.NewFatalError(assert.AnError)
			}
			received <- msg.ID
			return nil
		})
	}()

	select {
	case id := <-received:
		assert.Equal(t, "ok-1", id)
	case <-ctx.Done():
		t.Fatal("message was not delivered")
	}

	dlq := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   "import_requests_dlq",
	})
	defer dlq.Close()

	m, err := dlq.ReadMessage(ctx)
	require.NoError(t, err)

	var dead models.MessageEnvelope
	require.NoError(t, json.Unmarshal(m.Value, &dead))
	assert.Equal(t, "bad-1", dead.ID)
	assert.Equal(t, "import_requests", dead.Metadata.Annotations["dlq_source_topic"])
	assert.Equal(t, int32(1), badAttempts.Load(), "fatal errors are not retried")

	cancel()
	require.NoError(t, consumer.Close())
}
