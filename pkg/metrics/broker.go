package metrics

import (
	"strconv"
	"time"
)

var (
	retryAttempts  = counterVec("retry_attempts_total", "Handler retries after a failed attempt (count)", "service", "topic")
	dlqMessages    = counterVec("dlq_messages_total", "Messages sent to the dead letter topic (count)", "service", "topic", "reason")
	kafkaRead      = counterVec("kafka_messages_read_total", "Messages read from Kafka (count)", "service", "topic")
	kafkaWritten   = counterVec("kafka_messages_written_total", "Messages written to Kafka (count)", "service", "topic")
	kafkaSize      = histogramVec("kafka_message_size_bytes", "Size of Kafka messages in bytes", sizeBuckets, "service", "topic", "direction")
	kafkaLag       = gaugeVec("kafka_consumer_lag", "Messages between the committed and the latest offset (count)", "service", "topic", "partition")
	kafkaReadTime  = histogramVec("kafka_read_duration_ms", "Duration of Kafka fetches in milliseconds", latencyBuckets, "service", "topic")
	kafkaWriteTime = histogramVec("kafka_write_duration_ms", "Duration of Kafka writes in milliseconds", latencyBuckets, "service", "topic")
	queueWaitTime  = histogramVec("message_queue_wait_duration_ms", "Time between publish and processing in milliseconds", latencyBuckets, "service")
)

func RegisterBrokerMetrics() {
	register(retryAttempts, dlqMessages, kafkaRead, kafkaWritten, kafkaSize, kafkaLag, kafkaReadTime, kafkaWriteTime, queueWaitTime)
}

func IncRetryAttempt(service, topic string) {
	retryAttempts.WithLabelValues(service, topic).Inc()
}

func IncDLQMessage(service, topic, reason string) {
	dlqMessages.WithLabelValues(service, topic, reason).Inc()
}

func IncKafkaMessagesRead(service, topic string) {
	kafkaRead.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	kafkaWritten.WithLabelValues(service, topic).Inc()
}

// ObserveKafkaMessageSize takes direction "in" or "out".
func ObserveKafkaMessageSize(service, topic, direction string, sizeBytes int) {
	kafkaSize.WithLabelValues(service, topic, direction).Observe(float64(sizeBytes))
}

func SetKafkaConsumerLag(service, topic string, partition int, lag int64) {
	kafkaLag.WithLabelValues(service, topic, strconv.Itoa(partition)).Set(float64(lag))
}

func ObserveKafkaReadDuration(service, topic string, duration time.Duration) {
	kafkaReadTime.WithLabelValues(service, topic).Observe(ms(duration))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	kafkaWriteTime.WithLabelValues(service, topic).Observe(ms(duration))
}

func ObserveMessageQueueWaitDuration(service string, duration time.Duration) {
	queueWaitTime.WithLabelValues(service).Observe(ms(duration))
}
