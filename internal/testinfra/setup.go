//go:build integration

// Package testinfra starts throwaway containers for integration tests. Each
// helper registers its own cleanup on t.
package testinfra

import (
	"context"
	"database/sql"
	"net"
	"strconv"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cablesync/pkg/migrations"
)

const (
	startupTimeout = 60 * time.Second
	pingTimeout    = 10 * time.Second
)

// Postgres returns a migrated database.
func Postgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15",
		tcpostgres.WithDatabase("cablesync"),
		tcpostgres.WithUsername("sync"),
		tcpostgres.WithPassword("sync"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout),
		),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start postgres")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(pingCtx), "ping postgres")
	require.NoError(t, migrations.UpPostgres(db), "migrate postgres")
	return db
}

// Mongo returns an empty database on a fresh server.
func Mongo(t *testing.T) *mongo.Database {
	t.Helper()
	ctx := context.Background()

	container, err := tcmongo.Run(ctx, "mongo:6",
		testcontainers.WithWaitStrategy(wait.ForLog("Waiting for connections").WithStartupTimeout(startupTimeout)),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start mongo")

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	return client.Database("cablesync")
}

func Redis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:8.4.0-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start redis")

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opt, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	require.NoError(t, client.Ping(pingCtx).Err(), "ping redis")
	return client
}

// Kafka starts a single-node KRaft cluster, creates topics and returns the
// bootstrap addresses.
func Kafka(t *testing.T, topics ...string) []string {
	t.Helper()
	ctx := context.Background()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("cablesync-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	if len(topics) > 0 {
		createTopics(t, brokers[0], topics)
	}
	return brokers
}

// Topic creation has to go through the controller.
func createTopics(t *testing.T, addr string, topics []string) {
	t.Helper()

	conn, err := kafka.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
	}
	require.NoError(t, controllerConn.CreateTopics(configs...))
}
