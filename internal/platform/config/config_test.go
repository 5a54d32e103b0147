package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, int32(1), cfg.Kafka.Partitions)
	assert.Equal(t, int16(1), cfg.Kafka.ReplicationFactor)
	assert.Equal(t, "payment-status", cfg.Kafka.Topics.PaymentStatus)
	assert.Len(t, cfg.Kafka.Topics.All(), 8)
	assert.Equal(t, "America/New_York", cfg.DoddFrank.Zone)
	assert.True(t, cfg.DoddFrank.Enabled)
	assert.Empty(t, cfg.Postgres.URL)
	assert.False(t, cfg.Kafka.TLS.Active())
	assert.False(t, cfg.SchemaRegistry.TLS.Active())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,,")
	t.Setenv("KAFKA_TOPIC_PARTITIONS", "6")
	t.Setenv("SCHEMA_REGISTRY_TIMEOUT", "250ms")
	t.Setenv("REDIS_POOL_SIZE", "not-a-number")
	t.Setenv("DODD_FRANK_ENABLED", "false")

	cfg := FromEnv()

	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, int32(6), cfg.Kafka.Partitions)
	assert.Equal(t, 250*time.Millisecond, cfg.SchemaRegistry.Timeout)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.False(t, cfg.DoddFrank.Enabled)
}
