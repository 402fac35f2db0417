package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("VOID_REVERSES_LEDGER", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.False(t, cfg.Business.VoidReversesLedger)
	assert.Equal(t, "sale-events", cfg.Kafka.TopicSales)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Second, cfg.Business.PrinterTimeout())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("VOID_REVERSES_LEDGER", "true")
	t.Setenv("LOCK_RETRY_DELAY_MS", "250")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg := Load()

	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.True(t, cfg.Business.VoidReversesLedger)
	assert.Equal(t, 250*time.Millisecond, cfg.Business.LockRetryDelay())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("LOCK_TTL_SECONDS", "ten")
	assert.Equal(t, 10, getEnvInt("LOCK_TTL_SECONDS", 10))
}
