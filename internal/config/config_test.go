package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.DBConfig.Host)
	assert.Equal(t, 5432, cfg.DBConfig.Port)
	assert.Equal(t, "purchase_tasks", cfg.KafkaPurchaseTasksTopic)
	assert.Equal(t, "purchase_status_updates", cfg.KafkaPurchaseStatusTopic)
	assert.Equal(t, "https://api.stripe.com", cfg.StripeAPIBaseURL)
	assert.Equal(t, "PLENTIFUL ", cfg.StatementDescriptorPrefix)
	assert.Equal(t, 30*time.Second, cfg.RemoteCallTimeout)
	assert.Equal(t, 5*time.Second, cfg.OutboxPollInterval)
	assert.Equal(t, 10*time.Second, cfg.OutboxPollTimeout)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("CHECKOUT_DB_PORT", "5433")
	t.Setenv("KAFKA_BROKER_URL", "kafka-1:9092,kafka-2:9092")
	t.Setenv("REMOTE_CALL_TIMEOUT", "5s")
	t.Setenv("STATEMENT_DESCRIPTOR_PREFIX", "MYSHOP ")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5433, cfg.DBConfig.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.GetKafkaBrokers())
	assert.Equal(t, 5*time.Second, cfg.RemoteCallTimeout)
	assert.Equal(t, "MYSHOP ", cfg.StatementDescriptorPrefix)
}

func TestLoadConfigIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("CHECKOUT_DB_PORT", "not-a-number")
	t.Setenv("REMOTE_CALL_TIMEOUT", "soon")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.DBConfig.Port)
	assert.Equal(t, 30*time.Second, cfg.RemoteCallTimeout)
}

func TestConnectionStrings(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Contains(t, cfg.GetDBConnectionString(), "dbname=checkout_db")
	assert.Contains(t, cfg.GetDBMigrationConnectionString(), "postgres://")
}
