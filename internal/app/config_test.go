package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.False(t, cfg.UsesPostgres())
	assert.False(t, cfg.UsesKafka())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("METRICS_ADDR", ":7071")
	t.Setenv("POSTGRES_DSN", "postgres://checkout:checkout@db:5432/checkout")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")
	t.Setenv("WHATSAPP_PHONE", "+79990001122")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, ":7071", cfg.MetricsAddr)
	assert.True(t, cfg.UsesPostgres())
	require.Len(t, cfg.KafkaBrokers, 2)
	assert.Equal(t, "broker-1:9092", cfg.KafkaBrokers[0])
	assert.Equal(t, "+79990001122", cfg.WhatsAppPhone)
	assert.Equal(t, "debug", cfg.LogLevel)
}
