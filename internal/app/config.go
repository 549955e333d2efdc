package app

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config описывает настройки запуска сервиса из окружения.
type Config struct {
	// HTTP
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`

	// Хранилище: пустой DSN означает работу на in-memory хранилище.
	PostgresDSN string `env:"POSTGRES_DSN"`

	// Kafka: пустой список брокеров отключает публикацию событий.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Канал исходящих сообщений
	WhatsAppPhone string `env:"WHATSAPP_PHONE" envDefault:"+10000000000"`

	// Логирование
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadConfig читает конфигурацию из переменных окружения.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// UsesPostgres сообщает, настроено ли внешнее хранилище.
func (c Config) UsesPostgres() bool {
	return c.PostgresDSN != ""
}

// UsesKafka сообщает, настроена ли публикация событий.
func (c Config) UsesKafka() bool {
	return len(c.KafkaBrokers) > 0
}
