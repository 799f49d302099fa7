package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DBConfig struct {
		Host     string `env:"CHECKOUT_DB_HOST"`
		Port     int    `env:"CHECKOUT_DB_PORT"`
		User     string `env:"CHECKOUT_DB_USER"`
		Password string `env:"CHECKOUT_DB_PASSWORD"`
		Name     string `env:"CHECKOUT_DB_NAME"`
	}

	KafkaBrokerURL           string `env:"KAFKA_BROKER_URL"`
	KafkaPurchaseTasksTopic  string `env:"KAFKA_PURCHASE_TASKS_TOPIC"`
	KafkaPurchaseStatusTopic string `env:"KAFKA_PURCHASE_STATUS_TOPIC"`
	KafkaConsumerGroup       string `env:"KAFKA_CONSUMER_GROUP"`

	HTTPPort int `env:"CHECKOUT_HTTP_PORT"`

	StripeAPIBaseURL string `env:"STRIPE_API_BASE_URL"`
	StripeSecretKey  string `env:"STRIPE_SECRET_KEY"`

	ChargeDescriptionPrefix   string `env:"CHARGE_DESCRIPTION_PREFIX"`
	StatementDescriptorPrefix string `env:"STATEMENT_DESCRIPTOR_PREFIX"`

	RemoteCallTimeout time.Duration `env:"REMOTE_CALL_TIMEOUT"`

	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL"`
	OutboxPollTimeout  time.Duration `env:"OUTBOX_POLL_TIMEOUT"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.DBConfig.Host = getEnvOrDefault("CHECKOUT_DB_HOST", "localhost")
	cfg.DBConfig.Port = getEnvAsInt("CHECKOUT_DB_PORT", 5432)
	cfg.DBConfig.User = getEnvOrDefault("CHECKOUT_DB_USER", "user")
	cfg.DBConfig.Password = getEnvOrDefault("CHECKOUT_DB_PASSWORD", "password")
	cfg.DBConfig.Name = getEnvOrDefault("CHECKOUT_DB_NAME", "checkout_db")

	cfg.KafkaBrokerURL = getEnvOrDefault("KAFKA_BROKER_URL", "localhost:9092")
	cfg.KafkaPurchaseTasksTopic = getEnvOrDefault("KAFKA_PURCHASE_TASKS_TOPIC", "purchase_tasks")
	cfg.KafkaPurchaseStatusTopic = getEnvOrDefault("KAFKA_PURCHASE_STATUS_TOPIC", "purchase_status_updates")
	cfg.KafkaConsumerGroup = getEnvOrDefault("KAFKA_CONSUMER_GROUP", "checkout-service-group")

	cfg.HTTPPort = getEnvAsInt("CHECKOUT_HTTP_PORT", 8083)

	cfg.StripeAPIBaseURL = getEnvOrDefault("STRIPE_API_BASE_URL", "https://api.stripe.com")
	cfg.StripeSecretKey = getEnvOrDefault("STRIPE_SECRET_KEY", "")

	cfg.ChargeDescriptionPrefix = getEnvOrDefault("CHARGE_DESCRIPTION_PREFIX", "Plentiful Shop purchase: ")
	cfg.StatementDescriptorPrefix = getEnvOrDefault("STATEMENT_DESCRIPTOR_PREFIX", "PLENTIFUL ")

	cfg.RemoteCallTimeout = getEnvAsDuration("REMOTE_CALL_TIMEOUT", 30*time.Second)

	cfg.OutboxPollInterval = getEnvAsDuration("OUTBOX_POLL_INTERVAL", 5*time.Second)
	cfg.OutboxPollTimeout = getEnvAsDuration("OUTBOX_POLL_TIMEOUT", 10*time.Second)

	return cfg, nil
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Name)
}

func (c *Config) GetDBMigrationConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.Name)
}

func (c *Config) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokerURL, ",")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnvOrDefault(key, strconv.Itoa(defaultValue))
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnvOrDefault(key, defaultValue.String())
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
