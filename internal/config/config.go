package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Pushover PushoverConfig
	Monitor  MonitorConfig
	LogLevel string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers     []string
	TickerTopic string
	AlertTopic  string
	GroupID     string
}

// RedisConfig holds the price cache configuration
type RedisConfig struct {
	Addr            string
	PriceTTLSeconds int
}

// PushoverConfig holds the push-notification service credentials. An empty
// token leaves external notification unconfigured.
type PushoverConfig struct {
	Token   string
	UserKey string
}

// MonitorConfig holds scheduler tuning
type MonitorConfig struct {
	PollIntervalSeconds  int
	FetchTimeoutSeconds  int
	NotifyTimeoutSeconds int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "tickermonitor"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:     []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			TickerTopic: getEnv("KAFKA_TICKER_TOPIC", "ticker-events"),
			AlertTopic:  getEnv("KAFKA_ALERT_TOPIC", "alert-events"),
			GroupID:     getEnv("KAFKA_GROUP_ID", "ticker-monitor"),
		},
		Redis: RedisConfig{
			Addr:            getEnv("REDIS_ADDR", "localhost:6379"),
			PriceTTLSeconds: getEnvInt("REDIS_PRICE_TTL_SECONDS", 300),
		},
		Pushover: PushoverConfig{
			Token:   getEnv("PUSHOVER_TOKEN", ""),
			UserKey: getEnv("PUSHOVER_USER_KEY", ""),
		},
		Monitor: MonitorConfig{
			PollIntervalSeconds:  getEnvInt("MONITOR_POLL_INTERVAL_SECONDS", 30),
			FetchTimeoutSeconds:  getEnvInt("MONITOR_FETCH_TIMEOUT_SECONDS", 10),
			NotifyTimeoutSeconds: getEnvInt("MONITOR_NOTIFY_TIMEOUT_SECONDS", 10),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
