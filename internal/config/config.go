package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Env                string
	HTTPPort           string
	GRPCHealthPort     string
	BaseURL            string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	MongoURI    string
	MongoDBName string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Postgres         PostgresConfig
	KafkaBrokers     []string
	OrderEventsTopic string
	JWTSecret        string
	TaxPrice         decimal.Decimal
	ShippingPrice    decimal.Decimal
	Currency         string
	PaymentAPIURL    string
	PaymentSecretKey string
	WebhookSecret    string
	PaymentTimeout   time.Duration
	WebhookTolerance time.Duration
}

type PostgresConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	pgPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	tax, err := decimal.NewFromString(getEnv("TAX_PRICE", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid TAX_PRICE: %w", err)
	}
	shipping, err := decimal.NewFromString(getEnv("SHIPPING_PRICE", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHIPPING_PRICE: %w", err)
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "production"),
		HTTPPort:           getEnv("HTTP_PORT", "8000"),
		GRPCHealthPort:     getEnv("GRPC_HEALTH_PORT", "50060"),
		BaseURL:            getEnv("BASE_URL", "http://localhost:8000"),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
		MongoDBName:        getEnv("MONGO_DB_NAME", "eshop"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            redisDB,
		Postgres: PostgresConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              pgPort,
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", "postgres"),
			DBName:            getEnv("DB_NAME", "eshop"),
			MigrationsDirPath: getEnv("MIGRATIONS_PATH", "./internal/eventlog/migrations"),
		},
		KafkaBrokers:     splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		OrderEventsTopic: getEnv("ORDER_EVENTS_TOPIC", "order-events"),
		JWTSecret:        os.Getenv("JWT_SECRET_KEY"),
		TaxPrice:         tax,
		ShippingPrice:    shipping,
		Currency:         getEnv("PAYMENT_CURRENCY", "egp"),
		PaymentAPIURL:    getEnv("PAYMENT_API_URL", "https://api.stripe.com"),
		PaymentSecretKey: os.Getenv("STRIPE_SECRET"),
		WebhookSecret:    os.Getenv("STRIPE_WEBHOOK_SECRET"),
		PaymentTimeout:   getDuration("PAYMENT_TIMEOUT", 10*time.Second),
		WebhookTolerance: getDuration("WEBHOOK_TOLERANCE", 5*time.Minute),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY is not set")
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
