// Package config loads the storefront configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers for pending orders.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	HTTPPort           string
	PublicURL          string
	AllowedOrigins     []string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	LogLevel           string

	MPAccessToken   string
	MPBaseURL       string
	MPWebhookSecret string

	StoreDriver  string
	SQLitePath   string
	Postgres     PostgresConfig
	MongoURI     string
	MongoDB      string
	CatalogSeed  string
	OrderLogPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CartTTL       time.Duration
	SessionIdle   time.Duration

	EmailAPIURL string
	EmailAPIKey string
	EmailFrom   string
	EmailTo     []string

	KafkaBrokers []string
	KafkaTopic   string

	WebhookRateLimit float64
	WebhookBurst     int
	NotifyTimeout    time.Duration
	Timezone         string
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Load reads a .env file when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var errs []error
	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		PublicURL:          strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:8080"), "/"),
		AllowedOrigins:     getList("ALLOWED_ORIGINS", "http://localhost:8080"),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second, &errs),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 10*time.Second, &errs),
		MaxRequestBodySize: 1 << 20, // 1MB
		LogLevel:           getEnv("LOG_LEVEL", "info"),

		MPAccessToken:   os.Getenv("MP_ACCESS_TOKEN"),
		MPBaseURL:       getEnv("MP_BASE_URL", "https://api.mercadopago.com"),
		MPWebhookSecret: os.Getenv("MP_WEBHOOK_SECRET"),

		StoreDriver: getEnv("STORE_DRIVER", DriverSQLite),
		SQLitePath:  getEnv("SQLITE_PATH", "data/storefront.db"),
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432, &errs),
			User:     getEnv("POSTGRES_USER", "storefront"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DBName:   getEnv("POSTGRES_DB", "storefront"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:      getEnv("MONGO_DB", "storefront"),
		CatalogSeed:  os.Getenv("CATALOG_SEED_FILE"),
		OrderLogPath: getEnv("ORDER_LOG_PATH", "data/pedidos.txt"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0, &errs),
		CartTTL:       getDuration("CART_TTL", 30*24*time.Hour, &errs),
		SessionIdle:   getDuration("SESSION_IDLE_TTL", 30*time.Minute, &errs),

		EmailAPIURL: getEnv("EMAIL_API_URL", "https://api.resend.com"),
		EmailAPIKey: os.Getenv("EMAIL_API_KEY"),
		EmailFrom:   getEnv("EMAIL_FROM", "pedidos@southsidewear.store"),
		EmailTo:     getList("EMAIL_TO", ""),

		KafkaBrokers: getList("KAFKA_BROKERS", ""),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "storefront-orders-approved"),

		WebhookRateLimit: getFloat("WEBHOOK_RATE_LIMIT", 5, &errs),
		WebhookBurst:     getInt("WEBHOOK_BURST", 10, &errs),
		NotifyTimeout:    getDuration("NOTIFY_TIMEOUT", 15*time.Second, &errs),
		Timezone:         getEnv("TZ_LOCATION", "America/Argentina/Buenos_Aires"),
	}

	if err := cfg.validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverSQLite, DriverPostgres, DriverMongo:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of sqlite, postgres, mongo; got %q", c.StoreDriver)
	}
	if c.MPAccessToken == "" {
		return errors.New("MP_ACCESS_TOKEN is required")
	}
	if c.EmailAPIKey != "" && len(c.EmailTo) == 0 {
		return errors.New("EMAIL_TO is required when EMAIL_API_KEY is set")
	}
	return nil
}

// NotificationURL is the webhook address given to Mercado Pago.
func (c *Config) NotificationURL() string {
	return c.PublicURL + "/webhooks/mercadopago"
}

// BackURL resolves a storefront page path against the public URL.
func (c *Config) BackURL(path string) string {
	return c.PublicURL + path
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getInt(key string, defaultValue int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return v
}

func getFloat(key string, defaultValue float64, errs *[]error) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return v
}
