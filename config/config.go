package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port    string `yaml:"port"`
	BaseURL string `yaml:"base_url"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// StorageDriver is "mysql" or "memory".
	StorageDriver string `yaml:"storage_driver"`
	SeedCatalog   bool   `yaml:"seed_catalog"`
	DBUser        string `yaml:"db_user"`
	DBPassword    string `yaml:"db_password"`
	DBHost        string `yaml:"db_host"`
	DBPort        string `yaml:"db_port"`
	DBName        string `yaml:"db_name"`

	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`

	// AuthRatePerMinute limits login and register calls per client IP; 0
	// disables the limit.
	AuthRatePerMinute int `yaml:"auth_rate_per_minute"`
	AuthRateBurst     int `yaml:"auth_rate_burst"`

	RabbitMQURL     string `yaml:"rabbitmq_url"`
	OrderExchange   string `yaml:"order_exchange"`
	OrderQueue      string `yaml:"order_queue"`
	DeadLetterQueue string `yaml:"dead_letter_queue"`
	MaxPriority     int    `yaml:"max_priority"`

	RedisURL string `yaml:"redis_url"`

	StripeSecretKey     string `yaml:"stripe_secret_key"`
	StripeWebhookSecret string `yaml:"stripe_webhook_secret"`
	Currency            string `yaml:"currency"`

	ShippingFee           int64 `yaml:"shipping_fee"`
	FreeShippingThreshold int64 `yaml:"free_shipping_threshold"`
}

func defaults() *Config {
	return &Config{
		Port:                  "8080",
		BaseURL:               "http://localhost:3000",
		LogLevel:              "info",
		StorageDriver:         "mysql",
		DBUser:                "root",
		DBHost:                "localhost",
		DBPort:                "3306",
		DBName:                "storefront",
		TokenTTL:              24 * time.Hour,
		AuthRatePerMinute:     20,
		AuthRateBurst:         5,
		OrderExchange:         "orders_exchange",
		OrderQueue:            "orders_queue",
		DeadLetterQueue:       "dead_letter_queue",
		MaxPriority:           10,
		Currency:              "jpy",
		ShippingFee:           500,
		FreeShippingThreshold: 10000,
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file named
// by CONFIG_FILE (if any), then environment variables. Secrets may also be
// read from the file named by their *_FILE variable.
func LoadConfig() (*Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.BaseURL = getEnv("BASE_URL", cfg.BaseURL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.StorageDriver = getEnv("STORAGE_DRIVER", cfg.StorageDriver)
	cfg.SeedCatalog = getEnvBool("SEED_CATALOG", cfg.SeedCatalog)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnvFromFile("DB_PASSWORD_FILE", "DB_PASSWORD", cfg.DBPassword)
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnv("DB_PORT", cfg.DBPort)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.JWTSecret = getEnvFromFile("JWT_SECRET_FILE", "JWT_SECRET", cfg.JWTSecret)
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.OrderExchange = getEnv("ORDER_EXCHANGE", cfg.OrderExchange)
	cfg.OrderQueue = getEnv("ORDER_QUEUE", cfg.OrderQueue)
	cfg.DeadLetterQueue = getEnv("DEAD_LETTER_QUEUE", cfg.DeadLetterQueue)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.StripeSecretKey = getEnvFromFile("STRIPE_SECRET_KEY_FILE", "STRIPE_SECRET_KEY", cfg.StripeSecretKey)
	cfg.StripeWebhookSecret = getEnvFromFile("STRIPE_WEBHOOK_SECRET_FILE", "STRIPE_WEBHOOK_SECRET", cfg.StripeWebhookSecret)
	cfg.Currency = getEnv("CURRENCY", cfg.Currency)

	var err error
	if cfg.TokenTTL, err = getEnvDuration("TOKEN_TTL", cfg.TokenTTL); err != nil {
		return nil, err
	}
	if cfg.MaxPriority, err = getEnvInt("MAX_PRIORITY", cfg.MaxPriority); err != nil {
		return nil, err
	}
	if cfg.AuthRatePerMinute, err = getEnvInt("AUTH_RATE_PER_MINUTE", cfg.AuthRatePerMinute); err != nil {
		return nil, err
	}
	if cfg.AuthRateBurst, err = getEnvInt("AUTH_RATE_BURST", cfg.AuthRateBurst); err != nil {
		return nil, err
	}
	fee, err := getEnvInt("SHIPPING_FEE", int(cfg.ShippingFee))
	if err != nil {
		return nil, err
	}
	cfg.ShippingFee = int64(fee)
	threshold, err := getEnvInt("FREE_SHIPPING_THRESHOLD", int(cfg.FreeShippingThreshold))
	if err != nil {
		return nil, err
	}
	cfg.FreeShippingThreshold = int64(threshold)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case "mysql", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MaxPriority < 1 || c.MaxPriority > 255 {
		return fmt.Errorf("max priority %d out of range", c.MaxPriority)
	}
	if c.AuthRatePerMinute < 0 || (c.AuthRatePerMinute > 0 && c.AuthRateBurst < 1) {
		return fmt.Errorf("invalid auth rate limit %d/min burst %d", c.AuthRatePerMinute, c.AuthRateBurst)
	}
	if c.ShippingFee < 0 || c.FreeShippingThreshold < 0 {
		return fmt.Errorf("shipping fee and threshold must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFromFile(fileKey, envKey, defaultValue string) string {
	if filePath := os.Getenv(fileKey); filePath != "" {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return getEnv(envKey, defaultValue)
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
