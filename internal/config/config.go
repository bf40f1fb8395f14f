package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv  string
	AppPort string

	DBHost         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBPort         string
	DBMaxOpenConns int

	JWTSecret   string
	AdminEmails []string
	CORSOrigins []string

	RequestTimeout    time.Duration
	StrictOrderStatus bool

	NotifyWorkers   int
	NotifyQueueSize int
	MailAPIURL      string
	MailAPIKey      string
	MailFrom        string
	KafkaBrokers    string
	KafkaTopic      string

	RedisAddr string

	TrackingPollInterval time.Duration
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		AppEnv:  getEnv("APP_ENV", "development"),
		AppPort: getEnv("APP_PORT", "8080"),

		DBHost:         os.Getenv("DB_HOST"),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         os.Getenv("DB_NAME"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 10),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		AdminEmails: splitList(os.Getenv("ADMIN_EMAILS")),
		CORSOrigins: splitList(getEnv("CORS_ORIGIN", "http://localhost:3000")),

		RequestTimeout:    getEnvAsDuration("REQUEST_TIMEOUT", 15*time.Second),
		StrictOrderStatus: getEnvAsBool("ORDER_STRICT_STATUS", false),

		NotifyWorkers:   getEnvAsInt("NOTIFY_WORKERS", 2),
		NotifyQueueSize: getEnvAsInt("NOTIFY_QUEUE_SIZE", 100),
		MailAPIURL:      os.Getenv("MAIL_API_URL"),
		MailAPIKey:      os.Getenv("MAIL_API_KEY"),
		MailFrom:        getEnv("MAIL_FROM", "orders@localhost"),
		KafkaBrokers:    os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "storefront.orders"),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		TrackingPollInterval: getEnvAsDuration("TRACKING_POLL_INTERVAL", 5*time.Second),
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.DBHost == "" {
		return errors.New("environment variables not loaded properly: DB_HOST is empty")
	}
	if c.DBMaxOpenConns <= 0 {
		return errors.New("DB_MAX_OPEN_CONNS must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
