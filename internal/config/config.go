package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the application settings
type Config struct {
	Environment string // development, staging, production

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	JWTSecret   string
	TokenExpiry time.Duration

	// KCB mobile-banking gateway
	KCBBaseURL        string
	KCBConsumerKey    string
	KCBConsumerSecret string
	KCBCallbackURL    string
	TxRefPrefix       string // correlation id prefix, e.g. KCB
}

// IsProduction gates development-only surfaces such as the manual
// payment-completion endpoint.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// LoadConfig loads configuration from the environment, with .env support
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Warn(".env file not found")
	}

	expiry, err := time.ParseDuration(os.Getenv("TOKEN_EXPIRY"))
	if err != nil {
		expiry = 24 * time.Hour
	}

	config := &Config{
		Environment: getEnv("APP_ENV", "development"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", "postgres"),
		DBName:      getEnv("DB_NAME", "debttrack"),
		JWTSecret:   getEnv("JWT_SECRET", "default-secret-key"),
		TokenExpiry: expiry,

		KCBBaseURL:        getEnv("KCB_BASE_URL", "https://uat.buni.kcbgroup.com"),
		KCBConsumerKey:    os.Getenv("KCB_CONSUMER_KEY"),
		KCBConsumerSecret: os.Getenv("KCB_CONSUMER_SECRET"),
		KCBCallbackURL:    os.Getenv("KCB_CALLBACK_URL"),
		TxRefPrefix:       getEnv("TX_REF_PREFIX", "KCB"),
	}

	return config, nil
}

// getEnv returns the environment variable value or a default
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
