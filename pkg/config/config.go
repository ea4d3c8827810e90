package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-level configuration: where files live, how to reach
// external services, and credentials. Strategy parameters live in the YAML
// strategy file (internal/strategyconfig), not here; the environment only
// carries what must never be committed.
type Config struct {
	Env string // development, staging, production

	// Port for the read-only status API.
	Port string

	// DataDir holds holdings.csv, trade_log.csv and per-day order/summary
	// JSON files.
	DataDir string

	// StrategyFile is the path to the strategy YAML.
	StrategyFile string

	// ScheduleCron drives the daily job in schedule mode (with seconds).
	ScheduleCron string

	// Database is optional; when URL is empty the trade log stays on CSV.
	Database DatabaseConfig

	SMTP   SMTPConfig
	Alpaca AlpacaConfig

	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration for the trade log store.
type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// SMTPConfig carries mail credentials for the daily report.
type SMTPConfig struct {
	User     string
	Password string
	To       string
}

// Complete reports whether all mail credentials are present.
func (c SMTPConfig) Complete() bool {
	return c.User != "" && c.Password != "" && c.To != ""
}

// AlpacaConfig carries broker API credentials.
type AlpacaConfig struct {
	APIKey    string
	APISecret string
}

// Load reads configuration from environment variables, preloading a .env
// file when one is found.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env:          getEnv("ENV", "development"),
		Port:         getEnv("PORT", "8086"),
		DataDir:      getEnv("DATA_DIR", "data"),
		StrategyFile: getEnv("STRATEGY_FILE", "config/strategy.yaml"),
		ScheduleCron: getEnv("SCHEDULE_CRON", "0 30 16 * * 1-5"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		SMTP: SMTPConfig{
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASS", ""),
			To:       getEnv("SMTP_TO", ""),
		},

		Alpaca: AlpacaConfig{
			APIKey:    getEnv("ALPACA_API_KEY", ""),
			APISecret: getEnv("ALPACA_API_SECRET", ""),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR must not be empty")
	}
	return nil
}

// loadEnvFile tries to load .env from a few likely locations.
func loadEnvFile() {
	paths := []string{".env"}
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
