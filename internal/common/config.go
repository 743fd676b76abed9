package common

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Classifier ClassifierConfig
	LLM        LLMConfig
	Anonymizer AnonymizerConfig
	LogLevel   string
}

// DatabaseConfig holds run-history store configuration
type DatabaseConfig struct {
	DSN              string // sqlite path or postgres URL; empty disables history
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds classify service configuration
type ServerConfig struct {
	HTTPAddr       string
	ServiceToken   string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxShapes      int
	MaxTextLength  int
}

// ClassifierConfig points the anonymizer at a remote classify service.
type ClassifierConfig struct {
	URL     string // empty means no remote classification
	APIKey  string
	Timeout time.Duration
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// AnonymizerConfig holds pipeline settings
type AnonymizerConfig struct {
	Locale     string
	LocaleFile string
	Workers    int
	Debounce   time.Duration
}

// LoadEnvFile loads a .env file if present. A missing file is not an error.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return WrapError(err, "load "+p)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 0),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
			ServiceToken:   getEnv("SERVICE_TOKEN", ""),
			RateLimitRPS:   getEnvAsFloat64("RATE_LIMIT_RPS", 5),
			RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 10),
			MaxShapes:      getEnvAsInt("MAX_SHAPES", 500),
			MaxTextLength:  getEnvAsInt("MAX_TEXT_LENGTH", 10000),
		},
		Classifier: ClassifierConfig{
			URL:     getEnv("CLASSIFIER_URL", ""),
			APIKey:  getEnv("CLASSIFIER_API_KEY", ""),
			Timeout: getEnvAsDuration("CLASSIFIER_TIMEOUT", 60*time.Second),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
		Anonymizer: AnonymizerConfig{
			Locale:     getEnv("ANON_LOCALE", "sv"),
			LocaleFile: getEnv("ANON_LOCALE_FILE", ""),
			Workers:    getEnvAsInt("WORKERS", 4),
			Debounce:   getEnvAsDuration("WATCH_DEBOUNCE", 2*time.Second),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateAnonymizer checks the settings the anonymize CLI needs.
func (c *Config) ValidateAnonymizer() error {
	v := NewValidator()
	v.Field("ANON_LOCALE", c.Anonymizer.Locale, Required)
	v.Field("WORKERS", c.Anonymizer.Workers, Positive)
	v.Check(c.Classifier.Timeout > 0, "CLASSIFIER_TIMEOUT", c.Classifier.Timeout, "must be positive")
	if c.Classifier.URL != "" {
		v.Check(strings.HasPrefix(c.Classifier.URL, "http://") || strings.HasPrefix(c.Classifier.URL, "https://"),
			"CLASSIFIER_URL", c.Classifier.URL, "must be an http(s) URL")
	}
	return v.Err()
}

// ValidateService checks the settings the classify service needs.
func (c *Config) ValidateService() error {
	v := NewValidator()
	v.Field("OPENAI_API_KEY", c.LLM.APIKey, Required)
	v.Field("HTTP_ADDR", c.Server.HTTPAddr, Required)
	v.Check(c.Server.RateLimitRPS > 0, "RATE_LIMIT_RPS", c.Server.RateLimitRPS, "must be positive")
	v.Field("RATE_LIMIT_BURST", c.Server.RateLimitBurst, Positive)
	v.Field("MAX_SHAPES", c.Server.MaxShapes, Positive)
	v.Field("MAX_TEXT_LENGTH", c.Server.MaxTextLength, Positive)
	return v.Err()
}
