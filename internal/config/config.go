package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Report store backends.
const (
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Event provider and retry policy.
	EventsURL        string
	UserAgent        string
	FetchTimeout     time.Duration
	FetchMaxRetries  int
	FetchBackoffBase float64

	// Report persistence.
	ReportStore   string
	ReportsFile   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
	DatabaseURL   string

	// Optional Kafka publishing of stored reports.
	KafkaBrokers      []string
	KafkaReportsTopic string

	// Magnitude estimation.
	FormulaClamp bool
	StrictInputs bool
	ModelSeed    uint64
	ModelTrees   int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	maxRetries, err := parseInt("FETCH_MAX_RETRIES", 3, 1, 10)
	if err != nil {
		return nil, err
	}
	redisDB, err := parseInt("REDIS_DB", 0, 0, 15)
	if err != nil {
		return nil, err
	}
	trees, err := parseInt("MODEL_TREES", 100, 1, 1000)
	if err != nil {
		return nil, err
	}

	backoffBase, err := strconv.ParseFloat(envOrDefault("FETCH_BACKOFF_BASE", "2"), 64)
	if err != nil || backoffBase < 1 {
		return nil, errors.New("invalid FETCH_BACKOFF_BASE")
	}

	seed, err := strconv.ParseUint(envOrDefault("MODEL_SEED", "42"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid MODEL_SEED")
	}

	formulaClamp, err := parseBool("FORMULA_CLAMP", false)
	if err != nil {
		return nil, err
	}
	strictInputs, err := parseBool("STRICT_INPUTS", true)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		EventsURL:        envOrDefault("EVENTS_URL", "https://www.seismicportal.eu/fdsnws/event/1/query"),
		UserAgent:        envOrDefault("USER_AGENT", "AlbaniaQuakeMap/1.0"),
		FetchTimeout:     fetchTimeout,
		FetchMaxRetries:  maxRetries,
		FetchBackoffBase: backoffBase,

		ReportStore:   strings.ToLower(envOrDefault("REPORT_STORE", StoreFile)),
		ReportsFile:   envOrDefault("REPORTS_FILE", "reports.json"),
		RedisAddr:     envOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		RedisKey:      envOrDefault("REDIS_KEY", "felt_reports"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),

		KafkaBrokers:      parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaReportsTopic: envOrDefault("KAFKA_REPORTS_TOPIC", "felt-reports"),

		FormulaClamp: formulaClamp,
		StrictInputs: strictInputs,
		ModelSeed:    seed,
		ModelTrees:   trees,
	}

	switch cfg.ReportStore {
	case StoreFile:
		if cfg.ReportsFile == "" {
			return nil, errors.New("REPORTS_FILE is required for the file store")
		}
	case StoreRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("REDIS_ADDR is required for the redis store")
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres store")
		}
	default:
		return nil, fmt.Errorf("invalid REPORT_STORE %q", cfg.ReportStore)
	}
	if cfg.EventsURL == "" {
		return nil, errors.New("EVENTS_URL is required")
	}

	return cfg, nil
}

// KafkaEnabled reports whether stored reports should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, fallback, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be between %d and %d", key, lo, hi)
	}
	return n, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}

// parseBrokers splits a comma-separated broker list, dropping blanks.
func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
