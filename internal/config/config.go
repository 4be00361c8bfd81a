// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/MikeSquared-Agency/honeypot/internal/similarity"
	"github.com/MikeSquared-Agency/honeypot/internal/store"
)

// Store drivers.
const (
	DriverMemory   = store.DriverMemory
	DriverPostgres = store.DriverPostgres
	DriverSQLite   = store.DriverSQLite
)

type Config struct {
	Port     int
	APIKey   string
	LogLevel string

	StoreDriver string
	DatabaseURL string
	SQLitePath  string

	NatsURL   string
	NatsToken string

	AnthropicAPIKey string
	AnthropicModel  string
	LLMTimeout      time.Duration
	LLMClassifier   bool

	CallbackURL        string
	MinEngagementTurns int

	SlackBotToken string
	SlackChannel  string

	PhrasesFile string
	RandomSeed  uint64

	NearDuplicateThreshold      float64
	StructuralMonotonyThreshold float64
	StructuralHighOverlap       float64
	StructuralLowOverlap        float64
}

// LoadDotEnv loads variables from the given files (".env" when none are
// named) without overriding ones already set. A missing file is not an
// error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func Load() Config {
	sim := similarity.DefaultConfig()
	return Config{
		Port:                        envInt("HONEYPOT_PORT", 8000),
		APIKey:                      envStr("HONEYPOT_API_KEY", ""),
		LogLevel:                    envStr("LOG_LEVEL", "info"),
		StoreDriver:                 strings.ToLower(envStr("STORE_DRIVER", DriverMemory)),
		DatabaseURL:                 envStr("DATABASE_URL", ""),
		SQLitePath:                  envStr("SQLITE_PATH", "data/honeypot.db"),
		NatsURL:                     envStr("NATS_URL", ""),
		NatsToken:                   envStr("NATS_TOKEN", ""),
		AnthropicAPIKey:             envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:              envStr("HONEYPOT_MODEL", "claude-sonnet-4-20250514"),
		LLMTimeout:                  time.Duration(envInt("LLM_TIMEOUT_SECONDS", 20)) * time.Second,
		LLMClassifier:               envBool("LLM_CLASSIFIER", false),
		CallbackURL:                 envStr("CALLBACK_URL", "https://hackathon.guvi.in/api/updateHoneyPotFinalResult"),
		MinEngagementTurns:          envInt("MIN_ENGAGEMENT_TURNS", 3),
		SlackBotToken:               envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:                envStr("SLACK_CHANNEL", ""),
		PhrasesFile:                 envStr("PHRASES_FILE", ""),
		RandomSeed:                  envUint("RANDOM_SEED", 0),
		NearDuplicateThreshold:      envFloat("NEAR_DUPLICATE_THRESHOLD", sim.NearDuplicate),
		StructuralMonotonyThreshold: envFloat("STRUCTURAL_MONOTONY_THRESHOLD", sim.MonotonyReset),
		StructuralHighOverlap:       envFloat("STRUCTURAL_HIGH_OVERLAP", sim.HighOverlap),
		StructuralLowOverlap:        envFloat("STRUCTURAL_LOW_OVERLAP", sim.LowOverlap),
	}
}

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, errors.New("HONEYPOT_API_KEY is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("HONEYPOT_PORT %d out of range", c.Port))
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.LLMTimeout <= 0 {
		errs = append(errs, errors.New("LLM_TIMEOUT_SECONDS must be positive"))
	}
	if c.MinEngagementTurns < 1 {
		errs = append(errs, errors.New("MIN_ENGAGEMENT_TURNS must be at least 1"))
	}
	for name, v := range map[string]float64{
		"NEAR_DUPLICATE_THRESHOLD":      c.NearDuplicateThreshold,
		"STRUCTURAL_MONOTONY_THRESHOLD": c.StructuralMonotonyThreshold,
		"STRUCTURAL_HIGH_OVERLAP":       c.StructuralHighOverlap,
		"STRUCTURAL_LOW_OVERLAP":        c.StructuralLowOverlap,
	} {
		if v <= 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be in (0, 1], got %v", name, v))
		}
	}
	if c.StructuralLowOverlap >= c.StructuralHighOverlap {
		errs = append(errs, errors.New("STRUCTURAL_LOW_OVERLAP must be below STRUCTURAL_HIGH_OVERLAP"))
	}
	return errors.Join(errs...)
}

// Similarity returns the detector thresholds with the configured overrides.
func (c Config) Similarity() similarity.Config {
	sim := similarity.DefaultConfig()
	sim.NearDuplicate = c.NearDuplicateThreshold
	sim.MonotonyReset = c.StructuralMonotonyThreshold
	sim.HighOverlap = c.StructuralHighOverlap
	sim.LowOverlap = c.StructuralLowOverlap
	return sim
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envUint(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
