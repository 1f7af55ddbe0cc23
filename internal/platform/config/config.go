package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var (
	errConcurrencyOutOfRange = errors.New("config: PROBE_CONCURRENCY must be 1-100")
	errInvalidTimeout        = errors.New("config: PROBE_TIMEOUT must be a positive duration")
	errInvalidLogFormat      = errors.New("config: LOG_FORMAT must be json or text")
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	LogLevel            string
	LogFormat           string
	ProbeConcurrency    int
	ProbeTimeout        time.Duration
	BlockPrivateNetwork bool
	UserAgent           string
}

// Load reads configuration from environment variables with sensible defaults.
// Values from a .env file in the working directory are applied first without
// overriding variables that are already set.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		LogLevel:            getEnv("LOG_LEVEL", "ERROR"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		ProbeConcurrency:    getEnvAsInt("PROBE_CONCURRENCY", 4),
		ProbeTimeout:        getEnvAsDuration("PROBE_TIMEOUT", 10*time.Second),
		BlockPrivateNetwork: getEnvAsBool("PROBE_BLOCK_PRIVATE", false),
		UserAgent:           getEnv("PROBE_USER_AGENT", "ArrestorProbe/1.0"),
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.ProbeConcurrency < 1 || c.ProbeConcurrency > 100 {
		return fmt.Errorf("%w: got %d", errConcurrencyOutOfRange, c.ProbeConcurrency)
	}

	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("%w: got %s", errInvalidTimeout, c.ProbeTimeout)
	}

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("%w: %q", errInvalidLogFormat, c.LogFormat)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsBool(key string, fallback bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return v
}

// getEnvAsDuration keeps unparsable values so validate can reject them.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return -1
	}
	return v
}
