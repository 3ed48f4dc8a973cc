package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all client configuration
type Config struct {
	Backend BackendConfig
}

// BackendConfig holds the advisory backend connection settings
type BackendConfig struct {
	// BaseURL is the root of the advisory API, e.g. http://localhost:8000
	BaseURL string
	// RequestTimeout bounds unary requests. Streaming chat requests are
	// only bounded by their context, never by this timeout.
	RequestTimeout time.Duration
}

// Load reads configuration from the environment. A local .env file is
// picked up first when present, matching how the backend is configured.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Backend: BackendConfig{
			BaseURL:        getEnv("ADVISOR_BASE_URL", "http://localhost:8000"),
			RequestTimeout: getEnvDuration("ADVISOR_REQUEST_TIMEOUT_SECONDS", 15*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
