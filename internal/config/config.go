package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything the discovery server reads from the environment.
// API keys stay inside the provider adapters, which read their own variables.
type Config struct {
	ListenAddr string

	// MetadataMode is "routed" (production) or "fanout" (provider
	// evaluation).
	MetadataMode string

	// MaxConcurrentJobs caps simultaneously running discovery jobs.
	// Zero means unbounded.
	MaxConcurrentJobs int

	JobReapInterval time.Duration
	JobRetention    time.Duration

	DatabaseURL string
	NATSURL     string
}

// Load reads the configuration from environment variables, applying defaults.
func Load() Config {
	return Config{
		ListenAddr:        envString("DISCOVERY_LISTEN_ADDR", ":8080"),
		MetadataMode:      envString("DISCOVERY_METADATA_MODE", "routed"),
		MaxConcurrentJobs: envInt("DISCOVERY_MAX_CONCURRENT_JOBS", 0),
		JobReapInterval:   envDuration("DISCOVERY_JOB_REAP_INTERVAL", 10*time.Minute),
		JobRetention:      envDuration("DISCOVERY_JOB_RETENTION", time.Hour),
		DatabaseURL:       envString("DATABASE_URL", ""),
		NATSURL:           envString("NATS_URL", ""),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
