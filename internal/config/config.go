package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	Port int
	Host string

	// Storage
	DataDir       string // where the database file / JSON documents live
	RequireSQLite bool   // fail startup instead of falling back to the JSON store

	// Sessions
	SessionTTL time.Duration

	// Rate limiting
	PostRateLimit   int // creations per window, per actor
	VoteRateLimit   int
	RateLimitWindow time.Duration
}

func Load() *Config {
	return &Config{
		Port:            getEnvInt("PORT", 8080),
		Host:            getEnv("HOST", "0.0.0.0"),
		DataDir:         resolveDataDir(),
		RequireSQLite:   getEnvBool("REQUIRE_SQLITE", false),
		SessionTTL:      getEnvDuration("SESSION_TTL", 30*24*time.Hour),
		PostRateLimit:   getEnvInt("POST_RATE_LIMIT", 30),
		VoteRateLimit:   getEnvInt("VOTE_RATE_LIMIT", 120),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Hour),
	}
}

// resolveDataDir picks the storage location: an explicit DATA_DIR override
// wins, then the mounted volume of a detected deployment platform, then the
// working directory.
func resolveDataDir() string {
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		return dir
	}
	if os.Getenv("FLY_APP_NAME") != "" {
		return "/data"
	}
	if dir := os.Getenv("RAILWAY_VOLUME_MOUNT_PATH"); dir != "" {
		return dir
	}
	return "."
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
