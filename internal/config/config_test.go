package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might interfere
	os.Unsetenv("PORT")
	os.Unsetenv("HOST")
	os.Unsetenv("DATA_DIR")
	os.Unsetenv("FLY_APP_NAME")
	os.Unsetenv("RAILWAY_VOLUME_MOUNT_PATH")

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want \"0.0.0.0\"", cfg.Host)
	}
	if cfg.DataDir != "." {
		t.Errorf("DataDir = %q, want \".\"", cfg.DataDir)
	}
	if cfg.RequireSQLite {
		t.Error("RequireSQLite should default to false")
	}
	if cfg.SessionTTL != 30*24*time.Hour {
		t.Errorf("SessionTTL = %v, want 720h", cfg.SessionTTL)
	}
	if cfg.PostRateLimit != 30 {
		t.Errorf("PostRateLimit = %d, want 30", cfg.PostRateLimit)
	}
	if cfg.VoteRateLimit != 120 {
		t.Errorf("VoteRateLimit = %d, want 120", cfg.VoteRateLimit)
	}
	if cfg.RateLimitWindow != time.Hour {
		t.Errorf("RateLimitWindow = %v, want 1h", cfg.RateLimitWindow)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("PORT", "3000")
	os.Setenv("HOST", "127.0.0.1")
	os.Setenv("DATA_DIR", "/tmp/pointlab")
	os.Setenv("REQUIRE_SQLITE", "true")
	os.Setenv("POST_RATE_LIMIT", "5")
	os.Setenv("SESSION_TTL", "24h")
	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("HOST")
		os.Unsetenv("DATA_DIR")
		os.Unsetenv("REQUIRE_SQLITE")
		os.Unsetenv("POST_RATE_LIMIT")
		os.Unsetenv("SESSION_TTL")
	}()

	cfg := Load()

	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want \"127.0.0.1\"", cfg.Host)
	}
	if cfg.DataDir != "/tmp/pointlab" {
		t.Errorf("DataDir = %q, want \"/tmp/pointlab\"", cfg.DataDir)
	}
	if !cfg.RequireSQLite {
		t.Error("RequireSQLite should be true")
	}
	if cfg.PostRateLimit != 5 {
		t.Errorf("PostRateLimit = %d, want 5", cfg.PostRateLimit)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
}

func TestDataDirPlatformDetection(t *testing.T) {
	os.Unsetenv("DATA_DIR")
	os.Setenv("FLY_APP_NAME", "pointlab")
	defer os.Unsetenv("FLY_APP_NAME")

	cfg := Load()
	if cfg.DataDir != "/data" {
		t.Errorf("DataDir = %q, want \"/data\" on Fly", cfg.DataDir)
	}

	// An explicit DATA_DIR overrides platform detection.
	os.Setenv("DATA_DIR", "/custom")
	defer os.Unsetenv("DATA_DIR")
	cfg = Load()
	if cfg.DataDir != "/custom" {
		t.Errorf("DataDir = %q, want \"/custom\"", cfg.DataDir)
	}
}

func TestGetEnvInvalidValues(t *testing.T) {
	// Invalid int should use default
	os.Setenv("PORT", "not-a-number")
	defer os.Unsetenv("PORT")

	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080 (default on invalid)", cfg.Port)
	}
}

func TestGetEnvDurationInvalid(t *testing.T) {
	// Invalid duration should use default
	os.Setenv("SESSION_TTL", "invalid")
	defer os.Unsetenv("SESSION_TTL")

	cfg := Load()
	if cfg.SessionTTL != 30*24*time.Hour {
		t.Errorf("SessionTTL = %v, want 720h (default on invalid)", cfg.SessionTTL)
	}
}
