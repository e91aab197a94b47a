package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service-level configuration for the daemon. Display
// configuration lives in the per-resolution theme file; everything here
// tunes the process itself.
type Config struct {
	LogLevel  string
	ConfigDir string
	Discovery DiscoveryConfig
	Loop      LoopConfig
	FFmpeg    string
}

// DiscoveryConfig holds device discovery retry configuration
type DiscoveryConfig struct {
	Attempts int
	Backoff  time.Duration
}

// LoopConfig holds send-loop tuning
type LoopConfig struct {
	MinTickInterval time.Duration // sleep floor between frames
	MaxSendFailures int           // consecutive transmit failures before fatal
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (optional)
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		ConfigDir: getEnv("LCDHUD_CONFIG_DIR", "/etc/lcdhud"),
		Discovery: DiscoveryConfig{
			Attempts: getEnvAsInt("LCDHUD_DISCOVERY_ATTEMPTS", 5),
			Backoff:  getEnvAsDuration("LCDHUD_DISCOVERY_BACKOFF", 2*time.Second),
		},
		Loop: LoopConfig{
			MinTickInterval: getEnvAsDuration("LCDHUD_MIN_TICK_INTERVAL", 20*time.Millisecond),
			MaxSendFailures: getEnvAsInt("LCDHUD_MAX_SEND_FAILURES", 10),
		},
		FFmpeg: getEnv("LCDHUD_FFMPEG", "ffmpeg"),
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a duration or returns a
// default value. Accepts Go duration syntax ("250ms", "5s").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
