// Package config loads portd's process-wide configuration from the
// environment (and an optional .env file), following the teacher's
// getEnv/getEnvAsInt/getEnvAsSlice convention.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the fully-resolved set of knobs cmd/portd reads at startup.
type Config struct {
	DataDir string // directory holding the registry's SQLite file and audit log

	DefaultRangeLo int
	DefaultRangeHi int

	LogLevel  string
	LogFormat string // "json" or "console"

	RedisAddr string // enables the asynq-backed sweeper when non-empty

	HTTPAddr string // internal/httpapi bind address, used by `portd serve`

	CORSAllowedOrigins []string
}

// Load reads PORTD_* environment variables, loading an optional .env file
// first. It never fails on a missing variable — every field has a
// workstation-friendly default — matching the teacher's convention of
// confining fatal startup errors to main.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DataDir:            getEnv("PORTD_DATA_DIR", defaultDataDir()),
		DefaultRangeLo:     getEnvAsInt("PORTD_DEFAULT_RANGE_LO", 3100),
		DefaultRangeHi:     getEnvAsInt("PORTD_DEFAULT_RANGE_HI", 9999),
		LogLevel:           getEnv("PORTD_LOG_LEVEL", "info"),
		LogFormat:          getEnv("PORTD_LOG_FORMAT", "console"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		HTTPAddr:           getEnv("PORTD_HTTP_ADDR", ":4848"),
		CORSAllowedOrigins: getEnvAsSlice("PORTD_CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.portd"
	}
	return ".portd"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	
	// Simple CSV split (for more complex parsing, use a proper CSV library)
	var result []string
	current := ""
	for _, char := range valueStr {
		if char == ',' {
			if current != "" {
				result = append(result, current)
				current = ""
			}
		} else {
			current += string(char)
		}
	}
	if current != "" {
		result = append(result, current)
	}
	
	return result
}
