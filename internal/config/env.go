// Package config loads the service's typed configuration from environment
// variables. Every loader returns a fully populated value; unparsable values
// fall back to their defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func parseInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(strings.TrimSpace(getEnv(key, strconv.Itoa(defaultValue))))
	if err != nil {
		return defaultValue
	}
	return value
}

func parseInt64(key string, defaultValue int64) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(getEnv(key, strconv.FormatInt(defaultValue, 10))), 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func parseFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func parseBool(key string, defaultValue bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// parseSeconds reads an integer number of seconds.
func parseSeconds(key string, defaultValue time.Duration) time.Duration {
	n := parseInt64(key, int64(defaultValue/time.Second))
	if n < 0 {
		return defaultValue
	}
	return time.Duration(n) * time.Second
}

func parseMillis(key string, defaultValue time.Duration) time.Duration {
	n := parseInt64(key, int64(defaultValue/time.Millisecond))
	if n < 0 {
		return defaultValue
	}
	return time.Duration(n) * time.Millisecond
}
