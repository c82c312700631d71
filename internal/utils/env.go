package utils

import (
	"os"
	"strings"
	"time"
)

// SafeEnv returns the environment variable value for key, or fallback if empty.
func SafeEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

// FirstEnv returns the first non-empty value among keys, or fallback.
func FirstEnv(fallback string, keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return fallback
}

// EnvBool accepts true/1/yes/on (any case); anything else set is false.
func EnvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// EnvDuration parses key with time.ParseDuration. An unparsable value keeps
// fallback and is reported through ok so callers can warn.
func EnvDuration(key string, fallback time.Duration) (d time.Duration, ok bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, true
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback, false
	}
	return parsed, true
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
