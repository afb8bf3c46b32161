// Package env reads typed configuration from environment variables.
// Unset or unparsable variables fall back to the supplied default.
package env

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func lookup[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	v, err := parse(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

func GetEnvString(key, defaultValue string) string {
	return lookup(key, defaultValue, func(s string) (string, error) { return s, nil })
}

func GetEnvBool(key string, defaultValue bool) bool {
	return lookup(key, defaultValue, strconv.ParseBool)
}

func GetEnvInt(key string, defaultValue int) int {
	return lookup(key, defaultValue, strconv.Atoi)
}

func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	return lookup(key, defaultValue, time.ParseDuration)
}

// GetEnvStringSlice splits a comma separated variable, dropping blank entries
func GetEnvStringSlice(key string, defaultValue []string) []string {
	out := lookup[[]string](key, nil, func(s string) ([]string, error) {
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		return parts, nil
	})
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
