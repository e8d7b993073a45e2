// Package env reads process environment variables with fallbacks.
package env

import (
	"os"
	"strings"
)

// Get returns the named variable's value, or fallback when the
// variable is unset or blank.
func Get(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}
