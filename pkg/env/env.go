// Package env reads the few settings the logger needs before config.Load
// has run.
package env

import "os"

const prefix = "LIBRARYDESK_"

// Get returns LIBRARYDESK_<key> when set, then the bare key, then fallback.
func Get(key, fallback string) string {
	if val := os.Getenv(prefix + key); val != "" {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
