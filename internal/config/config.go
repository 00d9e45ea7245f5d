// ABOUTME: Process environment configuration for the session core
// ABOUTME: Plain os.Getenv reads; no config library in the pack fits a flat env surface (see DESIGN.md)
package config

import (
	"os"
	"strconv"
)

// DefaultMaxThreads is spec §5's default blocking-worker bound for the
// decoder pool when MAX_THREADS is unset or unparsable.
const DefaultMaxThreads = 64

// Config is the process-wide configuration spec §6 names.
type Config struct {
	APIURL         string
	ClientID       string
	SignatureToken string
	Profile        string
	MaxThreads     int
	Trace          bool
	LogLevel       string
}

// FromEnv reads the process environment into a Config, applying the
// defaults spec §5 names (MAX_THREADS=64) where a variable is unset.
func FromEnv() Config {
	return Config{
		APIURL:         os.Getenv("API_URL"),
		ClientID:       os.Getenv("CLIENT_ID"),
		SignatureToken: os.Getenv("SIGNATURE_TOKEN"),
		Profile:        os.Getenv("PROFILE"),
		MaxThreads:     envInt("MAX_THREADS", DefaultMaxThreads),
		Trace:          envBool("SESSIONCORE_TRACE"),
		LogLevel:       envDefault("LOG_LEVEL", "info"),
	}
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envBool(key string) bool {
	v := os.Getenv(key)
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
