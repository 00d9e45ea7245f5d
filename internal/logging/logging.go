// ABOUTME: Structured logging built on zerolog, one base logger per process plus per-component children
// ABOUTME: Grounded on ManuGH-xg2g's internal/log.Configure/WithComponent, trimmed to this core's needs
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config configures the process-wide base logger.
type Config struct {
	Level   string    // zerolog level name; defaults to "info" on parse failure
	Output  io.Writer // defaults to os.Stdout
	Service string    // attached to every log line; defaults to "sessioncore"
	Version string
}

var (
	mu   sync.RWMutex
	base zerolog.Logger
)

func init() {
	base = zerolog.New(os.Stdout).With().Timestamp().Str("service", "sessioncore").Logger()
}

// Configure replaces the process-wide base logger.
func Configure(cfg Config) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stdout
	}

	service := cfg.Service
	if service == "" {
		service = "sessioncore"
	}

	l := zerolog.New(writer).With().
		Timestamp().
		Str("service", service).
		Str("version", cfg.Version).
		Logger()

	mu.Lock()
	base = l
	mu.Unlock()
}

// Base returns a copy of the current process-wide logger.
func Base() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithComponent returns a child logger tagged with the given component name,
// e.g. logging.WithComponent("decode") inside internal/decode.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}

// WithSession returns a child logger tagged with a session id, for logging
// per-session events.
func WithSession(log zerolog.Logger, sessionID uint64) zerolog.Logger {
	return log.With().Uint64("session_id", sessionID).Logger()
}
