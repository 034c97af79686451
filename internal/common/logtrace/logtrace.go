// Package logtrace configures the global zerolog logger and the
// route-tracing toggle.
package logtrace

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the global logger with Unix timestamp format.
// The level defaults to info and can be lowered with YARI_LOG_LEVEL.
func InitLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	level := zerolog.InfoLevel
	if v := os.Getenv("YARI_LOG_LEVEL"); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
}

// IsTraceEnabled reports whether mounted routes should be printed at
// startup. Enabled with YARI_TRACE=1.
func IsTraceEnabled() bool {
	return os.Getenv("YARI_TRACE") == "1"
}
