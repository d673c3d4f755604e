package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger builds the process-wide zerolog logger from LoggingConfig and
// installs it as the global default. Logs go to stderr so the worker command
// can emit its run summary on stdout without interleaving. Format "console"
// selects the human-readable writer; anything else means JSON.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var out io.Writer = os.Stderr
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	level, levelErr := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if levelErr != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if levelErr != nil {
		logger.Warn().Str("level", cfg.Level).Msg("unknown log level, using info")
	}

	log.Logger = logger
	return logger
}
