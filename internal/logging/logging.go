// Package logging builds the process-wide zerolog.Logger. Everything the
// server writes to its own operator lands on stderr: stdout is reserved
// for the JSON-RPC transport (internal/transport) and must never carry a
// stray log line.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds a logger at the given level (case-insensitive; defaults to
// info on an empty or unrecognized value), writing to w.
func New(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// NewDefault builds the production logger writing to os.Stderr.
func NewDefault(level string) zerolog.Logger {
	return New(level, os.Stderr)
}
