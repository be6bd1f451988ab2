// Package logging provides the shared zerolog logger used across every
// package that the teacher codebase reached for log.Printf/log.Fatalf in.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Root is the process-wide logger. It writes a pretty console by default
// and switches to JSON when LOG_FORMAT=json, matching the way deployed
// encoders and headless runs want machine-parseable logs.
var Root = newRoot()

func newRoot() zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if os.Getenv("LOG_FORMAT") == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(writer).With().Timestamp().Logger()
}

// For returns a child logger tagged with a component name, mirroring the
// teacher's convention of prefixing log lines with a module/package tag.
func For(component string) zerolog.Logger {
	return Root.With().Str("component", component).Logger()
}
