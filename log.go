package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/lukija/internal/config"
)

// setupLog sends logs to a file when LUKIJA_DEBUG is set and discards them
// otherwise, since the TUI owns the terminal. Headless mode switches to
// stderr later.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)
	log.SetReportTimestamp(true)

	if os.Getenv(config.EnvPrefix+"DEBUG") == "" {
		return func() error { return nil }, nil
	}

	logFile, err := config.LogPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil { //nolint:gosec
		return nil, err
	}
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec
	if err != nil {
		return nil, err
	}

	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	log.Debug("Logging to file", "path", logFile)
	return f.Close, nil
}

// logToStderr is used when no TUI is running.
func logToStderr() {
	if os.Getenv(config.EnvPrefix+"DEBUG") != "" {
		return
	}
	log.SetOutput(os.Stderr)
	log.SetLevel(log.WarnLevel)
}
