// Package obs holds the shared observability plumbing: the process-wide
// structured logger and the Prometheus HTTP metrics.
package obs

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	loggerMu sync.Mutex
	logger   *slog.Logger
)

// Logger returns the shared JSON logger used across the service.
func Logger() *slog.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return logger
}

// SetOutput redirects the shared logger and returns a restore function.
// Intended for tests that assert on emitted log lines.
func SetOutput(w io.Writer) func() {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	prev := logger
	logger = slog.New(slog.NewJSONHandler(w, nil))
	return func() {
		loggerMu.Lock()
		defer loggerMu.Unlock()
		logger = prev
	}
}
