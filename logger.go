package weavedi

import (
	"log/slog"
	"sync/atomic"
)

var defaultLogger atomic.Pointer[slog.Logger]

// SetDefaultLogger replaces the logger used by containers that were not
// given one via WithLogger. A nil logger is ignored.
func SetDefaultLogger(l *slog.Logger) {
	if l != nil {
		defaultLogger.Store(l)
	}
}

func logger() *slog.Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}

	return slog.Default()
}
