package reqchan

import (
	"sync"

	"github.com/joeycumines/logiface"
)

// Logger is the structured logger type used throughout this package. It is
// a type alias for logiface's generic Logger instantiated with the base
// Event interface, so any backend (stumpy, zerolog, logrus, ...) can be
// plugged in by constructing it with that backend's factory and converting
// the result with its Logger() method, e.g.:
//
//	backend := stumpy.L.New(stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)))
//	reqchan.SetLogger(backend.Logger())
type Logger = logiface.Logger[logiface.Event]

// globalLogger holds the package-level default logger, used by any Channel
// that was not constructed with WithLogger. Mirrors the package-level
// logger configuration pattern used elsewhere in this codebase's lineage:
// logging is cross-cutting infrastructure, so a sensible package default
// (here: nothing, i.e. silent) avoids forcing every caller to wire one up.
var globalLogger struct {
	mu sync.RWMutex
	l  *Logger
}

// SetLogger installs the package-level default logger used by channels
// that were not given a per-instance logger via WithLogger. Passing nil
// restores silence.
func SetLogger(l *Logger) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.l = l
}

func getGlobalLogger() *Logger {
	globalLogger.mu.RLock()
	defer globalLogger.mu.RUnlock()
	return globalLogger.l
}

// nilLogger is returned when no logger is configured anywhere; its Builder
// methods are all safe no-ops on a nil *Logger (logiface tolerates this),
// so channel code can call ch.logger().Info()... unconditionally without
// nil-checking at every call site.
func (ch *Channel) logger() *Logger {
	if ch.opts.logger != nil {
		return ch.opts.logger
	}
	if l := getGlobalLogger(); l != nil {
		return l
	}
	return nilLogger
}

// nilLogger is a *Logger whose zero value is safe to call methods on;
// logiface's Builder short-circuits when its Logger is nil, so every
// Build/Info/Err call below simply does nothing and every chained field
// setter returns the same no-op builder.
var nilLogger = (*Logger)(nil)
