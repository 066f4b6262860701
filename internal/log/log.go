// Package log provides a small structured-logging facade shared by every
// package in this module. It wraps btclog/v2 so call sites look the same
// whether the underlying logger is writing to stderr, a rotating log file,
// or /dev/null during tests.
package log

import (
	"context"
	"fmt"

	"github.com/btcsuite/btclog/v2"
)

// Logger is the structured logger interface used throughout this module. A
// context is accepted on every call so correlation data (actor id, step id)
// can be threaded in later without changing call sites.
type Logger interface {
	TraceS(ctx context.Context, msg string, keyvals ...any)
	DebugS(ctx context.Context, msg string, keyvals ...any)
	InfoS(ctx context.Context, msg string, keyvals ...any)
	WarnS(ctx context.Context, msg string, err error, keyvals ...any)
	ErrorS(ctx context.Context, msg string, err error, keyvals ...any)
}

type ctxLogger struct {
	l btclog.Logger
}

// NewFromBackend builds a Logger for the given subsystem tag from a
// btclog.Backend.
func NewFromBackend(backend *btclog.Backend, subsystem string) Logger {
	l := backend.Logger(subsystem)
	l.SetLevel(btclog.LevelInfo)
	return &ctxLogger{l: l}
}

// Disabled returns a Logger that discards everything; used as the default in
// tests so assertions aren't drowned out by trace noise.
func Disabled() Logger {
	backend := btclog.NewBackend(discardWriter{})
	l := backend.Logger("disabled")
	l.SetLevel(btclog.LevelOff)
	return &ctxLogger{l: l}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func (c *ctxLogger) TraceS(_ context.Context, msg string, keyvals ...any) {
	c.l.Trace(withKeyvals(msg, keyvals))
}

func (c *ctxLogger) DebugS(_ context.Context, msg string, keyvals ...any) {
	c.l.Debug(withKeyvals(msg, keyvals))
}

func (c *ctxLogger) InfoS(_ context.Context, msg string, keyvals ...any) {
	c.l.Info(withKeyvals(msg, keyvals))
}

func (c *ctxLogger) WarnS(_ context.Context, msg string, err error, keyvals ...any) {
	c.l.Warn(withKeyvals(msg, append(keyvals, "err", err)))
}

func (c *ctxLogger) ErrorS(_ context.Context, msg string, err error, keyvals ...any) {
	c.l.Error(withKeyvals(msg, append(keyvals, "err", err)))
}

// withKeyvals renders a message plus alternating key/value pairs into a
// single logfmt-ish string.
func withKeyvals(msg string, keyvals []any) string {
	if len(keyvals) == 0 {
		return msg
	}

	out := msg
	for i := 0; i+1 < len(keyvals); i += 2 {
		out += fmt.Sprintf(" %v=%v", keyvals[i], keyvals[i+1])
	}
	return out
}
