package nightview

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/nightview/internal/gpu"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for nightview and its sub-packages.
// By default nothing is logged. Pass nil to restore silence.
//
// Log levels:
//   - [slog.LevelDebug]: per-frame diagnostics (uploads, skipped draws)
//   - [slog.LevelInfo]: lifecycle (context created, destroyed, adapter selected)
//   - [slog.LevelWarn]: recoverable issues (surface outdated, preset reload failed)
//   - [slog.LevelError]: the renderer entered the failed state
//
// Example:
//
//	nightview.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	gpu.SetLogger(l)
}

// Logger returns the current logger. The driver, preset and capture
// packages log through it.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
