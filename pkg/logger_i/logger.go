package logger_i

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"
)

// generation changes on every Init so loggers created earlier, typically as
// package level vars, pick up the configured handler on their next call.
var generation atomic.Int64

type bound struct {
	gen   int64
	inner *slog.Logger
}

type Logger struct {
	section string
	attrs   []any
	cached  atomic.Pointer[bound]
}

// Init installs the process-wide handler: JSON in prod, text otherwise.
func Init(isProd bool, level slog.Level) {
	InitWithWriter(os.Stdout, isProd, level)
}

func InitWithWriter(w io.Writer, isProd bool, level slog.Level) {
	options := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if isProd {
		handler = slog.NewJSONHandler(w, options)
	} else {
		handler = slog.NewTextHandler(w, options)
	}
	slog.SetDefault(slog.New(handler))
	generation.Add(1)
}

func NewLogger(section string) *Logger {
	return &Logger{section: section}
}

func (l *Logger) logger() *slog.Logger {
	gen := generation.Load()
	if b := l.cached.Load(); b != nil && b.gen == gen {
		return b.inner
	}
	inner := slog.Default().With("component", l.section)
	if len(l.attrs) > 0 {
		inner = inner.With(l.attrs...)
	}
	l.cached.Store(&bound{gen: gen, inner: inner})
	return inner
}

func (l *Logger) Info(msg string, args ...any) {
	l.logger().Info(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.logWithSource(slog.LevelError, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.logWithSource(slog.LevelWarn, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.logWithSource(slog.LevelDebug, msg, args...)
}

func (l *Logger) logWithSource(level slog.Level, msg string, args ...any) {
	inner := l.logger()
	if !inner.Enabled(context.Background(), level) {
		return
	}
	var pcs [1]uintptr
	// Skip 3 levels: runtime.Callers, logWithSource, and Err/Dbg wrapper - this looks at GO's stack trace
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = inner.Handler().Handle(context.Background(), r)
}

func (l *Logger) With(args ...any) *Logger {
	attrs := make([]any, 0, len(l.attrs)+len(args))
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, args...)
	return &Logger{section: l.section, attrs: attrs}
}

// WithTrace attaches the trace id carried by ctx, if any.
func (l *Logger) WithTrace(ctx context.Context, key any) *Logger {
	if ctx == nil {
		return l
	}
	if trace, ok := ctx.Value(key).(string); ok && trace != "" {
		return l.With("traceId", trace)
	}
	return l
}
