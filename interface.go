package hiviz

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// defaultShutdownTimeout bounds Shutdown when no context is given.
const defaultShutdownTimeout = 2 * time.Second

var (
	defaultLogger atomic.Pointer[Logger]
	defaultMu     sync.Mutex
)

// Default returns the process-wide Logger, creating it from the environment
// on first use.
func Default() *Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l, err := New(ConfigFromEnv())
	if err != nil {
		l, _ = New(DefaultConfig())
	}
	defaultLogger.Store(l)
	return l
}

// SetDefault replaces the process-wide Logger and returns the previous one,
// which may be nil. The previous Logger is not closed.
func SetDefault(l *Logger) *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultLogger.Swap(l)
}

// EnsureInitialized creates the process-wide Logger if needed and reports
// whether it is accepting records.
func EnsureInitialized() bool {
	return !Default().p.closed.Load()
}

// Debug emits msg at DEBUG through the default Logger.
func Debug(msg string, args ...any) {
	Default().log(context.Background(), LevelDebug, 0, msg, args)
}

// Info emits msg at INFO through the default Logger.
func Info(msg string, args ...any) {
	Default().log(context.Background(), LevelInfo, 0, msg, args)
}

// Warning emits msg at WARNING through the default Logger.
func Warning(msg string, args ...any) {
	Default().log(context.Background(), LevelWarning, 0, msg, args)
}

// Error emits msg at ERROR through the default Logger.
func Error(msg string, args ...any) {
	Default().log(context.Background(), LevelError, 0, msg, args)
}

// Critical emits msg at CRITICAL through the default Logger.
func Critical(msg string, args ...any) {
	Default().log(context.Background(), LevelCritical, 0, msg, args)
}

func DebugContext(ctx context.Context, msg string, args ...any) {
	Default().log(ctx, LevelDebug, 0, msg, args)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	Default().log(ctx, LevelInfo, 0, msg, args)
}

func WarningContext(ctx context.Context, msg string, args ...any) {
	Default().log(ctx, LevelWarning, 0, msg, args)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	Default().log(ctx, LevelError, 0, msg, args)
}

func CriticalContext(ctx context.Context, msg string, args ...any) {
	Default().log(ctx, LevelCritical, 0, msg, args)
}

// Print logs args at INFO in blue and returns the text logged.
func Print(args ...any) string {
	return Default().print(1, args)
}

// Push overrides the default Logger's options until the Scope is popped.
func Push(opts ...Option) *Scope {
	return Default().Push(opts...)
}

// Override runs fn with opts applied to the default Logger.
func Override(fn func() error, opts ...Option) error {
	return Default().Override(fn, opts...)
}

// CurrentOptions returns the default Logger's options in effect.
func CurrentOptions() Options {
	return Default().Options()
}

// Timeit times a block on the default Logger; see Logger.Timeit.
func Timeit(label string, args ...any) func() {
	return Default().timeit(label, args)
}

// WrapErrors runs fn, logging a returned error or panic through the default
// Logger; see Logger.WrapErrors.
func WrapErrors(fn func() error) error {
	return Default().wrapErrors(fn, 1)
}

// Flush waits for the default Logger to write everything queued so far.
func Flush(ctx context.Context) error {
	return Default().Flush(ctx)
}

// Shutdown drains and closes the default Logger. Without a context it waits
// at most two seconds.
func Shutdown(ctx ...context.Context) error {
	l := defaultLogger.Load()
	if l == nil {
		return nil
	}

	shutdownCtx := context.Background()
	if len(ctx) > 0 && ctx[0] != nil {
		shutdownCtx = ctx[0]
	} else {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, defaultShutdownTimeout)
		defer cancel()
	}
	return l.Close(shutdownCtx)
}
