package quick

import (
	"context"
	"strings"
	"time"

	"github.com/LixenWraith/hiviz"
)

// Debug logs args joined by spaces at DEBUG on the default logger.
// Color and Field arguments apply to the record rather than the text.
func Debug(args ...any) {
	emit(hiviz.LevelDebug, args)
}

// Info logs args joined by spaces at INFO.
func Info(args ...any) {
	emit(hiviz.LevelInfo, args)
}

// Warning logs args joined by spaces at WARNING.
func Warning(args ...any) {
	emit(hiviz.LevelWarning, args)
}

// Error logs args joined by spaces at ERROR.
func Error(args ...any) {
	emit(hiviz.LevelError, args)
}

// Critical logs args joined by spaces at CRITICAL.
func Critical(args ...any) {
	emit(hiviz.LevelCritical, args)
}

// emit is called directly by the exported functions; the call site is two
// frames up. It returns the message text.
func emit(level hiviz.Level, args []any, extra ...any) string {
	var parts []any
	for _, a := range args {
		switch a.(type) {
		case hiviz.Color, hiviz.Field, []hiviz.Field:
			extra = append(extra, a)
		default:
			parts = append(parts, a)
		}
	}
	msg := hiviz.Sprint(parts...)
	hiviz.Default().LogDepth(context.Background(), 2, level, msg, extra...)
	return msg
}

// Print logs args at INFO in blue and returns the text.
func Print(args ...any) string {
	return strings.TrimSpace(emit(hiviz.LevelInfo, args, hiviz.Blue))
}

// Set overrides the default logger's options with string statements until
// the returned scope is popped.
// e.g. scope, err := quick.Set("term_level=debug", "log=true")
func Set(args ...string) (*hiviz.Scope, error) {
	opts, err := Options(args...)
	if err != nil {
		return nil, err
	}
	return hiviz.Push(opts...), nil
}

// Override runs fn with the statements applied to the default logger.
func Override(fn func() error, args ...string) error {
	opts, err := Options(args...)
	if err != nil {
		return err
	}
	return hiviz.Override(fn, opts...)
}

// Shutdown drains and closes the default logger, waiting at most timeout.
func Shutdown(timeout ...time.Duration) error {
	if len(timeout) == 0 {
		return hiviz.Shutdown()
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout[0])
	defer cancel()
	return hiviz.Shutdown(ctx)
}
