package hiviz

import (
	"context"
	"fmt"
	"time"
)

// Timeit starts a timer and returns the function that stops it. Stopping
// logs an INFO record with the elapsed time:
//
//	defer logger.Timeit("load users")()
func (l *Logger) Timeit(label string, args ...any) func() {
	return l.timeit(label, args)
}

func (l *Logger) timeit(label string, args []any) func() {
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		fields := append([]any{
			F("elapsed", elapsed.String()),
			F("elapsed_ms", float64(elapsed.Microseconds())/1000),
		}, args...)
		l.log(context.Background(), LevelInfo, 0, label+" took "+elapsed.Round(time.Microsecond).String(), fields)
	}
}

// WrapErrors runs fn. A returned error is logged once at ERROR and returned
// unchanged. A panic is logged the same way and then re-raised.
func (l *Logger) WrapErrors(fn func() error) error {
	return l.wrapErrors(fn, 1)
}

// Call is WrapErrors for functions that also return a value.
func Call[T any](l *Logger, fn func() (T, error)) (T, error) {
	if l == nil {
		l = Default()
	}
	var out T
	err := l.wrapErrors(func() error {
		var err error
		out, err = fn()
		return err
	}, 1)
	return out, err
}

// wrapErrors reports with the given depth relative to its caller. A panic
// is attributed to the frame that raised it.
func (l *Logger) wrapErrors(fn func() error, depth int) (err error) {
	defer func() {
		if v := recover(); v != nil {
			l.log(context.Background(), LevelError, depth, fmt.Sprintf("panic: %v", v), []any{
				F("error_type", fmt.Sprintf("%T", v)),
				F("panic", fmt.Sprint(v)),
			})
			panic(v)
		}
	}()

	if err = fn(); err != nil {
		l.log(context.Background(), LevelError, depth, err.Error(), []any{
			F("error_type", fmt.Sprintf("%T", err)),
			F("error", err.Error()),
		})
	}
	return err
}
