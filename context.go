package hiviz

import (
	"context"
)

type contextKey int

const (
	fieldsKey contextKey = iota
	threadKey
)

// WithFields returns a context whose records carry the given fields in
// addition to any fields already attached to ctx. Arguments follow the same
// key/value and Field conventions as the emit calls.
func WithFields(ctx context.Context, args ...any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	fields, _, _ := parseArgs(args)
	if len(fields) == 0 {
		return ctx
	}
	return context.WithValue(ctx, fieldsKey, mergeFields(contextFields(ctx), fields))
}

// WithThreadName names the goroutine that emits records with ctx. Without it
// records report "goroutine-<id>".
func WithThreadName(ctx context.Context, name string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, threadKey, name)
}

func contextFields(ctx context.Context) []Field {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey).([]Field)
	return fields
}

func threadName(ctx context.Context) string {
	if ctx != nil {
		if name, ok := ctx.Value(threadKey).(string); ok && name != "" {
			return name
		}
	}
	return "goroutine-" + goroutineID()
}
