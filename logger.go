package hiviz

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrClosed is returned by operations that need a running worker after the
// Logger has been closed.
var ErrClosed = errors.New("hiviz: logger closed")

// Logger emits records to the terminal, a rotating file and the debug tracer.
// Emitting never blocks on I/O: records are queued and written by a single
// worker goroutine in the order they were accepted. A Logger is safe for
// concurrent use.
type Logger struct {
	p      *pipeline
	fields []Field
}

// New validates cfg and starts the worker. Log files are opened lazily on
// the first record routed to them.
func New(cfg Config) (*Logger, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid logger config: %w", err)
	}

	stdout, stderr := cfg.Stdout, cfg.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = stderr
	}

	p := &pipeline{
		stdout:        stdout,
		stderr:        stderr,
		tracer:        tracer,
		stdoutTTY:     colorTerminal(stdout),
		stderrTTY:     colorTerminal(stderr),
		stack:         newOptionStack(cfg.Options()),
		queue:         newRecordQueue(cfg.QueueCapacity),
		files:         make(map[string]*rotatingFile),
		ser:           newSerializer(),
		report:        newReporter(cfg.Fallback),
		flushInterval: cfg.flushInterval(),
		done:          make(chan struct{}),
	}
	p.metrics = newMetrics(func() float64 { return float64(p.queue.len()) })

	go p.run()
	return &Logger{p: p}, nil
}

// log is the single emit path. depth counts the frames between the user's
// call and log itself, minus one.
func (l *Logger) log(ctx context.Context, level Level, depth int, msg string, args []any) {
	p := l.p
	if p.closed.Load() {
		p.drop()
		return
	}

	opts := p.stack.current()
	if Route(Record{Level: level}, opts) == 0 {
		return
	}

	p.reportDrops()
	rec := newRecord(ctx, level, depth+2, msg, l.fields, args, opts.TraceDepth)
	p.enqueue(envelope{rec: rec, opts: opts})
}

// Debug emits msg at DEBUG. args are key/value pairs, Field values or a
// Color overriding the level color.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(context.Background(), LevelDebug, 0, msg, args)
}

func (l *Logger) Info(msg string, args ...any) {
	l.log(context.Background(), LevelInfo, 0, msg, args)
}

func (l *Logger) Warning(msg string, args ...any) {
	l.log(context.Background(), LevelWarning, 0, msg, args)
}

func (l *Logger) Error(msg string, args ...any) {
	l.log(context.Background(), LevelError, 0, msg, args)
}

func (l *Logger) Critical(msg string, args ...any) {
	l.log(context.Background(), LevelCritical, 0, msg, args)
}

// DebugContext is Debug with fields and thread name taken from ctx.
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelDebug, 0, msg, args)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelInfo, 0, msg, args)
}

func (l *Logger) WarningContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelWarning, 0, msg, args)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelError, 0, msg, args)
}

func (l *Logger) CriticalContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelCritical, 0, msg, args)
}

// Log emits msg at an arbitrary level.
func (l *Logger) Log(ctx context.Context, level Level, msg string, args ...any) {
	l.log(ctx, level, 0, msg, args)
}

// LogDepth is Log for wrappers: calldepth frames above the caller are
// reported as the call site.
func (l *Logger) LogDepth(ctx context.Context, calldepth int, level Level, msg string, args ...any) {
	l.log(ctx, level, calldepth, msg, args)
}

// Print logs args as one INFO message in blue and returns the text logged.
// Color and Field arguments are applied to the record instead of the text.
func (l *Logger) Print(args ...any) string {
	return l.print(1, args)
}

func (l *Logger) print(depth int, args []any) string {
	extra := []any{Blue}
	parts := make([]any, 0, len(args))
	for _, a := range args {
		switch a.(type) {
		case Color, Field, []Field:
			extra = append(extra, a)
		default:
			parts = append(parts, a)
		}
	}
	msg := Sprint(parts...)
	l.log(context.Background(), LevelInfo, depth, msg, extra)
	return strings.TrimSpace(msg)
}

// With returns a Logger that adds args to every record. The child shares the
// parent's queue, files and option stack.
func (l *Logger) With(args ...any) *Logger {
	fields, _, _ := parseArgs(args)
	if len(fields) == 0 {
		return l
	}
	return &Logger{p: l.p, fields: mergeFields(l.fields, fields)}
}

// Push overrides options until the returned Scope is popped. Overrides apply
// to every goroutine emitting through this Logger.
func (l *Logger) Push(opts ...Option) *Scope {
	return l.p.stack.push(opts)
}

// Override runs fn with opts applied and restores the previous options when
// fn returns or panics.
func (l *Logger) Override(fn func() error, opts ...Option) error {
	scope := l.Push(opts...)
	defer scope.Pop()
	return fn()
}

// Options returns the options currently in effect.
func (l *Logger) Options() Options {
	return l.p.stack.current()
}

// Metrics returns the Logger's delivery counters.
func (l *Logger) Metrics() *Metrics {
	return l.p.metrics
}

// Dropped returns the number of records lost so far.
func (l *Logger) Dropped() uint64 {
	return l.p.droppedLogs.Load()
}

// Flush waits until every record accepted before the call has been written
// and open log files synced.
func (l *Logger) Flush(ctx context.Context) error {
	p := l.p
	done := make(chan struct{})
	if accepted, _ := p.queue.put(envelope{barrier: done}); !accepted {
		if p.crashed.Load() {
			// writes are synchronous now
			p.syncMu.Lock()
			p.syncFiles()
			p.syncMu.Unlock()
			return nil
		}
		return ErrClosed
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting records, waits for the queue to drain and closes the
// log files. Records emitted afterwards are dropped. Close may be called more
// than once; later calls wait for the same shutdown.
func (l *Logger) Close(ctx context.Context) error {
	p := l.p
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.queue.close()
	})

	select {
	case <-p.done:
	case <-ctx.Done():
		return fmt.Errorf("logger shutdown: %w", ctx.Err())
	}

	if p.crashed.Load() {
		p.syncMu.Lock()
		defer p.syncMu.Unlock()
		return p.closeFiles()
	}
	return p.closeErr
}
