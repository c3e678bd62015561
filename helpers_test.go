package hiviz

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for the worker to write while a test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Lines returns the non-empty lines written so far.
func (b *syncBuffer) Lines() []string {
	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

type failingWriter struct {
	err error
}

func (w failingWriter) Write([]byte) (int, error) {
	return 0, w.err
}

type panickingWriter struct{}

func (panickingWriter) Write([]byte) (int, error) {
	panic("writer exploded")
}

// blockingWriter holds the first write until release is closed.
type blockingWriter struct {
	syncBuffer
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingWriter() *blockingWriter {
	return &blockingWriter{started: make(chan struct{}), release: make(chan struct{})}
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	w.once.Do(func() {
		close(w.started)
		<-w.release
	})
	return w.syncBuffer.Write(p)
}

type testSinks struct {
	stdout, stderr, tracer, fallback *syncBuffer
	logFile                          string
}

// newTestLogger builds a Logger writing to in-memory buffers with color off
// and a log file under a temporary directory. It is closed on cleanup.
func newTestLogger(t *testing.T, mutate func(*Config)) (*Logger, *testSinks) {
	t.Helper()

	sinks := &testSinks{
		stdout:   &syncBuffer{},
		stderr:   &syncBuffer{},
		tracer:   &syncBuffer{},
		fallback: &syncBuffer{},
		logFile:  filepath.Join(t.TempDir(), "test.log"),
	}

	cfg := DefaultConfig()
	cfg.Color = string(ColorNever)
	cfg.LogFile = sinks.logFile
	cfg.FlushIntervalMs = int64(time.Hour / time.Millisecond)
	cfg.Stdout = sinks.stdout
	cfg.Stderr = sinks.stderr
	cfg.Tracer = sinks.tracer
	cfg.Fallback = sinks.fallback
	if mutate != nil {
		mutate(&cfg)
	}

	l, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.Close(ctx)
	})
	return l, sinks
}

// flush waits for everything emitted so far to be written.
func flush(t *testing.T, l *Logger) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Flush(ctx))
}
