package quick

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LixenWraith/hiviz"
)

func apply(t *testing.T, args ...string) hiviz.Options {
	t.Helper()
	opts, err := Options(args...)
	require.NoError(t, err)

	var o hiviz.Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func TestOptions(t *testing.T) {
	o := apply(t,
		"term_level=debug",
		" STDERR_LEVEL = error ",
		"file_level=25",
		"log=true",
		"json_logs=1",
		"log_file=/tmp/app.log",
		"max_bytes=1KiB",
		"backup_count=4",
		"debug=false",
		"color=never",
		"term_flags=timestamp|level",
		"trace_depth=3",
	)

	assert.Equal(t, hiviz.Options{
		TermLevel:   hiviz.LevelDebug,
		StderrLevel: hiviz.LevelError,
		FileLevel:   25,
		ToLog:       true,
		JSONLogs:    true,
		LogFile:     "/tmp/app.log",
		MaxBytes:    1024,
		BackupCount: 4,
		ToDebug:     false,
		ColorMode:   hiviz.ColorNever,
		TermFlags:   hiviz.FlagShowTimestamp | hiviz.FlagShowLevel,
		TraceDepth:  3,
	}, o)
}

func TestOptionsLaterStatementsWin(t *testing.T) {
	o := apply(t, "term_level=debug", "term_level=critical", "term_flags=none", "max_bytes=2000")
	assert.Equal(t, hiviz.LevelCritical, o.TermLevel)
	assert.Zero(t, o.TermFlags)
	assert.Equal(t, int64(2000), o.MaxBytes)
}

func TestOptionsErrors(t *testing.T) {
	tests := []string{
		"term_level",
		"=debug",
		"verbosity=3",
		"term_level=chatty",
		"log=perhaps",
		"backup_count=-1",
		"trace_depth=11",
		"max_bytes=huge",
		"color=sometimes",
		"term_flags=bold",
	}
	for _, arg := range tests {
		t.Run(arg, func(t *testing.T) {
			_, err := Options(arg)
			assert.Error(t, err)
		})
	}
}

func TestOptionsValueMayContainEquals(t *testing.T) {
	o := apply(t, "log_file=logs/a=b.log")
	assert.Equal(t, "logs/a=b.log", o.LogFile)
}

func TestSetAndOverride(t *testing.T) {
	logger, err := hiviz.New(hiviz.Config{Stdout: &discard{}, Stderr: &discard{}})
	require.NoError(t, err)
	prev := hiviz.SetDefault(logger)
	t.Cleanup(func() {
		hiviz.SetDefault(prev)
		_ = logger.Close(context.Background())
	})

	scope, err := Set("term_level=debug")
	require.NoError(t, err)
	assert.Equal(t, hiviz.LevelDebug, hiviz.CurrentOptions().TermLevel)
	scope.Pop()
	assert.Equal(t, hiviz.LevelInfo, hiviz.CurrentOptions().TermLevel)

	err = Override(func() error {
		assert.True(t, hiviz.CurrentOptions().ToLog)
		return nil
	}, "log=true")
	require.NoError(t, err)
	assert.False(t, hiviz.CurrentOptions().ToLog)

	_, err = Set("nope=1")
	assert.Error(t, err)
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }

// lockedBuffer lets the worker write while the test reads.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Split(strings.TrimSpace(b.buf.String()), "\n")
}

func TestShortcutsReportCallerSite(t *testing.T) {
	stdout, stderr, tracer := &lockedBuffer{}, &lockedBuffer{}, &lockedBuffer{}
	logger, err := hiviz.New(hiviz.Config{
		TermLevel: hiviz.LevelDebug,
		Debug:     true,
		Color:     string(hiviz.ColorNever),
		Stdout:    stdout,
		Stderr:    stderr,
		Tracer:    tracer,
	})
	require.NoError(t, err)
	prev := hiviz.SetDefault(logger)
	t.Cleanup(func() {
		hiviz.SetDefault(prev)
		_ = logger.Close(context.Background())
	})

	Debug("d", 1)
	Info("i", hiviz.F("k", "v"))
	Warning("w")
	Error("e")
	Critical("c", hiviz.Red)
	assert.Equal(t, "p 2", Print("p", 2))
	require.NoError(t, Shutdown(5*time.Second))

	assert.Equal(t, []string{"[DEBUG] d 1", "[INFO] i k=v", "[INFO] p 2"}, stdout.Lines())
	assert.Equal(t, []string{"[WARNING] w", "[ERROR] e", "[CRITICAL] c"}, stderr.Lines())

	lines := tracer.Lines()
	require.Len(t, lines, 6)
	for _, line := range lines {
		assert.Contains(t, line, "[quick_test.go:")
	}

	// the default logger is closed now
	Info("late")
	assert.Equal(t, uint64(1), logger.Dropped())
}
