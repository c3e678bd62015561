package hiviz

import (
	"errors"
	"io"
	"strings"
)

// Sink is a set of output destinations.
type Sink uint8

const (
	SinkStdout Sink = 1 << iota
	SinkStderr
	SinkFile
	SinkTracer
)

var sinkNames = []struct {
	sink Sink
	name string
}{
	{SinkStdout, "stdout"},
	{SinkStderr, "stderr"},
	{SinkFile, "file"},
	{SinkTracer, "tracer"},
}

// Has reports whether every sink in x is in s.
func (s Sink) Has(x Sink) bool {
	return s&x == x
}

func (s Sink) String() string {
	if s == 0 {
		return "none"
	}
	var names []string
	for _, n := range sinkNames {
		if s.Has(n.sink) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// Route decides which sinks receive rec under opts:
//   - stdout when TermLevel <= level < max(TermLevel, StderrLevel)
//   - stderr when level >= max(TermLevel, StderrLevel)
//   - file when ToLog and level >= FileLevel
//   - tracer whenever ToDebug, regardless of level
func Route(rec Record, opts Options) Sink {
	var s Sink
	switch {
	case rec.Level >= opts.StderrThreshold():
		s |= SinkStderr
	case rec.Level >= opts.TermLevel:
		s |= SinkStdout
	}
	if opts.ToLog && rec.Level >= opts.FileLevel {
		s |= SinkFile
	}
	if opts.ToDebug {
		s |= SinkTracer
	}
	return s
}

var errNoLogFile = errors.New("no log file configured")

// deliver renders rec for every sink Route selects and writes it.
func (p *pipeline) deliver(rec Record, opts Options) {
	sinks := Route(rec, opts)
	if sinks.Has(SinkStdout) {
		p.write(SinkStdout, p.stdout, rec, p.ser.terminal(rec, opts.TermFlags, colorize(opts.ColorMode, p.stdoutTTY)))
	}
	if sinks.Has(SinkStderr) {
		p.write(SinkStderr, p.stderr, rec, p.ser.terminal(rec, opts.TermFlags, colorize(opts.ColorMode, p.stderrTTY)))
	}
	if sinks.Has(SinkFile) {
		p.writeFile(rec, opts)
	}
	if sinks.Has(SinkTracer) {
		p.write(SinkTracer, p.tracer, rec, p.ser.trace(rec))
	}
}

func (p *pipeline) write(sink Sink, w io.Writer, rec Record, line []byte) {
	if _, err := w.Write(line); err != nil {
		p.sinkFailed(sink, rec, err)
		return
	}
	p.metrics.delivered.WithLabelValues(sink.String()).Inc()
}

func (p *pipeline) writeFile(rec Record, opts Options) {
	if opts.LogFile == "" {
		p.sinkFailed(SinkFile, rec, errNoLogFile)
		return
	}

	f, ok := p.files[opts.LogFile]
	if !ok {
		f = newRotatingFile(opts.LogFile)
		p.files[opts.LogFile] = f
	}

	var line []byte
	if opts.JSONLogs {
		line = p.ser.jsonLine(rec)
	} else {
		line = p.ser.text(rec)
	}

	rotated, err := f.write(line, opts.MaxBytes, opts.BackupCount)
	if rotated {
		p.metrics.rotations.Inc()
	}
	if err != nil {
		p.sinkFailed(SinkFile, rec, err)
		return
	}
	p.metrics.delivered.WithLabelValues(SinkFile.String()).Inc()
}

func (p *pipeline) sinkFailed(sink Sink, rec Record, err error) {
	p.metrics.sinkErrors.WithLabelValues(sink.String()).Inc()
	p.report.sinkFailed(sink, rec, err)
}
