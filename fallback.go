package hiviz

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// reporter writes the logger's own failures to stderr. It never goes through
// the queue, so it keeps working when the sinks or the worker do not.
type reporter struct {
	log zerolog.Logger
}

func newReporter(w io.Writer) *reporter {
	if w == nil {
		w = os.Stderr
	}
	out := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !colorTerminal(w),
		TimeFormat: time.RFC3339,
	}
	return &reporter{
		log: zerolog.New(out).With().Timestamp().Str("component", "hiviz").Logger(),
	}
}

// sinkFailed reports a record that could not be written to sink.
func (r *reporter) sinkFailed(sink Sink, rec Record, err error) {
	r.log.Error().
		Err(err).
		Str("sink", sink.String()).
		Str("record_level", rec.Level.String()).
		Str("record", truncate(rec.Message, 120)).
		Msg("log write failed")
}

// recovered reports a panic raised while delivering one record.
func (r *reporter) recovered(v any, rec Record) {
	r.log.Error().
		Interface("panic", v).
		Str("record_level", rec.Level.String()).
		Str("record", truncate(rec.Message, 120)).
		Msg("log delivery panicked; record skipped")
}

// workerDied reports the loss of the delivery goroutine.
func (r *reporter) workerDied(v any) {
	r.log.Error().
		Interface("panic", v).
		Msg("log worker stopped; falling back to synchronous writes")
}

// closeFailed reports an error while releasing a log file.
func (r *reporter) closeFailed(path string, err error) {
	r.log.Warn().Err(err).Str("path", path).Msg("log file close failed")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
