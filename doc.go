// Package hiviz provides a non-blocking, level-routed logger for terminal
// and file output.
//
// Every record is routed by level: stdout below the stderr threshold,
// stderr from it, an optional rotating file and an optional debug tracer
// that sees everything. Emitting only snapshots the current options and
// queues the record; a single worker goroutine does all rendering and I/O,
// so output keeps the order in which records were accepted.
//
// Features:
//   - Asynchronous delivery with an unbounded or drop-oldest bounded queue
//   - Dropped records detection and reporting
//   - Size-based rotation with numbered backups (name.1 .. name.N)
//   - Text or JSON lines for the file sink
//   - Per-level colors with TTY detection and NO_COLOR support
//   - Scoped option overrides that restore on return or panic
//   - Call-chain tracing, timing and error-wrapping helpers
//   - Configuration from the environment or TOML, YAML and JSON files
//   - Prometheus delivery metrics
//   - Graceful shutdown that drains the queue
package hiviz
