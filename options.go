package hiviz

import (
	"sync"
)

const (
	// Terminal flags controlling the prefix of terminal lines
	FlagShowTimestamp int64 = 0b01
	FlagShowLevel     int64 = 0b10
	FlagDefault             = FlagShowLevel
)

// Options is the routing and formatting state applied to a record. It is a
// plain value: every record carries the copy that was current when it was
// emitted. The toml tags name the keys accepted by the quick package.
type Options struct {
	TermLevel   Level     `toml:"term_level"`   // minimum level for terminal output
	StderrLevel Level     `toml:"stderr_level"` // records at or above max(TermLevel, StderrLevel) go to stderr
	FileLevel   Level     `toml:"file_level"`   // minimum level for the file sink
	ToLog       bool      `toml:"log"`          // file sink enabled
	JSONLogs    bool      `toml:"json_logs"`    // file sink writes JSON lines
	LogFile     string    `toml:"log_file"`     // file sink path
	MaxBytes    int64     `toml:"max_bytes"`    // rotate when the file exceeds this size, 0 disables
	BackupCount int       `toml:"backup_count"` // numbered backups kept on rotation
	ToDebug     bool      `toml:"debug"`        // echo every record to the debug tracer
	ColorMode   ColorMode `toml:"color"`        // auto, always, never
	TermFlags   int64     `toml:"term_flags"`   // FlagShowTimestamp | FlagShowLevel
	TraceDepth  int       `toml:"trace_depth"`  // 0-10, 0 disables the call-chain field
}

// StderrThreshold is the level from which terminal output moves to stderr.
func (o Options) StderrThreshold() Level {
	return max(o.TermLevel, o.StderrLevel)
}

// Option changes one aspect of Options inside an override scope.
type Option func(*Options)

func WithTermLevel(l Level) Option   { return func(o *Options) { o.TermLevel = l } }
func WithStderrLevel(l Level) Option { return func(o *Options) { o.StderrLevel = l } }
func WithFileLevel(l Level) Option   { return func(o *Options) { o.FileLevel = l } }
func WithFileLogging(on bool) Option { return func(o *Options) { o.ToLog = on } }
func WithJSONLogs(on bool) Option    { return func(o *Options) { o.JSONLogs = on } }
func WithLogFile(path string) Option { return func(o *Options) { o.LogFile = path } }
func WithDebugTracer(on bool) Option { return func(o *Options) { o.ToDebug = on } }

func WithColorMode(m ColorMode) Option {
	return func(o *Options) { o.ColorMode = m }
}

func WithTermFlags(flags int64) Option {
	return func(o *Options) { o.TermFlags = flags }
}

// WithTraceDepth sets the call-chain depth, clamped to 0-10.
func WithTraceDepth(depth int) Option {
	return func(o *Options) { o.TraceDepth = min(max(depth, 0), 10) }
}

// WithRotation sets the size limit and the number of backups kept.
func WithRotation(maxBytes int64, backupCount int) Option {
	return func(o *Options) {
		o.MaxBytes = maxBytes
		o.BackupCount = backupCount
	}
}

// optionStack holds the base Options and the overrides pushed on top of it.
// One stack is shared by a Logger and every Logger derived from it.
type optionStack struct {
	mu     sync.Mutex
	base   Options
	frames []frame
	nextID uint64
}

type frame struct {
	id   uint64
	opts Options
}

func newOptionStack(base Options) *optionStack {
	return &optionStack{base: base}
}

func (s *optionStack) current() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topLocked()
}

func (s *optionStack) topLocked() Options {
	if n := len(s.frames); n > 0 {
		return s.frames[n-1].opts
	}
	return s.base
}

func (s *optionStack) depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *optionStack) push(opts []Option) *Scope {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.topLocked()
	for _, opt := range opts {
		if opt != nil {
			opt(&next)
		}
	}
	s.nextID++
	s.frames = append(s.frames, frame{id: s.nextID, opts: next})
	return &Scope{stack: s, id: s.nextID}
}

// pop removes the frame with the given id and every frame pushed after it.
// Frames already removed are ignored.
func (s *optionStack) pop(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].id == id {
			clear(s.frames[i:])
			s.frames = s.frames[:i]
			return
		}
	}
}

// Scope is an active override. Pop restores the Options that were current
// when the scope was pushed.
type Scope struct {
	stack *optionStack
	id    uint64
	once  sync.Once
}

// Pop ends the override. Calling it more than once has no further effect.
func (sc *Scope) Pop() {
	if sc == nil {
		return
	}
	sc.once.Do(func() { sc.stack.pop(sc.id) })
}
