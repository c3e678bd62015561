package hiviz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// badKey is the key given to values that arrive without one.
const badKey = "!BADKEY"

// Field is one key/value pair of record context.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Record is one log event. Its fields are fixed when it is created.
type Record struct {
	Time    time.Time
	Level   Level
	Message string
	Color   Color
	PID     int
	Thread  string
	File    string
	Line    int
	Fields  []Field
}

// Field returns the value of the context field key. Values other than
// scalars are held in the form they were rendered to when emitted.
func (r Record) Field(key string) (any, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

var pid = os.Getpid()

// newRecord captures the caller skip frames above its own caller.
func newRecord(ctx context.Context, level Level, skip int, msg string, bound []Field, args []any, traceDepth int) Record {
	fields, c, hasColor := parseArgs(args)
	if !hasColor {
		c = LevelColor(level)
	}

	rec := Record{
		Time:    time.Now(),
		Level:   level,
		Message: msg,
		Color:   c,
		PID:     pid,
		Thread:  threadName(ctx),
	}

	if _, file, line, ok := runtime.Caller(skip + 1); ok {
		if abs, err := filepath.Abs(file); err == nil {
			file = abs
		}
		rec.File, rec.Line = file, line
	}

	var traceFields []Field
	if traceDepth > 0 {
		traceFields = []Field{{Key: "trace", Value: getTrace(int64(traceDepth), skip+3)}}
	}
	rec.Fields = mergeFields(bound, contextFields(ctx), fields, traceFields)
	for i := range rec.Fields {
		rec.Fields[i].Value = freeze(rec.Fields[i].Value)
	}
	return rec
}

// rendered is a field value captured in its final forms on the emitting
// goroutine, so later changes by the caller do not reach the output.
type rendered struct {
	text string
	json json.RawMessage // nil when the value has no JSON form
}

func (r rendered) String() string { return r.text }

// freeze returns v unchanged when it is an immutable scalar. Errors and
// Stringers become their text; anything else is rendered now.
func freeze(v any) any {
	switch val := v.(type) {
	case nil, string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, uintptr, float32, float64,
		time.Time, Level, rendered:
		return v
	case error, fmt.Stringer:
		// fmt recovers from panicking or nil-receiver methods
		return fmt.Sprint(val)
	}
	return rendered{text: fmt.Sprintf("%+v", v), json: marshalSafe(v)}
}

func marshalSafe(v any) (data json.RawMessage) {
	defer func() {
		if recover() != nil {
			data = nil
		}
	}()
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// parseArgs splits call-site arguments into fields and an optional color.
// Arguments are key/value pairs, Field values, []Field values or a Color.
func parseArgs(args []any) (fields []Field, c Color, hasColor bool) {
	for i := 0; i < len(args); i++ {
		switch a := args[i].(type) {
		case Color:
			c, hasColor = a, true
		case Field:
			fields = append(fields, a)
		case []Field:
			fields = append(fields, a...)
		case string:
			if i+1 < len(args) {
				fields = append(fields, Field{Key: a, Value: args[i+1]})
				i++
			} else {
				fields = append(fields, Field{Key: badKey, Value: a})
			}
		default:
			fields = append(fields, Field{Key: badKey, Value: a})
		}
	}
	return fields, c, hasColor
}

// mergeFields concatenates field lists into a new slice. A repeated key keeps
// the position of its first occurrence and the value of its last.
func mergeFields(lists ...[]Field) []Field {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	if n == 0 {
		return nil
	}
	out := make([]Field, 0, n)
	positions := make(map[string]int, n)
	for _, l := range lists {
		for _, f := range l {
			if f.Key != badKey {
				if pos, ok := positions[f.Key]; ok {
					out[pos].Value = f.Value
					continue
				}
				positions[f.Key] = len(out)
			}
			out = append(out, f)
		}
	}
	return out
}

// Sprint joins values with spaces. A single map renders as "k: v" pairs in
// key order and a single slice renders its elements.
func Sprint(args ...any) string {
	if len(args) == 1 {
		switch v := args[0].(type) {
		case map[string]any:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			parts := make([]string, len(keys))
			for i, k := range keys {
				parts[i] = fmt.Sprintf("%s: %v", k, v[k])
			}
			return strings.Join(parts, " ")
		case []any:
			args = v
		case []string:
			return strings.Join(v, " ")
		}
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = stringifyMessage(a)
	}
	return strings.Join(parts, " ")
}

// goroutineID parses the id from the header of the current goroutine's stack.
func goroutineID() string {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	if _, err := strconv.ParseUint(string(b), 10, 64); err != nil {
		return "unknown"
	}
	return string(b)
}

// getTrace returns a function call trace as a string, formatted as "outer -> inner -> deepest".
// It skips the specified number of frames and captures up to depth levels of function calls.
// Function names are simplified to base names, with special handling for anonymous functions.
func getTrace(depth int64, skip int) string {
	if depth == 0 {
		return ""
	}

	pc := make([]uintptr, int(depth))
	n := runtime.Callers(skip, pc)
	if n == 0 {
		return "(unknown)"
	}

	frames := runtime.CallersFrames(pc[:n])
	var trace []string
	for {
		frame, more := frames.Next()
		if frame.Function == "" || strings.HasPrefix(frame.Function, "runtime.") {
			break
		}

		funcName := filepath.Base(frame.Function)
		parts := strings.Split(funcName, ".")
		lastPart := parts[len(parts)-1]
		if strings.HasPrefix(lastPart, "func") {
			isAnonymous := true
			for _, c := range lastPart[4:] {
				if !unicode.IsDigit(c) {
					isAnonymous = false
					break
				}
			}
			if isAnonymous {
				funcName = fmt.Sprintf("(anonymous %s)", funcName)
			}
		}
		trace = append(trace, funcName)
		if !more {
			break
		}
	}

	if len(trace) == 0 {
		return "(unknown)"
	}

	// outer -> inner order
	for i := 0; i < len(trace)/2; i++ {
		j := len(trace) - i - 1
		trace[i], trace[j] = trace[j], trace[i]
	}
	return strings.Join(trace, " -> ")
}
