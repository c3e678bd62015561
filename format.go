package hiviz

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"time"
	"unicode/utf8"
)

const (
	textTimeFormat = "2006-01-02 15:04:05.000"
	jsonTimeFormat = "2006-01-02T15:04:05.000Z07:00"
)

// serializer manages the buffered rendering of records for every sink
type serializer struct {
	buf []byte
}

// newSerializer creates a serializer instance to be used by the worker
func newSerializer() *serializer {
	return &serializer{buf: make([]byte, 0, 1024)}
}

// reset clears the serializer buffer for reuse
func (s *serializer) reset() {
	s.buf = s.buf[:0]
}

// terminal renders a record for stdout or stderr. With color the line is
// wrapped in the record color and a reset; without it any escape sequence in
// the text is stripped.
func (s *serializer) terminal(rec Record, flags int64, color bool) []byte {
	s.reset()

	if color && rec.Color != "" {
		s.buf = append(s.buf, rec.Color...)
	}
	if flags&FlagShowTimestamp != 0 {
		s.buf = rec.Time.AppendFormat(s.buf, textTimeFormat)
		s.buf = append(s.buf, ' ')
	}
	if flags&FlagShowLevel != 0 {
		s.buf = append(s.buf, '[')
		s.buf = append(s.buf, rec.Level.String()...)
		s.buf = append(s.buf, "] "...)
	}
	s.writeMessage(rec.Message, color)
	s.writeTextFields(rec.Fields, color)
	if color && rec.Color != "" {
		s.buf = append(s.buf, Reset...)
	}

	s.buf = append(s.buf, '\n')
	return s.buf
}

// text renders the plain file line: time, level, message and key=value pairs
func (s *serializer) text(rec Record) []byte {
	s.reset()
	s.writeTextLine(rec)
	s.buf = append(s.buf, '\n')
	return s.buf
}

// trace renders the tracer line, which is the plain line plus the call site
func (s *serializer) trace(rec Record) []byte {
	s.reset()
	s.writeTextLine(rec)
	if rec.File != "" {
		s.buf = append(s.buf, " ["...)
		s.buf = append(s.buf, filepath.Base(rec.File)...)
		s.buf = append(s.buf, ':')
		s.buf = strconv.AppendInt(s.buf, int64(rec.Line), 10)
		s.buf = append(s.buf, ']')
	}
	s.buf = append(s.buf, '\n')
	return s.buf
}

func (s *serializer) writeTextLine(rec Record) {
	s.buf = rec.Time.AppendFormat(s.buf, textTimeFormat)
	s.buf = append(s.buf, ' ')
	s.buf = append(s.buf, rec.Level.String()...)
	s.buf = append(s.buf, ' ')
	s.writeMessage(rec.Message, false)
	s.writeTextFields(rec.Fields, false)
}

func (s *serializer) writeMessage(msg string, color bool) {
	if !color {
		msg = stripANSI(msg)
	}
	if msg == "" {
		msg = "(no message)"
	}
	s.buf = append(s.buf, msg...)
}

func (s *serializer) writeTextFields(fields []Field, color bool) {
	for _, f := range fields {
		s.buf = append(s.buf, ' ')
		s.buf = append(s.buf, f.Key...)
		s.buf = append(s.buf, '=')
		s.writeTextValue(f.Value, color)
	}
}

// jsonLine renders one self-contained JSON object
func (s *serializer) jsonLine(rec Record) []byte {
	s.reset()
	s.buf = append(s.buf, `{"ts":"`...)
	s.buf = rec.Time.AppendFormat(s.buf, jsonTimeFormat)
	s.buf = append(s.buf, `","level":`...)
	s.writeJSONString(rec.Level.String())
	s.buf = append(s.buf, `,"message":`...)
	s.writeJSONString(rec.Message)
	s.buf = append(s.buf, `,"color":`...)
	s.writeJSONString(string(rec.Color))
	s.buf = append(s.buf, `,"pid":`...)
	s.buf = strconv.AppendInt(s.buf, int64(rec.PID), 10)
	s.buf = append(s.buf, `,"thread":`...)
	s.writeJSONString(rec.Thread)
	s.buf = append(s.buf, `,"file":`...)
	s.writeJSONString(rec.File)
	s.buf = append(s.buf, `,"line":`...)
	s.buf = strconv.AppendInt(s.buf, int64(rec.Line), 10)

	// ctx keeps field order
	s.buf = append(s.buf, `,"ctx":{`...)
	for i, f := range rec.Fields {
		if i > 0 {
			s.buf = append(s.buf, ',')
		}
		s.writeJSONString(f.Key)
		s.buf = append(s.buf, ':')
		s.writeJSONValue(f.Value)
	}
	s.buf = append(s.buf, '}', '}', '\n')
	return s.buf
}

// writeTextValue converts any value to its text representation with appropriate quoting
func (s *serializer) writeTextValue(v any, color bool) {
	switch val := v.(type) {
	case string:
		s.writeQuotedIfNeeded(val, color)
	case int:
		s.buf = strconv.AppendInt(s.buf, int64(val), 10)
	case int64:
		s.buf = strconv.AppendInt(s.buf, val, 10)
	case float64:
		s.buf = strconv.AppendFloat(s.buf, val, 'f', -1, 64)
	case bool:
		s.buf = strconv.AppendBool(s.buf, val)
	case nil:
		s.buf = append(s.buf, "null"...)
	case rendered:
		s.writeQuotedIfNeeded(val.text, color)
	default:
		s.writeQuotedIfNeeded(stringifyMessage(val), color)
	}
}

func (s *serializer) writeQuotedIfNeeded(str string, color bool) {
	if !color {
		str = stripANSI(str)
	}
	if needsQuotes(str) {
		s.buf = strconv.AppendQuote(s.buf, str)
		return
	}
	s.buf = append(s.buf, str...)
}

// writeJSONValue converts any value to its JSON representation with proper type handling
func (s *serializer) writeJSONValue(v any) {
	switch val := v.(type) {
	case string:
		s.writeJSONString(val)
	case int:
		s.buf = strconv.AppendInt(s.buf, int64(val), 10)
	case int64:
		s.buf = strconv.AppendInt(s.buf, val, 10)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			s.writeJSONString(strconv.FormatFloat(val, 'f', -1, 64))
			return
		}
		s.buf = strconv.AppendFloat(s.buf, val, 'f', -1, 64)
	case bool:
		s.buf = strconv.AppendBool(s.buf, val)
	case nil:
		s.buf = append(s.buf, "null"...)
	case rendered:
		if val.json == nil {
			s.writeJSONString(val.text)
			return
		}
		s.buf = append(s.buf, val.json...)
	case error, fmt.Stringer:
		s.writeJSONString(stringifyMessage(val))
	default:
		data, err := json.Marshal(val)
		if err != nil {
			s.writeJSONString(stringifyMessage(val))
			return
		}
		s.buf = append(s.buf, data...)
	}
}

// writeJSONString appends a quoted JSON string
func (s *serializer) writeJSONString(str string) {
	const hex = "0123456789abcdef"
	s.buf = append(s.buf, '"')
	for i := 0; i < len(str); {
		c := str[i]
		if c < utf8.RuneSelf {
			switch {
			case c == '"' || c == '\\':
				s.buf = append(s.buf, '\\', c)
			case c == '\n':
				s.buf = append(s.buf, '\\', 'n')
			case c == '\r':
				s.buf = append(s.buf, '\\', 'r')
			case c == '\t':
				s.buf = append(s.buf, '\\', 't')
			case c < 0x20:
				s.buf = append(s.buf, '\\', 'u', '0', '0', hex[c>>4], hex[c&0xf])
			default:
				s.buf = append(s.buf, c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(str[i:])
		if r == utf8.RuneError && size == 1 {
			s.buf = append(s.buf, "\ufffd"...)
		} else {
			s.buf = append(s.buf, str[i:i+size]...)
		}
		i += size
	}
	s.buf = append(s.buf, '"')
}

// needsQuotes checks if a string needs to be quoted in text format
func needsQuotes(s string) bool {
	if len(s) == 0 {
		return true
	}
	for _, c := range s {
		if c <= ' ' || c == '=' || c == '"' || c == '\\' {
			return true
		}
	}
	return false
}

// stringifyMessage converts any type to a string representation
func stringifyMessage(msg any) string {
	switch m := msg.(type) {
	case string:
		return m
	case error:
		return m.Error()
	case time.Time:
		return m.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return m.String()
	default:
		return fmt.Sprintf("%+v", m)
	}
}
