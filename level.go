package hiviz

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Level is the severity of a record. Levels are ordered integers, so any
// integer is a usable threshold; the named levels are spaced by ten.
type Level int

const (
	LevelDebug    Level = 10
	LevelInfo     Level = 20
	LevelWarning  Level = 30
	LevelError    Level = 40
	LevelCritical Level = 50
)

// String returns the level name, or LEVEL(n) for unnamed values.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel converts a symbolic name or a numeric code to a Level.
// Names are case-insensitive; "warn" and "fatal" are accepted as aliases.
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARNING", "WARN":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	case "CRITICAL", "FATAL":
		return LevelCritical, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid level: %q", s)
	}
	return Level(n), nil
}

// MarshalText writes named levels by name and others as their number.
func (l Level) MarshalText() ([]byte, error) {
	switch l {
	case LevelDebug, LevelInfo, LevelWarning, LevelError, LevelCritical:
		return []byte(l.String()), nil
	}
	return []byte(strconv.Itoa(int(l))), nil
}

// UnmarshalText accepts anything ParseLevel accepts.
func (l *Level) UnmarshalText(text []byte) error {
	lvl, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}

// UnmarshalJSON accepts both quoted names and bare numbers.
func (l *Level) UnmarshalJSON(data []byte) error {
	return l.UnmarshalText(bytes.Trim(data, `"`))
}

// levelOr parses s, returning def when s is empty, unrecognized or not a
// positive level.
func levelOr(s string, def Level) Level {
	if strings.TrimSpace(s) == "" {
		return def
	}
	lvl, err := ParseLevel(s)
	if err != nil || lvl <= 0 {
		return def
	}
	return lvl
}
