package hiviz

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Color is a raw ANSI escape sequence. Passing a Color among the arguments of
// an emit call overrides the level's default color for that record.
type Color string

// Reset ends any color started by a Color.
const Reset = "\x1b[0m"

// NewColor builds the escape sequence for the given SGR attributes.
func NewColor(attrs ...color.Attribute) Color {
	if len(attrs) == 0 {
		return ""
	}
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		parts[i] = strconv.Itoa(int(a))
	}
	return Color("\x1b[" + strings.Join(parts, ";") + "m")
}

var (
	Black   = NewColor(color.FgBlack)
	Red     = NewColor(color.FgRed)
	Green   = NewColor(color.FgGreen)
	Yellow  = NewColor(color.FgYellow)
	Blue    = NewColor(color.FgBlue)
	Magenta = NewColor(color.FgMagenta)
	Cyan    = NewColor(color.FgCyan)
	White   = NewColor(color.FgWhite)
)

var levelColors = map[Level]Color{
	LevelDebug:    Cyan,
	LevelInfo:     Green,
	LevelWarning:  Yellow,
	LevelError:    Red,
	LevelCritical: NewColor(color.FgHiRed, color.Bold),
}

// LevelColor returns the default color for a level. Unnamed levels take the
// color of the nearest named level below them.
func LevelColor(l Level) Color {
	switch {
	case l >= LevelCritical:
		return levelColors[LevelCritical]
	case l >= LevelError:
		return levelColors[LevelError]
	case l >= LevelWarning:
		return levelColors[LevelWarning]
	case l >= LevelInfo:
		return levelColors[LevelInfo]
	default:
		return levelColors[LevelDebug]
	}
}

var colorNames = map[string]Color{
	"black":   Black,
	"red":     Red,
	"green":   Green,
	"yellow":  Yellow,
	"blue":    Blue,
	"magenta": Magenta,
	"cyan":    Cyan,
	"white":   White,
}

// ParseColor resolves a color name ("red", "blue", ...) to its Color.
func ParseColor(name string) (Color, error) {
	if c, ok := colorNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown color: %q", name)
}

// ColorMode controls whether terminal sinks receive ANSI sequences.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // color only when the destination is a terminal
	ColorAlways ColorMode = "always" // color even when redirected
	ColorNever  ColorMode = "never"  // never color
)

// ParseColorMode validates a color mode name. The empty string means auto.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	default:
		return "", fmt.Errorf("invalid color mode: %q", s)
	}
}

// colorize reports whether a destination gets color under mode.
func colorize(mode ColorMode, terminal bool) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return terminal
	}
}

// isTerminal reports whether w is an interactive terminal.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// colorTerminal reports whether auto mode colors w. Setting NO_COLOR to any
// value turns auto color off; an explicit always still colors.
func colorTerminal(w io.Writer) bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return isTerminal(w)
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// stripANSI removes escape sequences carried inside caller text.
func stripANSI(s string) string {
	if !strings.Contains(s, "\x1b") {
		return s
	}
	return ansiPattern.ReplaceAllString(s, "")
}
