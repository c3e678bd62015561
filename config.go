package hiviz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config defines the logger configuration parameters.
// All data fields can be set via environment, JSON, TOML or YAML files.
// Levels must be positive; a level of 0 means unset and takes the default.
type Config struct {
	TermLevel       Level    `json:"term_level" toml:"term_level" yaml:"term_level"`                      // Minimum level printed on the terminal
	StderrLevel     Level    `json:"stderr_level" toml:"stderr_level" yaml:"stderr_level"`                // Terminal records from this level go to stderr
	FileLevel       Level    `json:"file_level" toml:"file_level" yaml:"file_level"`                      // Minimum level written to the log file
	Log             bool     `json:"log" toml:"log" yaml:"log"`                                           // Enables the file sink
	JSONLogs        bool     `json:"json_logs" toml:"json_logs" yaml:"json_logs"`                         // File sink writes JSON lines instead of text
	LogFile         string   `json:"log_file" toml:"log_file" yaml:"log_file"`                            // Path of the log file
	MaxBytes        ByteSize `json:"max_bytes" toml:"max_bytes" yaml:"max_bytes"`                         // Rotate the log file past this size, 0 disables rotation
	BackupCount     int      `json:"backup_count" toml:"backup_count" yaml:"backup_count"`                // Number of rotated backups kept
	Debug           bool     `json:"debug" toml:"debug" yaml:"debug"`                                     // Echo every record to the debug tracer
	Color           string   `json:"color" toml:"color" yaml:"color"`                                     // auto, always or never
	ShowTimestamp   bool     `json:"show_timestamp" toml:"show_timestamp" yaml:"show_timestamp"`          // Prefix terminal lines with the time
	HideLevel       bool     `json:"hide_level" toml:"hide_level" yaml:"hide_level"`                      // Omit the level name on terminal lines
	TraceDepth      int      `json:"trace_depth" toml:"trace_depth" yaml:"trace_depth"`                   // 0-10, 0 disables call-chain tracing
	QueueCapacity   int      `json:"queue_capacity" toml:"queue_capacity" yaml:"queue_capacity"`          // 0 keeps the queue unbounded, otherwise oldest records are dropped
	FlushIntervalMs int64    `json:"flush_interval_ms" toml:"flush_interval_ms" yaml:"flush_interval_ms"` // Periodic sync of open log files

	// Destinations, mainly for tests and embedding. Nil means the process streams.
	Stdout   io.Writer `json:"-" toml:"-" yaml:"-"`
	Stderr   io.Writer `json:"-" toml:"-" yaml:"-"`
	Tracer   io.Writer `json:"-" toml:"-" yaml:"-"` // defaults to Stderr
	Fallback io.Writer `json:"-" toml:"-" yaml:"-"` // internal failure reports, defaults to os.Stderr
}

// ByteSize is a size in bytes that also accepts humanized strings like "10MB".
type ByteSize int64

func (b *ByteSize) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		*b = 0
		return nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", s, err)
	}
	*b = ByteSize(n)
	return nil
}

func (b *ByteSize) UnmarshalJSON(data []byte) error {
	return b.UnmarshalText(bytes.Trim(data, `"`))
}

// DefaultConfig returns the configuration used when nothing else is given.
func DefaultConfig() Config {
	return Config{
		TermLevel:       LevelInfo,
		StderrLevel:     LevelWarning,
		FileLevel:       LevelDebug,
		LogFile:         "debug.log",
		MaxBytes:        10 * humanize.MiByte,
		BackupCount:     5,
		Color:           string(ColorAuto),
		FlushIntervalMs: 100,
	}
}

// withDefaults fills zero-valued fields from DefaultConfig. MaxBytes and
// BackupCount are left alone: zero is meaningful for both.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	c.TermLevel = getConfigValue(d.TermLevel, c.TermLevel)
	c.StderrLevel = getConfigValue(d.StderrLevel, c.StderrLevel)
	c.FileLevel = getConfigValue(d.FileLevel, c.FileLevel)
	c.LogFile = getConfigValue(d.LogFile, c.LogFile)
	c.Color = getConfigValue(d.Color, c.Color)
	c.FlushIntervalMs = getConfigValue(d.FlushIntervalMs, c.FlushIntervalMs)
	return c
}

// validate rejects values the logger cannot run with.
func (c Config) validate() error {
	for name, l := range map[string]Level{"term_level": c.TermLevel, "stderr_level": c.StderrLevel, "file_level": c.FileLevel} {
		if l <= 0 {
			return fmt.Errorf("invalid %s: %d", name, int(l))
		}
	}
	if c.TraceDepth < 0 || c.TraceDepth > 10 {
		return fmt.Errorf("invalid trace depth: must be between 0 and 10")
	}
	if c.MaxBytes < 0 {
		return fmt.Errorf("invalid max_bytes: %d", c.MaxBytes)
	}
	if c.BackupCount < 0 {
		return fmt.Errorf("invalid backup_count: %d", c.BackupCount)
	}
	if c.QueueCapacity < 0 {
		return fmt.Errorf("invalid queue_capacity: %d", c.QueueCapacity)
	}
	if _, err := ParseColorMode(c.Color); err != nil {
		return err
	}
	return nil
}

// Options converts the configuration to the base routing state.
func (c Config) Options() Options {
	mode, err := ParseColorMode(c.Color)
	if err != nil {
		mode = ColorAuto
	}
	flags := FlagShowLevel
	if c.HideLevel {
		flags = 0
	}
	if c.ShowTimestamp {
		flags |= FlagShowTimestamp
	}
	return Options{
		TermLevel:   c.TermLevel,
		StderrLevel: c.StderrLevel,
		FileLevel:   c.FileLevel,
		ToLog:       c.Log,
		JSONLogs:    c.JSONLogs,
		LogFile:     c.LogFile,
		MaxBytes:    int64(c.MaxBytes),
		BackupCount: c.BackupCount,
		ToDebug:     c.Debug,
		ColorMode:   mode,
		TermFlags:   flags,
		TraceDepth:  c.TraceDepth,
	}
}

// Config converts Options back to the data fields of a Config.
func (o Options) Config() Config {
	return Config{
		TermLevel:     o.TermLevel,
		StderrLevel:   o.StderrLevel,
		FileLevel:     o.FileLevel,
		Log:           o.ToLog,
		JSONLogs:      o.JSONLogs,
		LogFile:       o.LogFile,
		MaxBytes:      ByteSize(o.MaxBytes),
		BackupCount:   o.BackupCount,
		Debug:         o.ToDebug,
		Color:         string(o.ColorMode),
		ShowTimestamp: o.TermFlags&FlagShowTimestamp != 0,
		HideLevel:     o.TermFlags&FlagShowLevel == 0,
		TraceDepth:    o.TraceDepth,
	}
}

func (c Config) flushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMs) * time.Millisecond
}

// ConfigFromEnv reads DEBUG, LOG, LOG_FILE, TERM_LEVEL, FILE_LEVEL and
// STDERR_LEVEL, plus LOG_JSON, LOG_MAX_BYTES, LOG_BACKUP_COUNT, LOG_COLOR and
// NO_COLOR. Unrecognized values fall back to the defaults; it never fails.
func ConfigFromEnv() Config {
	return configFromLookup(os.LookupEnv)
}

func configFromLookup(lookup func(string) (string, bool)) Config {
	cfg := DefaultConfig()
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg.Debug = envBool(get("DEBUG"), false)
	cfg.Log = envBool(get("LOG"), false)
	cfg.JSONLogs = envBool(get("LOG_JSON"), false)
	if v := get("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	cfg.TermLevel = levelOr(get("TERM_LEVEL"), cfg.TermLevel)
	cfg.FileLevel = levelOr(get("FILE_LEVEL"), cfg.FileLevel)
	cfg.StderrLevel = levelOr(get("STDERR_LEVEL"), cfg.StderrLevel)

	if v := get("LOG_MAX_BYTES"); v != "" {
		var size ByteSize
		if err := size.UnmarshalText([]byte(v)); err == nil {
			cfg.MaxBytes = size
		}
	}
	if v := get("LOG_BACKUP_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.BackupCount = n
		}
	}
	if mode, err := ParseColorMode(get("LOG_COLOR")); err == nil {
		cfg.Color = string(mode)
	}
	if _, set := lookup("NO_COLOR"); set {
		cfg.Color = string(ColorNever)
	}
	return cfg
}

// envBool parses a boolean switch. Unrecognized values return def.
func envBool(v string, def bool) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

// LoadConfig reads a configuration file. The format is chosen by extension:
// .toml, .yaml/.yml or .json. Fields missing from the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// getConfigValue returns defaultVal if cfgVal equals the zero value for type T,
// otherwise returns cfgVal.
func getConfigValue[T comparable](defaultVal, cfgVal T) T {
	var zero T
	if cfgVal == zero {
		return defaultVal
	}
	return cfgVal
}
