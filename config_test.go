package hiviz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dustin/go-humanize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestConfigFromLookupDefaults(t *testing.T) {
	cfg := configFromLookup(lookupFrom(nil))
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfigFromLookup(t *testing.T) {
	cfg := configFromLookup(lookupFrom(map[string]string{
		"DEBUG":            "1",
		"LOG":              "true",
		"LOG_JSON":         "yes",
		"LOG_FILE":         "/var/log/app.log",
		"TERM_LEVEL":       "debug",
		"FILE_LEVEL":       "40",
		"STDERR_LEVEL":     "critical",
		"LOG_MAX_BYTES":    "2MiB",
		"LOG_BACKUP_COUNT": "7",
		"LOG_COLOR":        "always",
	}))

	assert.True(t, cfg.Debug)
	assert.True(t, cfg.Log)
	assert.True(t, cfg.JSONLogs)
	assert.Equal(t, "/var/log/app.log", cfg.LogFile)
	assert.Equal(t, LevelDebug, cfg.TermLevel)
	assert.Equal(t, LevelError, cfg.FileLevel)
	assert.Equal(t, LevelCritical, cfg.StderrLevel)
	assert.Equal(t, ByteSize(2*humanize.MiByte), cfg.MaxBytes)
	assert.Equal(t, 7, cfg.BackupCount)
	assert.Equal(t, string(ColorAlways), cfg.Color)
}

// TestConfigFromLookupFailsClosed checks unrecognized values keep defaults
func TestConfigFromLookupFailsClosed(t *testing.T) {
	def := DefaultConfig()
	cfg := configFromLookup(lookupFrom(map[string]string{
		"DEBUG":            "maybe",
		"TERM_LEVEL":       "chatty",
		"FILE_LEVEL":       "",
		"STDERR_LEVEL":     "0",
		"LOG_MAX_BYTES":    "lots",
		"LOG_BACKUP_COUNT": "-3",
		"LOG_COLOR":        "rainbow",
	}))

	assert.False(t, cfg.Debug)
	assert.Equal(t, def.TermLevel, cfg.TermLevel)
	assert.Equal(t, def.FileLevel, cfg.FileLevel)
	assert.Equal(t, def.StderrLevel, cfg.StderrLevel)
	assert.Equal(t, def.MaxBytes, cfg.MaxBytes)
	assert.Equal(t, def.BackupCount, cfg.BackupCount)
	assert.Equal(t, def.Color, cfg.Color)
}

func TestConfigFromEnvNoColor(t *testing.T) {
	t.Setenv("LOG_COLOR", "always")
	t.Setenv("NO_COLOR", "")
	t.Setenv("TERM_LEVEL", "warning")

	cfg := ConfigFromEnv()
	assert.Equal(t, string(ColorNever), cfg.Color)
	assert.Equal(t, LevelWarning, cfg.TermLevel)
}

func TestEnvBool(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", "on"} {
		assert.True(t, envBool(v, false), v)
	}
	for _, v := range []string{"0", "false", "No", "off"} {
		assert.False(t, envBool(v, true), v)
	}
	assert.True(t, envBool("", true))
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{TermLevel: LevelError}.withDefaults()
	assert.Equal(t, LevelError, cfg.TermLevel)
	assert.Equal(t, LevelWarning, cfg.StderrLevel)
	assert.Equal(t, "debug.log", cfg.LogFile)
	assert.Equal(t, string(ColorAuto), cfg.Color)
	// zero disables rotation when set programmatically
	assert.Zero(t, cfg.MaxBytes)
	assert.Zero(t, cfg.BackupCount)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"trace depth", Config{TraceDepth: 11}},
		{"negative size", Config{MaxBytes: -1}},
		{"negative backups", Config{BackupCount: -1}},
		{"negative queue", Config{QueueCapacity: -1}},
		{"color", Config{Color: "loud"}},
		{"negative level", func() Config { c := DefaultConfig(); c.FileLevel = -10; return c }()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.validate())
		})
	}
	assert.NoError(t, DefaultConfig().validate())
}

func TestConfigOptionsRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShowTimestamp = true
	cfg.HideLevel = true
	cfg.TraceDepth = 3

	opts := cfg.Options()
	assert.Equal(t, FlagShowTimestamp, opts.TermFlags)
	assert.Equal(t, int64(cfg.MaxBytes), opts.MaxBytes)
	assert.Equal(t, ColorAuto, opts.ColorMode)

	back := opts.Config()
	assert.True(t, back.ShowTimestamp)
	assert.True(t, back.HideLevel)
	assert.Equal(t, cfg.TraceDepth, back.TraceDepth)
	assert.Equal(t, cfg.MaxBytes, back.MaxBytes)
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "toml",
			file: "hiviz.toml",
			content: `
term_level = "debug"
log = true
log_file = "app.log"
max_bytes = "5MB"
backup_count = 2
color = "never"
`,
		},
		{
			name: "yaml",
			file: "hiviz.yaml",
			content: `
term_level: debug
log: true
log_file: app.log
max_bytes: 5MB
backup_count: 2
color: never
`,
		},
		{
			name:    "json",
			file:    "hiviz.json",
			content: `{"term_level": 10, "log": true, "log_file": "app.log", "max_bytes": "5MB", "backup_count": 2, "color": "never"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tt.file, tt.content))
			require.NoError(t, err)

			assert.Equal(t, LevelDebug, cfg.TermLevel)
			assert.True(t, cfg.Log)
			assert.Equal(t, "app.log", cfg.LogFile)
			assert.Equal(t, ByteSize(5_000_000), cfg.MaxBytes)
			assert.Equal(t, 2, cfg.BackupCount)
			assert.Equal(t, "never", cfg.Color)
			// untouched keys keep their defaults
			assert.Equal(t, LevelWarning, cfg.StderrLevel)
			assert.Equal(t, int64(100), cfg.FlushIntervalMs)
		})
	}
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "hiviz.ini", "log=true"))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = LoadConfig(writeConfig(t, "hiviz.toml", `term_level = "chatty"`))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "hiviz.yaml", "trace_depth: 12"))
	assert.ErrorContains(t, err, "trace depth")
}

func TestLoadConfigZeroLevelMeansDefault(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "hiviz.json", `{"term_level": 0, "file_level": "0"}`))
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, cfg.TermLevel)
	assert.Equal(t, LevelDebug, cfg.FileLevel)

	_, err = LoadConfig(writeConfig(t, "hiviz.json", `{"term_level": -5}`))
	assert.ErrorContains(t, err, "invalid term_level")
}
