package quick

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/LixenWraith/hiviz"
)

var (
	levelType     = reflect.TypeOf(hiviz.Level(0))
	colorModeType = reflect.TypeOf(hiviz.ColorMode(""))
)

// Options parses "key=value" statements into options. Keys are the toml
// names of hiviz.Options fields, e.g. "term_level=debug", "log=true",
// "max_bytes=5MB" or "term_flags=timestamp|level".
func Options(args ...string) ([]hiviz.Option, error) {
	opts := make([]hiviz.Option, 0, len(args))
	for _, arg := range args {
		key, value, err := parseKeyValue(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid option format: %s", arg)
		}

		opt, err := option(key, value)
		if err != nil {
			return nil, fmt.Errorf("option error: %w", err)
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

// parseKeyValue splits a statement into key and value parts.
// Input format must be "key=value". Leading and trailing spaces are removed from both parts.
func parseKeyValue(arg string) (string, string, error) {
	key, value, ok := strings.Cut(strings.TrimSpace(arg), "=")
	if !ok || strings.TrimSpace(key) == "" {
		return "", "", fmt.Errorf("invalid format")
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), nil
}

// option builds an Option setting the field tagged key. The value is
// converted once, here, so a bad statement fails before anything is pushed.
func option(key, value string) (hiviz.Option, error) {
	key = strings.ToLower(key)

	t := reflect.TypeOf(hiviz.Options{})
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("toml") != key {
			continue
		}

		val, err := convert(field.Type, key, value)
		if err != nil {
			return nil, err
		}
		index := i
		return func(o *hiviz.Options) {
			reflect.ValueOf(o).Elem().Field(index).Set(val)
		}, nil
	}
	return nil, fmt.Errorf("unknown option key: %s", key)
}

func convert(t reflect.Type, key, value string) (reflect.Value, error) {
	v := reflect.New(t).Elem()

	switch {
	case t == levelType:
		level, err := hiviz.ParseLevel(value)
		if err != nil {
			return v, err
		}
		v.Set(reflect.ValueOf(level))
		return v, nil

	case t == colorModeType:
		mode, err := hiviz.ParseColorMode(value)
		if err != nil {
			return v, err
		}
		v.Set(reflect.ValueOf(mode))
		return v, nil
	}

	switch t.Kind() {
	case reflect.Int64:
		n, err := parseInt64(key, value)
		if err != nil {
			return v, err
		}
		v.SetInt(n)

	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return v, fmt.Errorf("invalid int value for %s: %s", key, value)
		}
		if n < 0 || (key == "trace_depth" && n > 10) {
			return v, fmt.Errorf("value out of range for %s: %d", key, n)
		}
		v.SetInt(int64(n))

	case reflect.String:
		v.SetString(value)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return v, fmt.Errorf("invalid bool value for %s: %s", key, value)
		}
		v.SetBool(b)

	default:
		return v, fmt.Errorf("unsupported option type for %s", key)
	}
	return v, nil
}

// parseInt64 handles the sized and flag fields, which accept more than digits.
func parseInt64(key, value string) (int64, error) {
	switch key {
	case "max_bytes":
		n, err := humanize.ParseBytes(value)
		if err != nil {
			return 0, fmt.Errorf("invalid size for %s: %s", key, value)
		}
		return int64(n), nil
	case "term_flags":
		return parseFlags(value)
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid int64 value for %s: %s", key, value)
	}
	return n, nil
}

// parseFlags accepts a number or names joined by '|': timestamp, level, none.
func parseFlags(value string) (int64, error) {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n, nil
	}
	var flags int64
	for _, name := range strings.Split(value, "|") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "timestamp", "ts":
			flags |= hiviz.FlagShowTimestamp
		case "level":
			flags |= hiviz.FlagShowLevel
		case "none", "":
		default:
			return 0, fmt.Errorf("invalid terminal flag: %s", name)
		}
	}
	return flags, nil
}
