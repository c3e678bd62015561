package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/LixenWraith/hiviz"
	"github.com/LixenWraith/hiviz/quick"
)

type commandContext struct {
	configFlag *string
	setFlags   *[]string

	configOnce sync.Once
	config     hiviz.Config
	configErr  error
}

func newCommandContext(configFlag *string, setFlags *[]string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		setFlags:   setFlags,
	}
}

// ensureConfig loads the --config file, or the environment when none is given.
func (c *commandContext) ensureConfig() (hiviz.Config, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(*c.configFlag)
		if path == "" {
			c.config = hiviz.ConfigFromEnv()
			return
		}
		cfg, err := hiviz.LoadConfig(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// overrides parses the --set statements.
func (c *commandContext) overrides() ([]hiviz.Option, error) {
	if c.setFlags == nil || len(*c.setFlags) == 0 {
		return nil, nil
	}
	opts, err := quick.Options(*c.setFlags...)
	if err != nil {
		return nil, fmt.Errorf("parse --set: %w", err)
	}
	return opts, nil
}

// newLogger builds a Logger from the loaded config with the --set overrides
// pushed on top. The caller closes it.
func (c *commandContext) newLogger(adjust func(*hiviz.Config)) (*hiviz.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if adjust != nil {
		adjust(&cfg)
	}
	opts, err := c.overrides()
	if err != nil {
		return nil, err
	}

	logger, err := hiviz.New(cfg)
	if err != nil {
		return nil, err
	}
	if len(opts) > 0 {
		logger.Push(opts...)
	}
	return logger, nil
}
