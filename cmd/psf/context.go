package main

import (
	"strings"

	"psfd/internal/config"
)

// commandContext carries lazily loaded configuration shared by the
// subcommands.
type commandContext struct {
	serverFlag *string
	configFlag *string
	cfg        *config.Config
}

func newCommandContext(serverFlag, configFlag *string) *commandContext {
	return &commandContext{serverFlag: serverFlag, configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := ""
	if c.configFlag != nil {
		path = *c.configFlag
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) client() (*client, error) {
	if c.serverFlag != nil && strings.TrimSpace(*c.serverFlag) != "" {
		return newClient(*c.serverFlag), nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return newClient(cfg.Paths.APIBind), nil
}
