package config

import (
	"fmt"

	"github.com/kbukum/melos/filter"
	"github.com/kbukum/melos/logger"
	"github.com/kbukum/melos/observability"
	"github.com/kbukum/melos/runner"
	"github.com/kbukum/melos/validation"
)

// Config is the full configuration of a melos process.
type Config struct {
	Name        string               `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string               `yaml:"environment" mapstructure:"environment" validate:"oneof=development ci production"`
	Logging     logger.Config        `yaml:"logging" mapstructure:"logging"`
	Exec        runner.Config        `yaml:"exec" mapstructure:"exec"`
	Filters     filter.Spec          `yaml:"filters" mapstructure:"filters"`
	Telemetry   observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// ApplyDefaults applies default values to every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "melos"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	c.Logging.ApplyDefaults()
	c.Exec.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
}

// Validate validates every section.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return filter.Validate(c.Filters)
}
