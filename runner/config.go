package runner

import (
	"time"

	"github.com/kbukum/melos/validation"
)

// DefaultConcurrency is the number of packages run at once when unset.
const DefaultConcurrency = 5

// Config holds the run-level options.
type Config struct {
	// Concurrency is the number of packages that may run at once.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency" validate:"gte=0"`
	// FailFast stops starting new packages once one failed or timed out.
	FailFast bool `yaml:"fail_fast" mapstructure:"fail_fast"`
	// OrderDependents runs a package only after its dependencies.
	OrderDependents bool `yaml:"order_dependents" mapstructure:"order_dependents"`
	// Timeout bounds each package's command. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	// GracePeriod is the delay between SIGTERM and SIGKILL when a command
	// is terminated.
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period" validate:"gte=0"`
}

// ApplyDefaults applies default values to run configuration.
func (c *Config) ApplyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.GracePeriod == 0 {
		c.GracePeriod = 5 * time.Second
	}
}

// Validate validates run configuration.
func (c *Config) Validate() error {
	return validation.Struct(c)
}
