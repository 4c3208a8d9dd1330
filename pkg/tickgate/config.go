package tickgate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yourusername/tickgate/core"
)

// Config holds keyed rate limiting configuration: a default policy plus
// optional per-route overrides.
type Config struct {
	// Defaults apply to every route without an explicit policy
	Defaults PolicyConfig `yaml:"defaults"`

	// Policies maps route paths to their rate limit policies
	Policies map[string]PolicyConfig `yaml:"policies,omitempty"`

	// KeyExtractor names the client identification strategy.
	// Examples: "ip", "ip-proxy", "header:X-API-Key", "static:global"
	KeyExtractor string `yaml:"key_extractor,omitempty"`

	// CleanupAge is how long idle per-key limiters are kept.
	// Format: "1h", "30m", "0" to disable.
	CleanupAge string `yaml:"cleanup_age,omitempty"`
}

// PolicyConfig defines the fixed token bucket parameters for one route.
type PolicyConfig struct {
	// PeriodTicks is the refill window in ticks (1 tick = 1ms under the
	// default wall clock)
	PeriodTicks uint32 `yaml:"period_ticks"`

	// Capacity is the number of calls admitted per period (burst size)
	Capacity uint32 `yaml:"capacity"`

	// Enabled turns rate limiting on or off for the route
	Enabled bool `yaml:"enabled"`
}

// NewConfig returns a Config with a moderate default policy: 100 calls per
// 10-second window, keyed by client IP.
func NewConfig() *Config {
	return &Config{
		Defaults: PolicyConfig{
			PeriodTicks: 10_000,
			Capacity:    100,
			Enabled:     true,
		},
		Policies:     make(map[string]PolicyConfig),
		KeyExtractor: "ip",
		CleanupAge:   "1h",
	}
}

// LoadConfigFromFile loads and validates configuration from a YAML file.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrInvalidConfig, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", ErrInvalidConfig, err)
	}

	if config.KeyExtractor == "" {
		config.KeyExtractor = "ip"
	}
	if config.CleanupAge == "" {
		config.CleanupAge = "1h"
	}
	if config.Policies == nil {
		config.Policies = make(map[string]PolicyConfig)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the default policy and every per-route policy.
func (c *Config) Validate() error {
	if err := c.Defaults.Validate(); err != nil {
		return fmt.Errorf("%w: invalid defaults: %v", ErrInvalidConfig, err)
	}
	for route, policy := range c.Policies {
		if err := policy.Validate(); err != nil {
			return fmt.Errorf("%w: invalid policy for route %s: %v", ErrInvalidConfig, route, err)
		}
	}
	return nil
}

// Validate rejects policies whose parameters would divide by zero in the
// bucket arithmetic.
func (p *PolicyConfig) Validate() error {
	return p.ToBucketConfig().Validate()
}

// GetPolicy returns the policy for a route, falling back to the defaults.
func (c *Config) GetPolicy(route string) PolicyConfig {
	if policy, exists := c.Policies[route]; exists {
		return policy
	}
	return c.Defaults
}

// SetPolicy sets the policy for a specific route.
func (c *Config) SetPolicy(route string, policy PolicyConfig) error {
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Policies == nil {
		c.Policies = make(map[string]PolicyConfig)
	}
	c.Policies[route] = policy
	return nil
}

// ToBucketConfig converts the policy to the core bucket configuration.
func (p *PolicyConfig) ToBucketConfig() core.Config {
	return core.Config{
		Period:   Ticks(p.PeriodTicks),
		Capacity: p.Capacity,
	}
}
