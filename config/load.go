package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML file over the defaults, so a file only needs the keys it
// changes. An empty path yields the defaults. VOTE_LEDGER_* environment
// variables override both.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config load: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("config unmarshal: %w", err)
		}
	}
	if err := applyEnvOverrides(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func applyEnvOverrides(c *Config) error {
	if v := os.Getenv("VOTE_LEDGER_STORAGE_DIR"); v != "" {
		c.StorageDir = v
	}
	if v := os.Getenv("VOTE_LEDGER_ENCODER"); v != "" {
		c.Encoder = v
	}
	if v := os.Getenv("VOTE_LEDGER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	for name, dst := range map[string]*int{
		"VOTE_LEDGER_PORT":       &c.Port,
		"VOTE_LEDGER_DIFFICULTY": &c.Difficulty,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, name, v)
		}
		*dst = n
	}
	return nil
}
