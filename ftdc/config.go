package ftdc

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Config is the single piece of external configuration the core consumes:
// the number of samples, including the reference sample, held in one
// archive metric chunk.
type Config struct {
	MaxSamplesPerArchiveMetricChunk int `yaml:"maxSamplesPerArchiveMetricChunk"`
}

// LoadConfig reads a YAML document of the form:
//
//	maxSamplesPerArchiveMetricChunk: 300
//
// and validates it.
func LoadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("ftdc: loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports ErrConfig unless the configured chunk size can hold at
// least one delta sample beyond the reference (Dmax = MaxSamplesPerArchiveMetricChunk-1 >= 1).
func (c *Config) Validate() error {
	if c.MaxSamplesPerArchiveMetricChunk < 2 {
		return fmt.Errorf("ftdc: %w: maxSamplesPerArchiveMetricChunk must be >= 2, got %d",
			ErrConfig, c.MaxSamplesPerArchiveMetricChunk)
	}
	return nil
}

// dmax is the maximum number of delta-encoded successors held in one chunk.
func (c *Config) dmax() int {
	return c.MaxSamplesPerArchiveMetricChunk - 1
}
