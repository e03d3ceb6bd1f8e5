package status

import (
	"fmt"
	"time"
)

// Config holds Redis status store configuration.
type Config struct {
	// Addr is the Redis server address (host:port).
	Addr string `yaml:"addr" mapstructure:"addr"`

	// Password is the Redis server password.
	Password string `yaml:"password" mapstructure:"password"`

	// DB is the Redis database number.
	DB int `yaml:"db" mapstructure:"db"`

	// PoolSize is the maximum number of socket connections.
	PoolSize int `yaml:"pool_size" mapstructure:"pool_size"`

	// DialTimeout is the timeout for establishing new connections (e.g. "5s").
	DialTimeout string `yaml:"dial_timeout" mapstructure:"dial_timeout"`

	// ReadTimeout is the timeout for socket reads (e.g. "3s").
	ReadTimeout string `yaml:"read_timeout" mapstructure:"read_timeout"`

	// WriteTimeout is the timeout for socket writes (e.g. "3s").
	WriteTimeout string `yaml:"write_timeout" mapstructure:"write_timeout"`

	// JobTTL is how long job records live after their last write (e.g. "24h").
	JobTTL string `yaml:"job_ttl" mapstructure:"job_ttl"`

	// ResultTTL is how long result records live after their last write (e.g. "168h").
	ResultTTL string `yaml:"result_ttl" mapstructure:"result_ttl"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "5s"
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "3s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "3s"
	}
	if c.JobTTL == "" {
		c.JobTTL = "24h"
	}
	if c.ResultTTL == "" {
		c.ResultTTL = "168h"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("status: redis addr is required")
	}
	for name, val := range map[string]string{
		"dial_timeout":  c.DialTimeout,
		"read_timeout":  c.ReadTimeout,
		"write_timeout": c.WriteTimeout,
		"job_ttl":       c.JobTTL,
		"result_ttl":    c.ResultTTL,
	} {
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("status: invalid %s %q: %w", name, val, err)
		}
	}
	return nil
}
