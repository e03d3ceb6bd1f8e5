// Package config assembles the service configuration from a YAML file, a
// .env file, and process environment variables, in that order of precedence.
package config

import (
	"fmt"
	"time"

	"github.com/tinkervoid/transcriber/internal/audio"
	"github.com/tinkervoid/transcriber/internal/consumer"
	"github.com/tinkervoid/transcriber/internal/logger"
	"github.com/tinkervoid/transcriber/internal/server"
	"github.com/tinkervoid/transcriber/internal/status"
	"github.com/tinkervoid/transcriber/internal/storage"
)

// EngineConfig holds inference engine settings.
type EngineConfig struct {
	// ModelPath is the ggml model file loaded at startup.
	ModelPath string `mapstructure:"model_path"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *EngineConfig) ApplyDefaults() {
	if c.ModelPath == "" {
		c.ModelPath = "/models/ggml-base.bin"
	}
}

// Validate checks that required fields are present.
func (c *EngineConfig) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("engine: model_path is required")
	}
	return nil
}

// WebhookConfig holds callback delivery settings.
type WebhookConfig struct {
	Timeout string `mapstructure:"timeout"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *WebhookConfig) ApplyDefaults() {
	if c.Timeout == "" {
		c.Timeout = "10s"
	}
}

// Validate checks that the timeout is parseable.
func (c *WebhookConfig) Validate() error {
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("webhook: invalid timeout %q: %w", c.Timeout, err)
	}
	return nil
}

// ShutdownConfig bounds graceful shutdown.
type ShutdownConfig struct {
	// Grace is how long to wait for in-flight batch jobs to drain.
	Grace string `mapstructure:"grace"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *ShutdownConfig) ApplyDefaults() {
	if c.Grace == "" {
		c.Grace = "30s"
	}
}

// Validate checks that the grace period is parseable.
func (c *ShutdownConfig) Validate() error {
	if _, err := time.ParseDuration(c.Grace); err != nil {
		return fmt.Errorf("shutdown: invalid grace %q: %w", c.Grace, err)
	}
	return nil
}

// Config is the root service configuration.
type Config struct {
	Server   server.Config   `mapstructure:"server"`
	Storage  storage.Config  `mapstructure:"storage"`
	Redis    status.Config   `mapstructure:"redis"`
	Engine   EngineConfig    `mapstructure:"engine"`
	Audio    audio.Config    `mapstructure:"audio"`
	Kafka    consumer.Config `mapstructure:"kafka"`
	Webhook  WebhookConfig   `mapstructure:"webhook"`
	Shutdown ShutdownConfig  `mapstructure:"shutdown"`
	Log      logger.Config   `mapstructure:"log"`
}

// ApplyDefaults fills in defaults for every section.
func (c *Config) ApplyDefaults() {
	c.Server.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Engine.ApplyDefaults()
	c.Audio.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Webhook.ApplyDefaults()
	c.Shutdown.ApplyDefaults()
	c.Log.ApplyDefaults()
}

// Validate checks every section, returning the first failure.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Redis.Validate(); err != nil {
		return err
	}
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if err := c.Audio.Validate(); err != nil {
		return err
	}
	if err := c.Kafka.Validate(); err != nil {
		return err
	}
	if err := c.Webhook.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	return c.Log.Validate()
}
