package storage

import (
	"errors"
	"fmt"
)

// DefaultRegion is used when no region is configured. S3-compatible stores
// like MinIO accept any region but the SDK requires one.
const DefaultRegion = "us-east-1"

// Config holds blob storage configuration.
type Config struct {
	// Bucket is the bucket holding audio recordings.
	Bucket string `yaml:"bucket" mapstructure:"bucket"`

	// Region is the AWS region.
	Region string `yaml:"region" mapstructure:"region"`

	// Endpoint is a custom S3-compatible endpoint (e.g. MinIO).
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`

	// AccessKey is the access key ID.
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`

	// SecretKey is the secret access key.
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`

	// ForcePathStyle forces path-style URLs instead of virtual-hosted-style.
	// Always enabled when a custom endpoint is set.
	ForcePathStyle bool `yaml:"force_path_style" mapstructure:"force_path_style"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
}

// Validate checks that the storage configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	if c.Bucket == "" {
		errs = append(errs, errors.New("storage: bucket is required"))
	}
	if c.Region == "" {
		errs = append(errs, errors.New("storage: region is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("storage: invalid config: %w", errors.Join(errs...))
	}
	return nil
}
