package steer

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the service configuration.  It
// can be populated from JSON or YAML; zero fields are backfilled with the
// package defaults when the service is constructed.

type Config struct {
	Engine EngineConfig `json:"engine" yaml:"engine"`
	Review ReviewConfig `json:"review" yaml:"review"`
}

type EngineConfig struct {
	WorkerCount int `json:"workers" yaml:"workers"`
}

type ReviewConfig struct {
	// FeedbackTimeoutMs bounds the synchronous feedback wait
	FeedbackTimeoutMs int `json:"feedbackTimeoutMs" yaml:"feedbackTimeoutMs"`

	// QueueVendor selects the messaging backend ("memory" or "fs")
	QueueVendor string `json:"queueVendor" yaml:"queueVendor"`
}

// DefaultConfig returns a Config populated with the same defaults the
// constructors apply when fields are left zero.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{WorkerCount: 5},
		Review: ReviewConfig{
			FeedbackTimeoutMs: 60000,
			QueueVendor:       "memory",
		},
	}
}

// applyDefaults backfills zero fields so that a partially populated Config
// (including the zero-value) behaves like DefaultConfig for the rest.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Engine.WorkerCount <= 0 {
		c.Engine.WorkerCount = defaults.Engine.WorkerCount
	}
	if c.Review.FeedbackTimeoutMs <= 0 {
		c.Review.FeedbackTimeoutMs = defaults.Review.FeedbackTimeoutMs
	}
	if c.Review.QueueVendor == "" {
		c.Review.QueueVendor = defaults.Review.QueueVendor
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Engine.WorkerCount <= 0 {
		return fmt.Errorf("engine.workers must be > 0")
	}
	if c.Review.FeedbackTimeoutMs <= 0 {
		return fmt.Errorf("review.feedbackTimeoutMs must be > 0")
	}
	switch c.Review.QueueVendor {
	case "memory", "fs":
	default:
		return fmt.Errorf("review.queueVendor must be memory or fs, got %q", c.Review.QueueVendor)
	}
	return nil
}

// LoadConfig reads a YAML config from any afs-supported URL (file, embed,
// mem, s3, …), overlaying the defaults.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", URL, err)
	}
	config := DefaultConfig()
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", URL, err)
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
