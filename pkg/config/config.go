// Package config holds the client's running configuration and the machinery
// for mutating its remotely updatable subset.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the client's running configuration. It is owned by the worker
// and handed by reference to the updater and to read-only consumers; there
// is no ambient global state.
type Config struct {
	// Compression selects the payload compression applied by the transport.
	Compression string `yaml:"compression"`
	// ForemanCheckFrequency is how often, in seconds, the client asks the
	// server for scheduled work.
	ForemanCheckFrequency int `yaml:"foreman_check_frequency"`
	// Location is the server endpoint the transport posts to.
	Location string `yaml:"location"`
	// MaxPostSize bounds a single outbound payload, in bytes.
	MaxPostSize int `yaml:"max_post_size"`
	// MaxOutQueue bounds the pending outbound reply queue.
	MaxOutQueue int `yaml:"max_out_queue"`
	// PollMin, PollMax and PollSlew shape the transport's poll backoff.
	PollMin  float64 `yaml:"poll_min"`
	PollMax  float64 `yaml:"poll_max"`
	PollSlew float64 `yaml:"poll_slew"`
	// RSSMax is the resident memory ceiling, in megabytes, before the
	// client takes itself out of service.
	RSSMax int `yaml:"rss_max"`
	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`
}

// Default returns the configuration used when no stored file exists.
func Default() *Config {
	return &Config{
		Compression:           "ZCOMPRESS",
		ForemanCheckFrequency: 3600,
		MaxPostSize:           8 * 1024 * 1024,
		MaxOutQueue:           10 * 1024 * 1024,
		PollMin:               0.2,
		PollMax:               600,
		PollSlew:              1.15,
		RSSMax:                100,
	}
}

// Load reads the stored configuration, falling back to defaults when no file
// is present at path.
func Load(path string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, errors.Wrap(err, "unable to read stored config")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "unable to parse stored config")
	}
	return c, nil
}

// Write persists the configuration to path.
func Write(c *Config, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "unable to encode config")
	}
	return errors.Wrap(os.WriteFile(path, data, 0600), "unable to store config")
}
