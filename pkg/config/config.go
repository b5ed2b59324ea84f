// Package config provides configuration loading and management for tiffsignals.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// ErrConfig is returned by Validate for out-of-range settings.
var ErrConfig = errors.New("invalid configuration")

// Config represents the application configuration loaded from YAML.
// Several configurations (different rigs or protocols) can coexist; nothing
// in the processing packages reads global state.
type Config struct {
	// Acquisition parameters
	Acquisition struct {
		// Channels is the number of interleaved acquisition channels per trial
		Channels int `yaml:"channels"`

		// ZigZagParity selects which rows were scanned backwards (1 = odd rows)
		ZigZagParity int `yaml:"zigZagParity"`

		// Extensions lists the recognized image file extensions
		Extensions []string `yaml:"extensions"`
	} `yaml:"acquisition"`

	// Orientation parameters
	Orientation struct {
		// OfInterest lists the stimulus orientations kept for grouping, in group order
		OfInterest []float64 `yaml:"ofInterest"`
	} `yaml:"orientation"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many files are decoded concurrently
		NumCores int `yaml:"numCores"`

		// Normalize enables per-trial, per-channel min-max scaling after demultiplexing
		Normalize bool `yaml:"normalize"`

		// ThresholdMultiplier is the number of standard deviations above the
		// channel mean a sample must exceed to count as an event
		ThresholdMultiplier float64 `yaml:"thresholdMultiplier"`

		// SmoothingWindow is the boxcar width applied to event counts
		SmoothingWindow int `yaml:"smoothingWindow"`
	} `yaml:"processing"`

	// Timing parameters
	Timing struct {
		// MsPerLine is the acquisition time of one scan line in milliseconds
		MsPerLine float64 `yaml:"msPerLine"`
	} `yaml:"timing"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// PlotDir is where the command line tool writes plots; empty disables plotting
		PlotDir string `yaml:"plotDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Acquisition.Channels = 4
	cfg.Acquisition.ZigZagParity = 1
	cfg.Acquisition.Extensions = []string{".tif", ".tiff"}

	// Two opposing orientations
	cfg.Orientation.OfInterest = []float64{90, 180}

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.Normalize = true
	cfg.Processing.ThresholdMultiplier = 3.8
	cfg.Processing.SmoothingWindow = 100

	cfg.Timing.MsPerLine = 1.15

	cfg.Output.Verbose = false
	cfg.Output.PlotDir = ""

	return cfg
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	switch {
	case c.Acquisition.Channels < 1:
		return fmt.Errorf("%w: acquisition.channels must be at least 1, got %d", ErrConfig, c.Acquisition.Channels)
	case c.Acquisition.ZigZagParity != 0 && c.Acquisition.ZigZagParity != 1:
		return fmt.Errorf("%w: acquisition.zigZagParity must be 0 or 1, got %d", ErrConfig, c.Acquisition.ZigZagParity)
	case len(c.Acquisition.Extensions) == 0:
		return fmt.Errorf("%w: acquisition.extensions is empty", ErrConfig)
	case len(c.Orientation.OfInterest) == 0:
		return fmt.Errorf("%w: orientation.ofInterest is empty", ErrConfig)
	case c.Processing.NumCores < 1:
		return fmt.Errorf("%w: processing.numCores must be at least 1, got %d", ErrConfig, c.Processing.NumCores)
	case c.Processing.SmoothingWindow < 1:
		return fmt.Errorf("%w: processing.smoothingWindow must be at least 1, got %d", ErrConfig, c.Processing.SmoothingWindow)
	case c.Processing.ThresholdMultiplier < 0:
		return fmt.Errorf("%w: processing.thresholdMultiplier must not be negative", ErrConfig)
	case c.Timing.MsPerLine <= 0:
		return fmt.Errorf("%w: timing.msPerLine must be positive", ErrConfig)
	}

	seen := make(map[float64]bool, len(c.Orientation.OfInterest))
	for _, o := range c.Orientation.OfInterest {
		if seen[o] {
			return fmt.Errorf("%w: orientation %g listed twice", ErrConfig, o)
		}
		seen[o] = true
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
