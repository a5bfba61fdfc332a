package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFingerprint(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validatePrediction(); err != nil {
		return err
	}
	if err := c.validateDecoder(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.Checkpoint == "" {
		return errors.New("paths.checkpoint must be set")
	}
	return nil
}

func (c *Config) validateFingerprint() error {
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("fingerprint: %w", err)
	}
	return nil
}

func (c *Config) validateMatching() error {
	if err := c.Scorer().Validate(); err != nil {
		return fmt.Errorf("matching: %w", err)
	}
	if c.Matching.Workers < 1 {
		return errors.New("matching.workers must be positive")
	}
	return nil
}

func (c *Config) validatePrediction() error {
	if c.Prediction.LowConfidenceThreshold < 0 || c.Prediction.LowConfidenceThreshold > 1 {
		return errors.New("prediction.low_confidence_threshold must be between 0 and 1")
	}
	switch c.Prediction.SingleReference {
	case "score", "reject":
	default:
		return fmt.Errorf("prediction.single_reference must be \"score\" or \"reject\", got %q", c.Prediction.SingleReference)
	}
	return nil
}

func (c *Config) validateDecoder() error {
	if c.Decoder.SampleRate <= 0 {
		return errors.New("decoder.sample_rate must be positive")
	}
	if c.Decoder.SeekSeconds < 0 {
		return errors.New("decoder.seek_seconds must not be negative")
	}
	if c.Decoder.DurationSeconds <= 0 {
		return errors.New("decoder.duration_seconds must be positive")
	}
	if _, err := c.Params().ChunkSamples(c.Decoder.SampleRate); err != nil {
		return fmt.Errorf("decoder.sample_rate: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
}
