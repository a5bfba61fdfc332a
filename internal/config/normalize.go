package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMatching()
	c.normalizePrediction()
	c.normalizeDecoder()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	c.Paths.Checkpoint = strings.TrimSpace(c.Paths.Checkpoint)
	if value, ok := os.LookupEnv("JINGLEID_CHECKPOINT"); ok && strings.TrimSpace(value) != "" {
		c.Paths.Checkpoint = strings.TrimSpace(value)
	}
	if c.Paths.Checkpoint == "" {
		c.Paths.Checkpoint = defaultCheckpointPath
	}
	if c.Paths.Checkpoint, err = expandPath(c.Paths.Checkpoint); err != nil {
		return fmt.Errorf("paths.checkpoint: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir()
	}
	if c.Paths.TempDir, err = expandPath(strings.TrimSpace(c.Paths.TempDir)); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMatching() {
	if c.Matching.Workers <= 0 {
		c.Matching.Workers = runtime.NumCPU()
	}
}

func (c *Config) normalizePrediction() {
	c.Prediction.SingleReference = strings.ToLower(strings.TrimSpace(c.Prediction.SingleReference))
	if c.Prediction.SingleReference == "" {
		c.Prediction.SingleReference = defaultSingleReference
	}
}

func (c *Config) normalizeDecoder() {
	c.Decoder.FFmpegBinary = strings.TrimSpace(c.Decoder.FFmpegBinary)
	if c.Decoder.FFmpegBinary == "" {
		if value, ok := os.LookupEnv("JINGLEID_FFMPEG"); ok {
			c.Decoder.FFmpegBinary = strings.TrimSpace(value)
		}
	}
	if c.Decoder.FFmpegBinary == "" {
		c.Decoder.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Decoder.TimeoutSeconds <= 0 {
		c.Decoder.TimeoutSeconds = defaultTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
