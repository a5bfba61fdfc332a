package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"jingleid/internal/config"
	"jingleid/internal/decoder"
	"jingleid/internal/logging"
	"jingleid/internal/opening"
	"jingleid/internal/refdb"
)

type commandContext struct {
	configFlag     *string
	checkpointFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, checkpointFlag *string) *commandContext {
	return &commandContext{
		configFlag:     configFlag,
		checkpointFlag: checkpointFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := c.applyCheckpointFlag(cfg); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) applyCheckpointFlag(cfg *config.Config) error {
	if c.checkpointFlag == nil || strings.TrimSpace(*c.checkpointFlag) == "" {
		return nil
	}
	expanded, err := config.ExpandPath(strings.TrimSpace(*c.checkpointFlag))
	if err != nil {
		return fmt.Errorf("resolve checkpoint path: %w", err)
	}
	cfg.Paths.Checkpoint = expanded
	return nil
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) checkpointPath() string {
	if cfg := c.configValue(); cfg != nil {
		return cfg.Paths.Checkpoint
	}
	return ""
}

func (c *commandContext) newDecoder(logger *slog.Logger) *decoder.Decoder {
	cfg := c.configValue()
	return decoder.New(decoder.Options{
		Binary:     cfg.Decoder.FFmpegBinary,
		SampleRate: cfg.Decoder.SampleRate,
		Timeout:    cfg.DecoderTimeout(),
		TempDir:    cfg.Paths.TempDir,
		Logger:     logger,
	})
}

// window returns the configured clip window with any flag overrides applied.
func (c *commandContext) window(cmd *cobra.Command, seek, duration time.Duration) opening.Window {
	w := opening.Window{}
	w.Seek, w.Duration = c.configValue().DecodeWindow()
	if cmd.Flags().Changed("seek") {
		w.Seek = seek
	}
	if cmd.Flags().Changed("duration") {
		w.Duration = duration
	}
	return w
}

func (c *commandContext) openDatabase(ctx context.Context, logger *slog.Logger) (*refdb.Database, error) {
	cfg := c.configValue()
	policy, err := refdb.ParsePolicy(cfg.Prediction.SingleReference)
	if err != nil {
		return nil, err
	}
	path := cfg.Paths.Checkpoint
	db, err := refdb.OpenCheckpoint(ctx, path,
		refdb.WithScorer(cfg.Scorer()),
		refdb.WithWorkers(cfg.Matching.Workers),
		refdb.WithSingleReferencePolicy(policy),
		refdb.WithLogger(logger),
	)
	if err != nil {
		return nil, wrapCheckpointError(err, path)
	}
	return db, nil
}

func wrapCheckpointError(err error, path string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("no checkpoint at %s; fit references first with `jingleid fit`", path)
	case errors.Is(err, refdb.ErrCheckpointLocked):
		return fmt.Errorf("checkpoint %s is locked by another jingleid process: %w", path, err)
	default:
		return err
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
