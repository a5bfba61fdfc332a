package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"jingleid/internal/config"
	"jingleid/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	dir        string
	configPath string
	checkpoint string
	ffmpeg     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	t.Setenv("JINGLEID_CHECKPOINT", "")
	t.Setenv("JINGLEID_FFMPEG", "")
	t.Setenv("NO_COLOR", "1")

	cfg := testsupport.NewConfig(t, testsupport.WithFakeFFmpeg())
	dir := testsupport.BaseDir(cfg)
	t.Setenv("HOME", dir)

	return &cliTestEnv{
		cfg:        cfg,
		dir:        dir,
		configPath: testsupport.WriteConfigFile(t, cfg),
		checkpoint: cfg.Paths.Checkpoint,
		ffmpeg:     cfg.Decoder.FFmpegBinary,
	}
}

// writeConfig rewrites the config file with a different ffmpeg binary.
func (e *cliTestEnv) writeConfig(t *testing.T, ffmpeg string) {
	t.Helper()
	cfg := *e.cfg
	cfg.Decoder.FFmpegBinary = ffmpeg
	e.configPath = testsupport.WriteConfigFile(t, &cfg)
}

// media creates a media file whose decoded audio is seeded noise.
func (e *cliTestEnv) media(t *testing.T, name string, seed uint64) string {
	t.Helper()
	path := filepath.Join(e.dir, "media", name)
	testsupport.WriteClip(t, path, seed)
	return path
}

// placeholder creates a media file the fake ffmpeg cannot decode.
func (e *cliTestEnv) placeholder(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.dir, "media", name)
	testsupport.WriteFile(t, path, 512)
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
