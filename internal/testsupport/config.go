package testsupport

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"jingleid/internal/config"
)

// SampleRate is the decode rate used by test configurations and clips.
const SampleRate = 8000

// ClipSeconds is the clip window used by test configurations and clips.
const ClipSeconds = 5

// fakeFFmpegScript copies "<input>.wav" to the output argument, which
// directly precedes the trailing -y.
const fakeFFmpegScript = `#!/bin/sh
in=""
out=""
prev=""
for arg in "$@"; do
	if [ "$prev" = "-i" ]; then in="$arg"; fi
	if [ "$arg" = "-y" ]; then out="$prev"; fi
	prev="$arg"
done
if [ ! -f "$in.wav" ]; then
	echo "$in: Invalid data found when processing input" >&2
	exit 1
fi
cp "$in.wav" "$out"
`

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It decodes short 8 kHz clips and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.Checkpoint = filepath.Join(base, "data", "openings.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.TempDir = filepath.Join(base, "tmp")
	cfgVal.Matching.Workers = 2
	cfgVal.Decoder.SampleRate = SampleRate
	cfgVal.Decoder.SeekSeconds = 0
	cfgVal.Decoder.DurationSeconds = ClipSeconds
	cfgVal.Decoder.TimeoutSeconds = 30
	cfgVal.Logging.Level = "warn"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithFakeFFmpeg installs a shell script standing in for ffmpeg. It decodes a
// media file by copying the WAV fixture written next to it by WriteClip.
func WithFakeFFmpeg() ConfigOption {
	return func(b *configBuilder) {
		if runtime.GOOS == "windows" {
			b.t.Skip("fake ffmpeg is a shell script")
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "ffmpeg")
		if err := os.WriteFile(target, []byte(fakeFFmpegScript), 0o755); err != nil {
			b.t.Fatalf("write fake ffmpeg: %v", err)
		}
		b.cfg.Decoder.FFmpegBinary = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}

// WriteConfigFile stores cfg as TOML inside its base directory and returns
// the file path.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
