package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"jingleid/internal/fingerprint"
	"jingleid/internal/matching"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory locations.
type Paths struct {
	Checkpoint string `toml:"checkpoint"`
	LogDir     string `toml:"log_dir"`
	TempDir    string `toml:"temp_dir"`
}

// Fingerprint mirrors fingerprint.Params. Changing any value invalidates
// existing checkpoints.
type Fingerprint struct {
	ChunkLengthMS int `toml:"chunk_length_ms"`
	FFTSize       int `toml:"fft_size"`
	FFTBinStart   int `toml:"fft_bin_start"`
	FFTBinEnd     int `toml:"fft_bin_end"`
	FFTBinStep    int `toml:"fft_bin_step"`
	PartitionSize int `toml:"partition_size"`
}

// Matching contains scorer tuning and prediction parallelism.
type Matching struct {
	MatchLength int `toml:"match_length"`
	LookForward int `toml:"look_forward"`
	// Workers bounds concurrent reference scoring. 0 uses one worker per CPU.
	Workers int `toml:"workers"`
}

// Prediction contains how prediction results are judged.
type Prediction struct {
	LowConfidenceThreshold float64 `toml:"low_confidence_threshold"`
	// SingleReference is "score" (confidence equals the score) or "reject".
	SingleReference string `toml:"single_reference"`
}

// Decoder contains the ffmpeg invocation settings.
type Decoder struct {
	FFmpegBinary    string  `toml:"ffmpeg_binary"`
	SampleRate      int     `toml:"sample_rate"`
	SeekSeconds     float64 `toml:"seek_seconds"`
	DurationSeconds float64 `toml:"duration_seconds"`
	TimeoutSeconds  int     `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for jingleid.
//
// Configuration sections by subsystem:
//   - Paths: checkpoint location, log and scratch directories
//   - Fingerprint: spectral analysis and band partitioning
//   - Matching: motif length, time tolerance and worker count
//   - Prediction: low confidence threshold and single reference policy
//   - Decoder: ffmpeg binary, sample rate and clip window
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Fingerprint Fingerprint `toml:"fingerprint"`
	Matching    Matching    `toml:"matching"`
	Prediction  Prediction  `toml:"prediction"`
	Decoder     Decoder     `toml:"decoder"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("jingleid.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log, scratch and checkpoint directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.TempDir, filepath.Dir(c.Paths.Checkpoint)}
	if c.Paths.LogDir != "" {
		dirs = append(dirs, c.Paths.LogDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Params returns the fingerprint parameters.
func (c *Config) Params() fingerprint.Params {
	return fingerprint.Params{
		ChunkLengthMS: c.Fingerprint.ChunkLengthMS,
		FFTSize:       c.Fingerprint.FFTSize,
		FFTBinStart:   c.Fingerprint.FFTBinStart,
		FFTBinEnd:     c.Fingerprint.FFTBinEnd,
		FFTBinStep:    c.Fingerprint.FFTBinStep,
		PartitionSize: c.Fingerprint.PartitionSize,
	}
}

// Scorer returns the matching settings.
func (c *Config) Scorer() matching.Scorer {
	return matching.Scorer{
		MatchLength: c.Matching.MatchLength,
		LookForward: c.Matching.LookForward,
	}
}

// DecodeWindow returns the clip offset and length handed to the decoder.
func (c *Config) DecodeWindow() (seek, duration time.Duration) {
	return secondsToDuration(c.Decoder.SeekSeconds), secondsToDuration(c.Decoder.DurationSeconds)
}

// DecoderTimeout bounds a single ffmpeg run.
func (c *Config) DecoderTimeout() time.Duration {
	return time.Duration(c.Decoder.TimeoutSeconds) * time.Second
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultTempDir() string {
	return filepath.Join(os.TempDir(), "jingleid")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
