package config

import (
	"jingleid/internal/fingerprint"
	"jingleid/internal/matching"
)

const (
	defaultConfigPath             = "~/.config/jingleid/config.toml"
	defaultCheckpointPath         = "~/.local/share/jingleid/openings.db"
	defaultLogDir                 = "~/.local/share/jingleid/logs"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultFFmpegBinary           = "ffmpeg"
	defaultSampleRate             = 44100
	defaultDurationSeconds        = 15
	defaultTimeoutSeconds         = 120
	defaultLowConfidenceThreshold = 0.10
	defaultSingleReference        = "score"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	params := fingerprint.DefaultParams()
	return Config{
		Paths: Paths{
			Checkpoint: defaultCheckpointPath,
			LogDir:     defaultLogDir,
		},
		Fingerprint: Fingerprint{
			ChunkLengthMS: params.ChunkLengthMS,
			FFTSize:       params.FFTSize,
			FFTBinStart:   params.FFTBinStart,
			FFTBinEnd:     params.FFTBinEnd,
			FFTBinStep:    params.FFTBinStep,
			PartitionSize: params.PartitionSize,
		},
		Matching: Matching{
			MatchLength: matching.DefaultMatchLength,
			LookForward: matching.DefaultLookForward,
		},
		Prediction: Prediction{
			LowConfidenceThreshold: defaultLowConfidenceThreshold,
			SingleReference:        defaultSingleReference,
		},
		Decoder: Decoder{
			SampleRate:      defaultSampleRate,
			DurationSeconds: defaultDurationSeconds,
			TimeoutSeconds:  defaultTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
