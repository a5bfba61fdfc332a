package fingerprint

import "errors"

var (
	// ErrMissingWaveform indicates spectral analysis was requested before a waveform existed.
	ErrMissingWaveform = errors.New("missing waveform")
	// ErrMissingSpectrogram indicates extraction was requested before a spectrogram existed.
	ErrMissingSpectrogram = errors.New("missing spectrogram")
	// ErrFingerprintNotReady indicates a fingerprint was read before extraction completed.
	ErrFingerprintNotReady = errors.New("fingerprint not ready")
	// ErrInvalidPipelineState indicates a track step was invoked out of sequence.
	ErrInvalidPipelineState = errors.New("invalid pipeline state")
	// ErrInvalidParams indicates fingerprint parameters that cannot produce a fingerprint.
	ErrInvalidParams = errors.New("invalid fingerprint params")
	// ErrEmptyWaveform indicates a waveform without samples or without a usable sample rate.
	ErrEmptyWaveform = errors.New("empty waveform")
)
