package fingerprint

import (
	"fmt"
	"time"
)

// Waveform is an immutable mono sample buffer.
type Waveform struct {
	samples    []float64
	sampleRate int
}

// NewWaveform copies samples into a waveform recorded at sampleRate Hz.
func NewWaveform(samples []float64, sampleRate int) (*Waveform, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", ErrEmptyWaveform, sampleRate)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrEmptyWaveform)
	}
	cp := make([]float64, len(samples))
	copy(cp, samples)
	return &Waveform{samples: cp, sampleRate: sampleRate}, nil
}

// NewWaveformU8 normalizes unsigned 8-bit PCM into [-1, 1).
func NewWaveformU8(raw []uint8, sampleRate int) (*Waveform, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", ErrEmptyWaveform, sampleRate)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrEmptyWaveform)
	}
	samples := make([]float64, len(raw))
	for i, b := range raw {
		samples[i] = NormalizeU8(b)
	}
	return &Waveform{samples: samples, sampleRate: sampleRate}, nil
}

// NormalizeU8 converts one unsigned 8-bit PCM sample to a float amplitude.
func NormalizeU8(b uint8) float64 {
	return (float64(b) - 128) / 128
}

func (w *Waveform) Len() int { return len(w.samples) }

func (w *Waveform) SampleRate() int { return w.sampleRate }

// At returns sample i.
func (w *Waveform) At(i int) float64 { return w.samples[i] }

// Samples returns a copy of the sample buffer.
func (w *Waveform) Samples() []float64 {
	cp := make([]float64, len(w.samples))
	copy(cp, w.samples)
	return cp
}

// Duration reports the playback length of the waveform.
func (w *Waveform) Duration() time.Duration {
	return time.Duration(float64(len(w.samples)) / float64(w.sampleRate) * float64(time.Second))
}
