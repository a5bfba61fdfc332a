package fingerprint

import (
	"fmt"
	"math"
)

const (
	DefaultChunkLengthMS = 100
	DefaultFFTSize       = 2048
	DefaultFFTBinStart   = 4
	DefaultFFTBinEnd     = 214
	DefaultFFTBinStep    = 1
	DefaultPartitionSize = 6
)

// Params fixes every shape in the pipeline. Fingerprints produced under
// different Params are not comparable.
type Params struct {
	ChunkLengthMS int `json:"chunk_length_ms"`
	FFTSize       int `json:"fft_size"`
	FFTBinStart   int `json:"fft_bin_start"`
	FFTBinEnd     int `json:"fft_bin_end"`
	FFTBinStep    int `json:"fft_bin_step"`
	PartitionSize int `json:"partition_size"`
}

// DefaultParams returns the parameters used for opening jingle detection.
func DefaultParams() Params {
	return Params{
		ChunkLengthMS: DefaultChunkLengthMS,
		FFTSize:       DefaultFFTSize,
		FFTBinStart:   DefaultFFTBinStart,
		FFTBinEnd:     DefaultFFTBinEnd,
		FFTBinStep:    DefaultFFTBinStep,
		PartitionSize: DefaultPartitionSize,
	}
}

// Validate reports whether the parameters describe a usable pipeline.
func (p Params) Validate() error {
	switch {
	case p.ChunkLengthMS <= 0:
		return fmt.Errorf("%w: chunk_length_ms must be positive, got %d", ErrInvalidParams, p.ChunkLengthMS)
	case p.FFTSize <= 0:
		return fmt.Errorf("%w: fft_size must be positive, got %d", ErrInvalidParams, p.FFTSize)
	case p.FFTBinStep <= 0:
		return fmt.Errorf("%w: fft_bin_step must be positive, got %d", ErrInvalidParams, p.FFTBinStep)
	case p.PartitionSize <= 0:
		return fmt.Errorf("%w: partition_size must be positive, got %d", ErrInvalidParams, p.PartitionSize)
	case p.FFTBinStart < 0:
		return fmt.Errorf("%w: fft_bin_start must not be negative, got %d", ErrInvalidParams, p.FFTBinStart)
	case p.FFTBinEnd <= p.FFTBinStart:
		return fmt.Errorf("%w: fft_bin_end (%d) must be greater than fft_bin_start (%d)", ErrInvalidParams, p.FFTBinEnd, p.FFTBinStart)
	case p.FFTBinEnd > p.FFTSize:
		return fmt.Errorf("%w: fft_bin_end (%d) exceeds fft_size (%d)", ErrInvalidParams, p.FFTBinEnd, p.FFTSize)
	}
	if bins := p.Bins(); bins < p.PartitionSize {
		return fmt.Errorf("%w: %d cropped bins cannot fill %d bands", ErrInvalidParams, bins, p.PartitionSize)
	}
	return nil
}

// Bins returns the number of frequency bins kept after cropping.
func (p Params) Bins() int {
	if p.FFTBinStep <= 0 || p.FFTBinEnd <= p.FFTBinStart {
		return 0
	}
	return (p.FFTBinEnd - p.FFTBinStart + p.FFTBinStep - 1) / p.FFTBinStep
}

// BandWidth returns the number of cropped bins in each band. Bins past
// PartitionSize*BandWidth are ignored.
func (p Params) BandWidth() int {
	if p.PartitionSize <= 0 {
		return 0
	}
	return p.Bins() / p.PartitionSize
}

// ChunkSamples returns the analysis window length in samples for sampleRate.
func (p Params) ChunkSamples(sampleRate int) (int, error) {
	if sampleRate <= 0 {
		return 0, fmt.Errorf("%w: sample rate must be positive, got %d", ErrEmptyWaveform, sampleRate)
	}
	n := int(math.Round(float64(sampleRate) / 1000 * float64(p.ChunkLengthMS)))
	if n <= 0 {
		return 0, fmt.Errorf("%w: %d ms at %d Hz yields an empty chunk", ErrInvalidParams, p.ChunkLengthMS, sampleRate)
	}
	return n, nil
}

// Frames returns the number of analysis frames for numSamples samples.
func (p Params) Frames(numSamples, sampleRate int) (int, error) {
	chunk, err := p.ChunkSamples(sampleRate)
	if err != nil {
		return 0, err
	}
	return (numSamples + chunk - 1) / chunk, nil
}

// BinIndex maps a position on the cropped bin axis back to its FFT bin.
func (p Params) BinIndex(cropped int) int {
	return p.FFTBinStart + cropped*p.FFTBinStep
}

func (p Params) String() string {
	return fmt.Sprintf("chunk=%dms fft=%d bins=[%d:%d:%d] bands=%d",
		p.ChunkLengthMS, p.FFTSize, p.FFTBinStart, p.FFTBinEnd, p.FFTBinStep, p.PartitionSize)
}
