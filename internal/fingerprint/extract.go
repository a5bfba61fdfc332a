package fingerprint

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Fingerprint records, for every band and frame, the FFT bin that peaked.
// Values are stored row-major as [band][frame].
type Fingerprint struct {
	params Params
	bands  int
	frames int
	values []int32
}

// NewFingerprint wraps a flat row-major value slice. It is used when restoring
// fingerprints from storage.
func NewFingerprint(params Params, bands, frames int, values []int32) (*Fingerprint, error) {
	if bands != params.PartitionSize {
		return nil, fmt.Errorf("%w: fingerprint has %d bands, params expect %d", ErrInvalidParams, bands, params.PartitionSize)
	}
	if frames < 0 || len(values) != bands*frames {
		return nil, fmt.Errorf("%w: %d values do not fill a %dx%d fingerprint", ErrInvalidParams, len(values), bands, frames)
	}
	cp := make([]int32, len(values))
	copy(cp, values)
	return &Fingerprint{params: params, bands: bands, frames: frames, values: cp}, nil
}

func (f *Fingerprint) Params() Params { return f.params }

func (f *Fingerprint) Bands() int { return f.bands }

func (f *Fingerprint) Frames() int { return f.frames }

// At returns the peak bin for band at frame.
func (f *Fingerprint) At(band, frame int) int32 {
	return f.values[band*f.frames+frame]
}

// Values returns a copy of the row-major values.
func (f *Fingerprint) Values() []int32 {
	cp := make([]int32, len(f.values))
	copy(cp, f.values)
	return cp
}

// Row returns a copy of one band across all frames.
func (f *Fingerprint) Row(band int) []int32 {
	cp := make([]int32, f.frames)
	copy(cp, f.values[band*f.frames:(band+1)*f.frames])
	return cp
}

// Equal reports whether two fingerprints share params, shape and values.
func (f *Fingerprint) Equal(other *Fingerprint) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.params != other.params || f.bands != other.bands || f.frames != other.frames {
		return false
	}
	for i, v := range f.values {
		if other.values[i] != v {
			return false
		}
	}
	return true
}

// Extract splits the cropped bin axis into PartitionSize equal bands and keeps
// the absolute FFT bin of each band's maximum per frame. Trailing bins that do
// not fill a whole band are dropped. On ties the lowest bin wins.
func Extract(params Params, s *Spectrogram) (*Fingerprint, error) {
	if s == nil {
		return nil, ErrMissingSpectrogram
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if s.params != params {
		return nil, fmt.Errorf("%w: spectrogram built with %s, extracting with %s", ErrInvalidParams, s.params, params)
	}

	bins, frames := s.Bins(), s.Frames()
	bands := params.PartitionSize
	width := params.BandWidth()
	values := make([]int32, bands*frames)
	column := make([]float64, bins)
	for frame := 0; frame < frames; frame++ {
		mat.Col(column, frame, s.data)
		for band := 0; band < bands; band++ {
			lo := band * width
			peak := lo + floats.MaxIdx(column[lo:lo+width])
			values[band*frames+frame] = int32(params.BinIndex(peak))
		}
	}
	return &Fingerprint{params: params, bands: bands, frames: frames, values: values}, nil
}
