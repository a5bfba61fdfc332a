package fingerprint

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// Spectrogram holds cropped FFT magnitudes indexed [bin, frame].
type Spectrogram struct {
	params       Params
	sampleRate   int
	chunkSamples int
	data         *mat.Dense
}

func (s *Spectrogram) Params() Params { return s.params }

// Bins returns the number of cropped frequency bins (rows).
func (s *Spectrogram) Bins() int {
	r, _ := s.data.Dims()
	return r
}

// Frames returns the number of analysis frames (columns).
func (s *Spectrogram) Frames() int {
	_, c := s.data.Dims()
	return c
}

// At returns the magnitude of cropped bin for frame.
func (s *Spectrogram) At(bin, frame int) float64 { return s.data.At(bin, frame) }

// Matrix exposes the magnitudes as a read-only gonum matrix.
func (s *Spectrogram) Matrix() mat.Matrix { return s.data }

func (s *Spectrogram) SampleRate() int { return s.sampleRate }

func (s *Spectrogram) ChunkSamples() int { return s.chunkSamples }

// Analyzer computes spectrograms with a reusable FFT plan. An Analyzer is not
// safe for concurrent use.
type Analyzer struct {
	params Params
	fft    *fourier.FFT
	window []float64
	coeffs []complex128
}

// NewAnalyzer prepares an FFT plan of params.FFTSize points.
func NewAnalyzer(params Params) (*Analyzer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{
		params: params,
		fft:    fourier.NewFFT(params.FFTSize),
		window: make([]float64, params.FFTSize),
		coeffs: make([]complex128, params.FFTSize/2+1),
	}, nil
}

// Analyze is a convenience wrapper that builds a one-shot Analyzer.
func Analyze(params Params, w *Waveform) (*Spectrogram, error) {
	a, err := NewAnalyzer(params)
	if err != nil {
		return nil, err
	}
	return a.Analyze(w)
}

// Analyze splits w into non-overlapping chunks and keeps the cropped FFT
// magnitude of each. The final chunk may be short and is zero padded; chunks
// longer than the FFT size are truncated to it.
func (a *Analyzer) Analyze(w *Waveform) (*Spectrogram, error) {
	if w == nil {
		return nil, ErrMissingWaveform
	}
	if w.Len() == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrEmptyWaveform)
	}
	chunk, err := a.params.ChunkSamples(w.SampleRate())
	if err != nil {
		return nil, err
	}
	frames := (w.Len() + chunk - 1) / chunk
	bins := a.params.Bins()
	data := mat.NewDense(bins, frames, nil)

	n := a.params.FFTSize
	for frame := 0; frame < frames; frame++ {
		start := frame * chunk
		end := min(start+chunk, w.Len(), start+n)
		clear(a.window)
		copy(a.window, w.samples[start:end])
		a.fft.Coefficients(a.coeffs, a.window)
		for row := 0; row < bins; row++ {
			data.Set(row, frame, a.magnitude(a.params.BinIndex(row)))
		}
	}

	return &Spectrogram{
		params:       a.params,
		sampleRate:   w.SampleRate(),
		chunkSamples: chunk,
		data:         data,
	}, nil
}

// magnitude returns |X[k]| of the full n-point transform. Bins above n/2
// mirror their conjugates because the input is real.
func (a *Analyzer) magnitude(k int) float64 {
	if half := a.params.FFTSize / 2; k > half {
		k = a.params.FFTSize - k
	}
	return cmplx.Abs(a.coeffs[k])
}
