package fingerprint

import (
	"context"
	"fmt"
	"sync"
)

// State is a track's position in the fingerprint pipeline.
type State int

const (
	StateCreated State = iota
	StateWaveformReady
	StateSpectrogramReady
	StateFingerprintReady
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateWaveformReady:
		return "waveform_ready"
	case StateSpectrogramReady:
		return "spectrogram_ready"
	case StateFingerprintReady:
		return "fingerprint_ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Source yields the waveform a track is built from.
type Source interface {
	Load(ctx context.Context) (*Waveform, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*Waveform, error)

func (f SourceFunc) Load(ctx context.Context) (*Waveform, error) { return f(ctx) }

// WaveformSource serves an in-memory waveform.
func WaveformSource(w *Waveform) Source {
	return SourceFunc(func(context.Context) (*Waveform, error) {
		if w == nil {
			return nil, ErrMissingWaveform
		}
		return w, nil
	})
}

// Track owns one clip's pipeline state. Steps only move forward; calling a
// step that already completed is a no-op, and calling one whose input is not
// ready fails with ErrInvalidPipelineState.
type Track struct {
	mu          sync.Mutex
	params      Params
	source      Source
	state       State
	waveform    *Waveform
	spectrogram *Spectrogram
	fingerprint *Fingerprint
}

// NewTrack binds params and a waveform source to a new track.
func NewTrack(params Params, source Source) (*Track, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Track{params: params, source: source}, nil
}

// NewTrackFromFingerprint wraps an existing fingerprint as a finished track.
func NewTrackFromFingerprint(fp *Fingerprint) (*Track, error) {
	if fp == nil {
		return nil, ErrFingerprintNotReady
	}
	return &Track{params: fp.params, state: StateFingerprintReady, fingerprint: fp}, nil
}

func (t *Track) Params() Params { return t.params }

func (t *Track) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Waveform returns the loaded waveform, or nil before Load.
func (t *Track) Waveform() *Waveform {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.waveform
}

// Spectrogram returns the spectrogram, or nil before Analyze.
func (t *Track) Spectrogram() *Spectrogram {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spectrogram
}

// Fingerprint returns the fingerprint once the track is FingerprintReady.
func (t *Track) Fingerprint() (*Fingerprint, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateFingerprintReady {
		return nil, fmt.Errorf("%w: track is %s", ErrFingerprintNotReady, t.state)
	}
	return t.fingerprint, nil
}

// Load reads the waveform from the track's source. The source is read
// without holding the track lock; if another Load finished first, its
// waveform is kept.
func (t *Track) Load(ctx context.Context) error {
	t.mu.Lock()
	if t.state >= StateWaveformReady {
		t.mu.Unlock()
		return nil
	}
	source := t.source
	t.mu.Unlock()
	if source == nil {
		return fmt.Errorf("load: %w: track has no source", ErrMissingWaveform)
	}

	w, err := source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if w == nil {
		return fmt.Errorf("load: %w: source returned nothing", ErrMissingWaveform)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state >= StateWaveformReady {
		return nil
	}
	t.waveform = w
	t.state = StateWaveformReady
	return nil
}

// Analyze computes the spectrogram of the loaded waveform.
func (t *Track) Analyze() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state >= StateSpectrogramReady {
		return nil
	}
	if t.state < StateWaveformReady {
		return fmt.Errorf("analyze: %w: %w (track is %s)", ErrInvalidPipelineState, ErrMissingWaveform, t.state)
	}
	spec, err := Analyze(t.params, t.waveform)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	t.spectrogram = spec
	t.state = StateSpectrogramReady
	return nil
}

// Extract reduces the spectrogram to a fingerprint.
func (t *Track) Extract() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state >= StateFingerprintReady {
		return nil
	}
	if t.state < StateSpectrogramReady {
		return fmt.Errorf("extract: %w: %w (track is %s)", ErrInvalidPipelineState, ErrMissingSpectrogram, t.state)
	}
	fp, err := Extract(t.params, t.spectrogram)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	t.fingerprint = fp
	t.state = StateFingerprintReady
	return nil
}

// Preprocess runs Load, Analyze and Extract in order.
func (t *Track) Preprocess(ctx context.Context) error {
	if err := t.Load(ctx); err != nil {
		return err
	}
	if err := t.Analyze(); err != nil {
		return err
	}
	return t.Extract()
}
