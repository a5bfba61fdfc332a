package fingerprint_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"jingleid/internal/fingerprint"
)

type countingSource struct {
	loads    atomic.Int32
	waveform *fingerprint.Waveform
	err      error
}

func (s *countingSource) Load(context.Context) (*fingerprint.Waveform, error) {
	s.loads.Add(1)
	return s.waveform, s.err
}

// gatedSource blocks in Load until release is closed.
type gatedSource struct {
	started  chan struct{}
	release  chan struct{}
	waveform *fingerprint.Waveform
}

func (s *gatedSource) Load(ctx context.Context) (*fingerprint.Waveform, error) {
	close(s.started)
	select {
	case <-s.release:
		return s.waveform, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newTestTrack(t *testing.T, src fingerprint.Source) *fingerprint.Track {
	t.Helper()
	track, err := fingerprint.NewTrack(fingerprint.DefaultParams(), src)
	if err != nil {
		t.Fatalf("NewTrack: %v", err)
	}
	return track
}

func TestTrackPreprocessReachesFingerprintReady(t *testing.T) {
	src := &countingSource{waveform: sineWaveform(t, 440, 8000, 3, 0.5)}
	track := newTestTrack(t, src)
	if track.State() != fingerprint.StateCreated {
		t.Fatalf("initial state = %s", track.State())
	}
	if err := track.Preprocess(context.Background()); err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if track.State() != fingerprint.StateFingerprintReady {
		t.Fatalf("state = %s, want fingerprint_ready", track.State())
	}
	fp, err := track.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fp.Bands() != 6 || fp.Frames() != 30 {
		t.Fatalf("fingerprint shape = (%d, %d), want (6, 30)", fp.Bands(), fp.Frames())
	}
	if track.Waveform() == nil || track.Spectrogram() == nil {
		t.Fatal("expected intermediate artifacts to be retained")
	}
}

func TestTrackExtractBeforeAnalyzeFails(t *testing.T) {
	track := newTestTrack(t, &countingSource{waveform: sineWaveform(t, 440, 8000, 1, 0.5)})
	if err := track.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	err := track.Extract()
	if !errors.Is(err, fingerprint.ErrInvalidPipelineState) {
		t.Fatalf("Extract before Analyze error = %v, want ErrInvalidPipelineState", err)
	}
	if !errors.Is(err, fingerprint.ErrMissingSpectrogram) {
		t.Fatalf("Extract before Analyze error = %v, want ErrMissingSpectrogram", err)
	}
	if track.State() != fingerprint.StateWaveformReady {
		t.Fatalf("failed step must not change state, got %s", track.State())
	}
}

func TestTrackAnalyzeBeforeLoadFails(t *testing.T) {
	track := newTestTrack(t, &countingSource{})
	err := track.Analyze()
	if !errors.Is(err, fingerprint.ErrInvalidPipelineState) || !errors.Is(err, fingerprint.ErrMissingWaveform) {
		t.Fatalf("Analyze before Load error = %v", err)
	}
}

func TestTrackFingerprintNotReady(t *testing.T) {
	track := newTestTrack(t, &countingSource{waveform: sineWaveform(t, 440, 8000, 1, 0.5)})
	if _, err := track.Fingerprint(); !errors.Is(err, fingerprint.ErrFingerprintNotReady) {
		t.Fatalf("Fingerprint before Extract error = %v", err)
	}
}

func TestTrackStepsAreNoOpsOnceReached(t *testing.T) {
	src := &countingSource{waveform: sineWaveform(t, 440, 8000, 1, 0.5)}
	track := newTestTrack(t, src)
	ctx := context.Background()
	if err := track.Preprocess(ctx); err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	first, _ := track.Fingerprint()

	for i := 0; i < 2; i++ {
		if err := track.Load(ctx); err != nil {
			t.Fatalf("repeat Load: %v", err)
		}
		if err := track.Analyze(); err != nil {
			t.Fatalf("repeat Analyze: %v", err)
		}
		if err := track.Extract(); err != nil {
			t.Fatalf("repeat Extract: %v", err)
		}
		if err := track.Preprocess(ctx); err != nil {
			t.Fatalf("repeat Preprocess: %v", err)
		}
	}
	if got := src.loads.Load(); got != 1 {
		t.Fatalf("source loaded %d times, want 1", got)
	}
	second, _ := track.Fingerprint()
	if first != second {
		t.Fatal("repeat steps must not rebuild the fingerprint")
	}
}

func TestTrackStateAvailableDuringSlowLoad(t *testing.T) {
	src := &gatedSource{
		started:  make(chan struct{}),
		release:  make(chan struct{}),
		waveform: sineWaveform(t, 440, 8000, 1, 0.5),
	}
	track := newTestTrack(t, src)

	done := make(chan error, 1)
	go func() { done <- track.Load(context.Background()) }()
	<-src.started

	states := make(chan fingerprint.State, 1)
	go func() { states <- track.State() }()
	select {
	case state := <-states:
		if state != fingerprint.StateCreated {
			t.Fatalf("state during load = %s, want created", state)
		}
	case <-time.After(5 * time.Second):
		close(src.release)
		t.Fatal("State blocked while the source was loading")
	}

	close(src.release)
	if err := <-done; err != nil {
		t.Fatalf("Load: %v", err)
	}
	if track.State() != fingerprint.StateWaveformReady {
		t.Fatalf("state = %s, want waveform_ready", track.State())
	}
	if track.Waveform() != src.waveform {
		t.Fatal("loaded waveform not stored")
	}
}

func TestTrackLoadPropagatesSourceError(t *testing.T) {
	boom := errors.New("decoder exploded")
	track := newTestTrack(t, &countingSource{err: boom})
	if err := track.Preprocess(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Preprocess error = %v, want wrapped source error", err)
	}
	if track.State() != fingerprint.StateCreated {
		t.Fatalf("state = %s, want created", track.State())
	}
}

func TestTrackWithoutSource(t *testing.T) {
	track := newTestTrack(t, nil)
	if err := track.Load(context.Background()); !errors.Is(err, fingerprint.ErrMissingWaveform) {
		t.Fatalf("Load without source error = %v", err)
	}
}

func TestTrackFromFingerprint(t *testing.T) {
	fp := mustFingerprint(t, fingerprint.DefaultParams(), sineWaveform(t, 440, 8000, 1, 0.5))
	track, err := fingerprint.NewTrackFromFingerprint(fp)
	if err != nil {
		t.Fatalf("NewTrackFromFingerprint: %v", err)
	}
	if track.State() != fingerprint.StateFingerprintReady {
		t.Fatalf("state = %s", track.State())
	}
	got, err := track.Fingerprint()
	if err != nil || !got.Equal(fp) {
		t.Fatalf("Fingerprint() = %v, %v", got, err)
	}
	if _, err := fingerprint.NewTrackFromFingerprint(nil); !errors.Is(err, fingerprint.ErrFingerprintNotReady) {
		t.Fatalf("nil fingerprint error = %v", err)
	}
}

func TestPreprocessIsDeterministic(t *testing.T) {
	w := noiseWaveform(t, 8000*2, 8000, 99)
	var prints []*fingerprint.Fingerprint
	for i := 0; i < 3; i++ {
		track := newTestTrack(t, fingerprint.WaveformSource(w))
		if err := track.Preprocess(context.Background()); err != nil {
			t.Fatalf("Preprocess: %v", err)
		}
		fp, _ := track.Fingerprint()
		prints = append(prints, fp)
	}
	for i := 1; i < len(prints); i++ {
		if !prints[0].Equal(prints[i]) {
			t.Fatalf("run %d produced a different fingerprint", i)
		}
	}
}
