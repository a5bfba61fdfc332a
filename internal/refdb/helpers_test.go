package refdb_test

import (
	"context"
	"testing"

	"jingleid/internal/fingerprint"
	"jingleid/internal/refdb"
	"jingleid/internal/testsupport"
)

// noiseWaveform returns seeded white noise.
func noiseWaveform(t *testing.T, seed uint64, seconds int) *fingerprint.Waveform {
	t.Helper()
	return testsupport.NoiseWaveform(t, seed, seconds)
}

// noiseTrack returns a FingerprintReady track built from seeded white noise.
func noiseTrack(t *testing.T, seed uint64, seconds int) *fingerprint.Track {
	t.Helper()
	w := noiseWaveform(t, seed, seconds)
	track, err := fingerprint.NewTrack(fingerprint.DefaultParams(), fingerprint.WaveformSource(w))
	if err != nil {
		t.Fatalf("NewTrack: %v", err)
	}
	if err := track.Preprocess(context.Background()); err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	return track
}

func noiseEntry(t *testing.T, label string, seed uint64) refdb.Entry {
	t.Helper()
	entry, err := refdb.EntryFromTrack(label, noiseTrack(t, seed, 5))
	if err != nil {
		t.Fatalf("EntryFromTrack: %v", err)
	}
	return entry
}

func newDatabase(t *testing.T, opts ...refdb.Option) *refdb.Database {
	t.Helper()
	db, err := refdb.New(fingerprint.DefaultParams(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return db
}

func fittedDatabase(t *testing.T, opts ...refdb.Option) *refdb.Database {
	t.Helper()
	db := newDatabase(t, opts...)
	entries := []refdb.Entry{
		noiseEntry(t, "Season 1 Opening", 1),
		noiseEntry(t, "Season 2 Opening", 2),
		noiseEntry(t, "Season 3 Opening", 3),
	}
	if err := db.Fit(entries); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	return db
}
