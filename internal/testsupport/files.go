package testsupport

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"jingleid/internal/decoder"
	"jingleid/internal/fingerprint"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := min(int64(chunkSize), remaining)
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// NoiseWaveform returns seeded white noise at SampleRate.
func NoiseWaveform(t testing.TB, seed uint64, seconds int) *fingerprint.Waveform {
	t.Helper()

	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	samples := make([]float64, SampleRate*seconds)
	for i := range samples {
		samples[i] = r.Float64()*2 - 1
	}
	w, err := fingerprint.NewWaveform(samples, SampleRate)
	if err != nil {
		t.Fatalf("NewWaveform: %v", err)
	}
	return w
}

// WriteClip creates a placeholder media file at path plus the WAV fixture the
// fake ffmpeg decodes it to. The audio is ClipSeconds of noise seeded by seed.
func WriteClip(t testing.TB, path string, seed uint64) {
	t.Helper()

	WriteFile(t, path, 512)
	if err := decoder.WriteWAV(path+".wav", NoiseWaveform(t, seed, ClipSeconds)); err != nil {
		t.Fatalf("write clip fixture: %v", err)
	}
}
