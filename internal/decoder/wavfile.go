package decoder

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"jingleid/internal/fingerprint"
)

// WriteWAV stores w as unsigned 8-bit mono PCM, the format Decode reads back.
func WriteWAV(path string, w *fingerprint.Waveform) error {
	if w == nil {
		return fingerprint.ErrMissingWaveform
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer file.Close()

	data := make([]int, w.Len())
	for i := range data {
		data[i] = quantizeU8(w.At(i))
	}
	enc := wav.NewEncoder(file, w.SampleRate(), 8, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: w.SampleRate()},
		Data:           data,
		SourceBitDepth: 8,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return file.Close()
}

// quantizeU8 inverts fingerprint.NormalizeU8, clamping out-of-range amplitudes.
func quantizeU8(x float64) int {
	v := math.Round(x*128 + 128)
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return int(v)
	}
}
