// Package decoder turns media files into waveforms by running ffmpeg.
//
// Each Decode call extracts a mono 8-bit PCM WAV clip into a scratch
// directory, reads it back, and removes it again on every exit path. Failures
// of any kind wrap ErrDecodeFailure and are never retried.
package decoder
