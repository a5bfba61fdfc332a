// Package fingerprint turns mono PCM waveforms into constellation fingerprints.
//
// The pipeline runs in three steps: Analyze chunks the waveform and computes a
// cropped magnitude spectrogram, Extract reduces each spectrogram frame to the
// peak bin of every frequency band, and Track sequences those steps for one
// audio clip with an explicit state machine. Fingerprints carry the Params
// they were produced under so callers can refuse to compare incompatible
// prints.
//
// The package is purely numeric: it never touches the filesystem. Decoding
// audio into a Waveform is the job of a Source implementation supplied by the
// caller (see internal/decoder).
package fingerprint
