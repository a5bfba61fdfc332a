// Package matching scores how well a query fingerprint aligns with a
// reference fingerprint.
//
// A score is the fraction of query anchors whose short constellation motif is
// found, within a small time tolerance, somewhere in the reference.
package matching

import (
	"errors"
	"fmt"

	"jingleid/internal/fingerprint"
)

const (
	DefaultMatchLength = 4
	DefaultLookForward = 1
)

var (
	// ErrIncompatibleFingerprint indicates fingerprints that cannot be compared.
	ErrIncompatibleFingerprint = errors.New("incompatible fingerprints")
	// ErrInvalidScorer indicates scorer settings outside their domain.
	ErrInvalidScorer = errors.New("invalid scorer settings")
)

// Scorer compares fingerprints. MatchLength is the number of constellation
// points in each motif; LookForward is the frame tolerance when confirming a
// point in the reference.
type Scorer struct {
	MatchLength int
	LookForward int
}

// DefaultScorer returns the scorer used for opening detection.
func DefaultScorer() Scorer {
	return Scorer{MatchLength: DefaultMatchLength, LookForward: DefaultLookForward}
}

// Validate reports whether the scorer settings are usable.
func (s Scorer) Validate() error {
	if s.MatchLength < 1 {
		return fmt.Errorf("%w: match_length must be at least 1, got %d", ErrInvalidScorer, s.MatchLength)
	}
	if s.LookForward < 0 {
		return fmt.Errorf("%w: look_forward must not be negative, got %d", ErrInvalidScorer, s.LookForward)
	}
	return nil
}

// Point is one constellation point of a motif.
type Point struct {
	Band  int
	Frame int
	Value int32
}

// Motif returns the MatchLength points starting at (band, frame) of fp.
// Points advance one band at a time; stepping past the last band wraps to
// band 0 of the next frame, so band and frame form one continuous index. ok
// is false when the motif runs past the last frame.
func (s Scorer) Motif(fp *fingerprint.Fingerprint, band, frame int) ([]Point, bool) {
	bands := fp.Bands()
	points := make([]Point, 0, s.MatchLength)
	for offset := 0; offset < s.MatchLength; offset++ {
		linear := band + offset
		pb, pf := linear%bands, frame+linear/bands
		if pf >= fp.Frames() {
			return nil, false
		}
		points = append(points, Point{Band: pb, Frame: pf, Value: fp.At(pb, pf)})
	}
	return points, true
}

// Score returns the fraction in [0, 1] of query anchors confirmed in ref.
// A query too short to hold one anchor scores 0.
func (s Scorer) Score(query, ref *fingerprint.Fingerprint) (float64, error) {
	if query == nil || ref == nil {
		return 0, fingerprint.ErrFingerprintNotReady
	}
	if err := s.Validate(); err != nil {
		return 0, err
	}
	if query.Bands() != ref.Bands() {
		return 0, fmt.Errorf("%w: query has %d bands, reference has %d", ErrIncompatibleFingerprint, query.Bands(), ref.Bands())
	}

	bands := query.Bands()
	anchorFrames := query.Frames() - s.LookForward
	if bands == 0 || anchorFrames <= 0 {
		return 0, nil
	}
	candidates := ref.Frames() - s.LookForward

	matches := 0
	for frame := 0; frame < anchorFrames; frame++ {
		for band := 0; band < bands; band++ {
			points, ok := s.Motif(query, band, frame)
			if !ok {
				continue
			}
			anchor := query.At(band, frame)
			for r := 0; r < candidates; r++ {
				if ref.At(band, r) != anchor {
					continue
				}
				if s.confirmed(ref, points, r) {
					matches++
					break
				}
			}
		}
	}
	return float64(matches) / float64(bands*anchorFrames), nil
}

// confirmed reports whether every point appears in ref at its band within
// frames [r, r+LookForward].
func (s Scorer) confirmed(ref *fingerprint.Fingerprint, points []Point, r int) bool {
	for _, p := range points {
		found := false
		for shift := 0; shift <= s.LookForward; shift++ {
			if ref.At(p.Band, r+shift) == p.Value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
