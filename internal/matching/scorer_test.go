package matching_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"jingleid/internal/fingerprint"
	"jingleid/internal/matching"
)

// fromRows builds a fingerprint whose rows are bands and columns are frames.
func fromRows(t *testing.T, rows ...[]int32) *fingerprint.Fingerprint {
	t.Helper()
	params := fingerprint.DefaultParams()
	params.PartitionSize = len(rows)
	frames := len(rows[0])
	values := make([]int32, 0, len(rows)*frames)
	for _, row := range rows {
		if len(row) != frames {
			t.Fatalf("ragged rows")
		}
		values = append(values, row...)
	}
	fp, err := fingerprint.NewFingerprint(params, len(rows), frames, values)
	if err != nil {
		t.Fatalf("NewFingerprint: %v", err)
	}
	return fp
}

func randomFingerprint(t *testing.T, bands, frames int, seed uint64) *fingerprint.Fingerprint {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed+1))
	rows := make([][]int32, bands)
	for b := range rows {
		rows[b] = make([]int32, frames)
		for f := range rows[b] {
			rows[b][f] = int32(4 + b*35 + rng.IntN(35))
		}
	}
	return fromRows(t, rows...)
}

func mustScore(t *testing.T, s matching.Scorer, a, b *fingerprint.Fingerprint) float64 {
	t.Helper()
	score, err := s.Score(a, b)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	return score
}

func TestSelfMatchScoresOne(t *testing.T) {
	scorer := matching.DefaultScorer()
	for seed := uint64(1); seed <= 5; seed++ {
		fp := randomFingerprint(t, 6, 40, seed)
		if got := mustScore(t, scorer, fp, fp); got != 1 {
			t.Fatalf("seed %d: self score = %v, want 1", seed, got)
		}
	}
}

func TestSelfMatchIsNeverBeaten(t *testing.T) {
	scorer := matching.DefaultScorer()
	query := randomFingerprint(t, 6, 50, 11)
	self := mustScore(t, scorer, query, query)
	for seed := uint64(20); seed < 30; seed++ {
		other := randomFingerprint(t, 6, 50, seed)
		if got := mustScore(t, scorer, query, other); got > self {
			t.Fatalf("seed %d: score against other %v exceeds self score %v", seed, got, self)
		}
	}
}

// The motif walks bands first and carries into the next frame when it runs
// past the last band. Recognition results depend on this geometry.
func TestMotifWrapsBandIntoNextFrame(t *testing.T) {
	a := fromRows(t,
		[]int32{10, 11, 12},
		[]int32{20, 21, 22},
		[]int32{30, 31, 32},
	)

	tests := []struct {
		name   string
		scorer matching.Scorer
		band   int
		frame  int
		want   []matching.Point
		ok     bool
	}{
		{
			name:   "no wrap",
			scorer: matching.Scorer{MatchLength: 3},
			band:   0, frame: 1,
			want: []matching.Point{{0, 1, 11}, {1, 1, 21}, {2, 1, 31}},
			ok:   true,
		},
		{
			name:   "single wrap",
			scorer: matching.Scorer{MatchLength: 3},
			band:   2, frame: 0,
			want: []matching.Point{{2, 0, 30}, {0, 1, 11}, {1, 1, 21}},
			ok:   true,
		},
		{
			name:   "double wrap",
			scorer: matching.Scorer{MatchLength: 5},
			band:   2, frame: 0,
			want: []matching.Point{{2, 0, 30}, {0, 1, 11}, {1, 1, 21}, {2, 1, 31}, {0, 2, 12}},
			ok:   true,
		},
		{
			name:   "runs past last frame",
			scorer: matching.Scorer{MatchLength: 2},
			band:   2, frame: 2,
			ok: false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.scorer.Motif(a, tc.band, tc.frame)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("motif = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("point %d = %+v, want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestScoreUsesWrappedMotif(t *testing.T) {
	query := fromRows(t,
		[]int32{10, 11, 12},
		[]int32{20, 21, 22},
		[]int32{30, 31, 32},
	)
	// Only the anchor at (band 2, frame 0) matches, and only because its
	// motif continues into frame 1 of bands 0 and 1.
	ref := fromRows(t,
		[]int32{11},
		[]int32{21},
		[]int32{30},
	)
	scorer := matching.Scorer{MatchLength: 3, LookForward: 0}
	if got, want := mustScore(t, scorer, query, ref), 1.0/9; math.Abs(got-want) > 1e-12 {
		t.Fatalf("score = %v, want %v", got, want)
	}
}

func TestScoreLookForwardTolerance(t *testing.T) {
	query := fromRows(t,
		[]int32{1, 2, 3, 4},
		[]int32{5, 6, 7, 8},
	)
	// Band 1 lags the query by one frame.
	ref := fromRows(t,
		[]int32{1, 2, 3, 4},
		[]int32{9, 5, 6, 7},
	)
	tests := []struct {
		lookForward int
		want        float64
	}{
		{lookForward: 1, want: 5.0 / 6},
		{lookForward: 0, want: 3.0 / 8},
	}
	for _, tc := range tests {
		scorer := matching.Scorer{MatchLength: 2, LookForward: tc.lookForward}
		if got := mustScore(t, scorer, query, ref); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("look_forward=%d: score = %v, want %v", tc.lookForward, got, tc.want)
		}
	}
}

func TestScoreShortQueryIsZero(t *testing.T) {
	query := randomFingerprint(t, 6, 1, 3)
	ref := randomFingerprint(t, 6, 10, 4)
	if got := mustScore(t, matching.DefaultScorer(), query, ref); got != 0 {
		t.Fatalf("score = %v, want 0", got)
	}
}

func TestScoreIsBounded(t *testing.T) {
	scorer := matching.DefaultScorer()
	for seed := uint64(40); seed < 45; seed++ {
		a := randomFingerprint(t, 6, 30, seed)
		b := randomFingerprint(t, 6, 25, seed*3)
		got := mustScore(t, scorer, a, b)
		if got < 0 || got > 1 {
			t.Fatalf("score %v outside [0, 1]", got)
		}
	}
}

func TestScoreErrors(t *testing.T) {
	fp := randomFingerprint(t, 6, 10, 1)
	scorer := matching.DefaultScorer()

	if _, err := scorer.Score(nil, fp); !errors.Is(err, fingerprint.ErrFingerprintNotReady) {
		t.Fatalf("nil query error = %v", err)
	}
	if _, err := scorer.Score(fp, nil); !errors.Is(err, fingerprint.ErrFingerprintNotReady) {
		t.Fatalf("nil reference error = %v", err)
	}
	other := randomFingerprint(t, 5, 10, 2)
	if _, err := scorer.Score(fp, other); !errors.Is(err, matching.ErrIncompatibleFingerprint) {
		t.Fatalf("band mismatch error = %v", err)
	}
	if _, err := (matching.Scorer{MatchLength: 0}).Score(fp, fp); !errors.Is(err, matching.ErrInvalidScorer) {
		t.Fatalf("zero match length error = %v", err)
	}
	if _, err := (matching.Scorer{MatchLength: 4, LookForward: -1}).Score(fp, fp); !errors.Is(err, matching.ErrInvalidScorer) {
		t.Fatalf("negative look forward error = %v", err)
	}
}
