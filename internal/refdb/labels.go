package refdb

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"jingleid/internal/fingerprint"
	"jingleid/internal/matching"
)

// normalizeLabel maps labels that a person would read as the same name to
// one key: trimmed, NFC composed and case folded.
func normalizeLabel(label string) string {
	// Casers keep state and cannot be shared between goroutines.
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(label)))
}

// validateEntries checks entries against params and returns a copy with
// trimmed labels.
func validateEntries(params fingerprint.Params, entries []Entry) ([]Entry, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyInput
	}
	seen := make(map[string]int, len(entries))
	out := make([]Entry, len(entries))
	for i, entry := range entries {
		label := strings.TrimSpace(entry.Label)
		if label == "" {
			return nil, fmt.Errorf("entry %d: %w: label is empty", i, ErrInvalidLabel)
		}
		if entry.Fingerprint == nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, label, fingerprint.ErrFingerprintNotReady)
		}
		if got := entry.Fingerprint.Params(); got != params {
			return nil, fmt.Errorf("entry %d (%s): %w: fingerprint params %s, database params %s",
				i, label, matching.ErrIncompatibleFingerprint, got, params)
		}
		key := normalizeLabel(label)
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("entry %d (%s): %w: same as entry %d (%s)",
				i, label, ErrDuplicateLabel, prev, out[prev].Label)
		}
		seen[key] = i
		out[i] = Entry{Label: label, Fingerprint: entry.Fingerprint}
	}
	return out, nil
}
