package opening

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"jingleid/internal/decoder"
	"jingleid/internal/fingerprint"
	"jingleid/internal/refdb"
)

// ClipSource produces a waveform source for a clip request.
type ClipSource interface {
	Source(req decoder.Request) fingerprint.Source
}

// Progress is called after each file completes.
type Progress func(done, total int, path string)

// Reference is a labelled media file whose window holds a known opening.
type Reference struct {
	Label string
	Path  string
}

// ParseReference parses a "label=path" argument.
func ParseReference(value string) (Reference, error) {
	label, path, ok := strings.Cut(value, "=")
	label, path = strings.TrimSpace(label), strings.TrimSpace(path)
	if !ok || label == "" || path == "" {
		return Reference{}, fmt.Errorf("reference %q: expected label=path", value)
	}
	return Reference{Label: label, Path: path}, nil
}

// Window is the part of each file that is fingerprinted.
type Window struct {
	Seek     time.Duration
	Duration time.Duration
}

func (w Window) request(path string) decoder.Request {
	return decoder.Request{Path: path, Seek: w.Seek, Duration: w.Duration}
}

// BuildEntries decodes and fingerprints every reference with at most workers
// running at once. Entries keep the order of refs. The first failure cancels
// the remaining work.
func BuildEntries(ctx context.Context, clips ClipSource, params fingerprint.Params, window Window, refs []Reference, workers int, progress Progress) ([]refdb.Entry, error) {
	if len(refs) == 0 {
		return nil, refdb.ErrEmptyInput
	}
	if workers < 1 {
		workers = 1
	}

	entries := make([]refdb.Entry, len(refs))
	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, ref := range refs {
		g.Go(func() error {
			track, err := fingerprint.NewTrack(params, clips.Source(window.request(ref.Path)))
			if err != nil {
				return err
			}
			if err := track.Preprocess(gctx); err != nil {
				return fmt.Errorf("reference %q: %w", ref.Label, err)
			}
			entry, err := refdb.EntryFromTrack(ref.Label, track)
			if err != nil {
				return err
			}
			entries[i] = entry

			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(refs), ref.Path)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}
