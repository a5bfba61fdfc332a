package main

import (
	"context"
	"io"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"jingleid/internal/opening"
)

// newProgressBar returns an opening.Progress that drives a terminal bar on
// out, and a finish func that must be called once the work ends. Nothing is
// drawn when out is not a terminal.
func newProgressBar(ctx context.Context, out io.Writer, name string, total int) (opening.Progress, func(ok bool)) {
	if total <= 0 || !isTerminalWriter(out) {
		return nil, func(bool) {}
	}

	p := mpb.NewWithContext(ctx, mpb.WithOutput(out), mpb.WithWidth(64))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(name),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.AverageETA(decor.ET_STYLE_GO),
		),
	)

	progress := func(done, _ int, _ string) {
		bar.SetCurrent(int64(done))
	}
	finish := func(ok bool) {
		if !ok {
			bar.Abort(false)
		}
		p.Wait()
	}
	return progress, finish
}
