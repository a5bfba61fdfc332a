package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jingleid/internal/decoder"
)

func newClipCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	var seek, duration time.Duration

	cmd := &cobra.Command{
		Use:   "clip FILE --out CLIP.wav",
		Short: "Write the decoded clip window of a file as WAV",
		Long: "Decode the clip window exactly as fit and predict see it and write it as\n" +
			"8-bit mono WAV, so the matched audio can be listened to.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(outPath) == "" {
				return errors.New("--out is required")
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			window := ctx.window(cmd, seek, duration)
			waveform, err := ctx.newDecoder(logger).Decode(cmd.Context(), decoder.Request{
				Path:     args[0],
				Seek:     window.Seek,
				Duration: window.Duration,
			})
			if err != nil {
				return err
			}
			if err := decoder.WriteWAV(outPath, waveform); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s of %s (%d Hz) to %s\n",
				decoder.FormatTimestamp(waveform.Duration()), args[0], waveform.SampleRate(), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Destination WAV file")
	cmd.Flags().DurationVar(&seek, "seek", 0, "Clip offset (overrides decoder.seek_seconds)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Clip length (overrides decoder.duration_seconds)")
	return cmd
}
