package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"jingleid/internal/decoder"
	"jingleid/internal/opening"
	"jingleid/internal/refdb"
)

func newFitCommand(ctx *commandContext) *cobra.Command {
	var refFlags []string
	var seek, duration time.Duration

	cmd := &cobra.Command{
		Use:   "fit --ref LABEL=PATH [--ref LABEL=PATH ...]",
		Short: "Fingerprint reference openings and save the reference database",
		Long: "Decode the configured clip window of every reference file, fingerprint it and\n" +
			"write the resulting reference database to the checkpoint. An existing\n" +
			"checkpoint is replaced.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(refFlags) == 0 {
				return errors.New("at least one --ref LABEL=PATH is required")
			}
			refs := make([]opening.Reference, 0, len(refFlags))
			for _, value := range refFlags {
				ref, err := opening.ParseReference(value)
				if err != nil {
					return err
				}
				refs = append(refs, ref)
			}

			cfg := ctx.configValue()
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			window := ctx.window(cmd, seek, duration)
			if window.Duration <= 0 {
				return fmt.Errorf("clip duration must be positive, got %s", window.Duration)
			}

			progress, finish := newProgressBar(cmd.Context(), cmd.ErrOrStderr(), "Fingerprinting: ", len(refs))
			entries, err := opening.BuildEntries(cmd.Context(), ctx.newDecoder(logger), cfg.Params(), window, refs, cfg.Matching.Workers, progress)
			finish(err == nil)
			if err != nil {
				return fmt.Errorf("fit references: %w", err)
			}

			db, err := refdb.New(cfg.Params(),
				refdb.WithScorer(cfg.Scorer()),
				refdb.WithWorkers(cfg.Matching.Workers),
				refdb.WithLogger(logger),
			)
			if err != nil {
				return err
			}
			if err := db.Fit(entries); err != nil {
				return fmt.Errorf("fit references: %w", err)
			}
			path := cfg.Paths.Checkpoint
			if err := db.SaveCheckpoint(cmd.Context(), path); err != nil {
				return wrapCheckpointError(err, path)
			}

			rows := make([][]string, 0, len(entries))
			for i, entry := range entries {
				rows = append(rows, []string{
					strconv.Itoa(i),
					entry.Label,
					strconv.Itoa(entry.Fingerprint.Frames()),
					refs[i].Path,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Label", "Frames", "Reference"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "Fitted %d references (clip %s +%s) into %s\n",
				len(entries), decoder.FormatTimestamp(window.Seek), decoder.FormatTimestamp(window.Duration), path)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&refFlags, "ref", "r", nil, "Reference opening as LABEL=PATH (repeatable)")
	cmd.Flags().DurationVar(&seek, "seek", 0, "Clip offset (overrides decoder.seek_seconds)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Clip length (overrides decoder.duration_seconds)")
	return cmd
}
