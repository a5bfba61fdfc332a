package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"

	"jingleid/internal/config"
	"jingleid/internal/deps"
	"jingleid/internal/refdb"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check external dependencies and directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := collectStatuses(cmd.Context(), ctx.configValue())

			if jsonOutput {
				if err := writeJSON(cmd, statuses); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderStatuses(statuses, newHighlighter(cmd.OutOrStdout())))
			}

			if missing := deps.Missing(statuses); len(missing) > 0 {
				return fmt.Errorf("%d required dependencies unavailable (first: %s)", len(missing), missing[0].Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Write dependency status as JSON")
	return cmd
}

func collectStatuses(ctx context.Context, cfg *config.Config) []deps.Status {
	statuses := []deps.Status{deps.CheckFFmpeg(cfg.Decoder.FFmpegBinary)}
	statuses = append(statuses,
		deps.CheckWritableDir("Temp directory", cfg.Paths.TempDir),
		deps.CheckWritableDir("Checkpoint directory", filepath.Dir(cfg.Paths.Checkpoint)),
	)
	if cfg.Paths.LogDir != "" {
		logDir := deps.CheckWritableDir("Log directory", cfg.Paths.LogDir)
		logDir.Optional = true
		statuses = append(statuses, logDir)
	}
	return append(statuses, checkpointStatus(ctx, cfg.Paths.Checkpoint))
}

// checkpointStatus is optional: a missing checkpoint only means fit has not
// run yet.
func checkpointStatus(ctx context.Context, path string) deps.Status {
	status := deps.Status{
		Name:        "Checkpoint",
		Command:     path,
		Description: "Reference database written by `jingleid fit`",
		Optional:    true,
	}
	info, err := refdb.Inspect(ctx, path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		status.Detail = "not fitted yet"
	case err != nil:
		status.Detail = err.Error()
	default:
		status.Available = true
		status.Detail = fmt.Sprintf("%d references", len(info.Entries))
	}
	return status
}

func renderStatuses(statuses []deps.Status, hl highlighter) string {
	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		var state string
		switch {
		case status.Available:
			state = hl.ok.Sprint("ok")
		case status.Optional:
			state = hl.warn.Sprint("optional")
		default:
			state = hl.fail.Sprint("missing")
		}
		rows = append(rows, []string{status.Name, state, status.Command, status.Detail})
	}
	return renderTable(
		[]string{"Check", "Status", "Path", "Detail"},
		rows,
		nil,
	)
}
