package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"jingleid/internal/refdb"
)

func newCheckpointCommand(ctx *commandContext) *cobra.Command {
	checkpointCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect the reference database checkpoint",
	}
	checkpointCmd.AddCommand(newCheckpointShowCommand(ctx))
	return checkpointCmd
}

func newCheckpointShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Verify the checkpoint and list its references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ctx.checkpointPath()
			info, err := refdb.Inspect(cmd.Context(), path)
			if err != nil {
				return wrapCheckpointError(err, path)
			}
			if jsonOutput {
				return writeJSON(cmd, info)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderFields([][2]string{
				{"Path", info.Path},
				{"Format", strconv.Itoa(info.FormatVersion)},
				{"Created", info.CreatedAt},
				{"Generator", info.Generator},
				{"Params", info.Params.String()},
				{"References", strconv.Itoa(len(info.Entries))},
			}))

			rows := make([][]string, 0, len(info.Entries))
			for _, entry := range info.Entries {
				rows = append(rows, []string{
					strconv.Itoa(entry.Position),
					entry.Label,
					strconv.Itoa(entry.Bands),
					strconv.Itoa(entry.Frames),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Label", "Bands", "Frames"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Write checkpoint details as JSON")
	return cmd
}
