package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"jingleid/internal/opening"
)

type predictReport struct {
	Checkpoint string              `json:"checkpoint"`
	Threshold  float64             `json:"threshold"`
	Detections []opening.Detection `json:"detections"`
	Failed     int                 `json:"failed"`
}

func newPredictCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var threshold float64
	var seek, duration time.Duration

	cmd := &cobra.Command{
		Use:   "predict FILE...",
		Short: "Identify the opening used by each file",
		Long: "Decode the configured clip window of every file and report the best matching\n" +
			"reference. Low confidence predictions are still reported and flagged.\n" +
			"Files that fail to decode are listed and make the command exit non-zero.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			db, err := ctx.openDatabase(cmd.Context(), logger)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.Prediction.LowConfidenceThreshold
			}
			detector, err := opening.NewDetector(db, ctx.newDecoder(logger), opening.Options{
				Window:                 ctx.window(cmd, seek, duration),
				LowConfidenceThreshold: threshold,
				Logger:                 logger,
			})
			if err != nil {
				return err
			}

			progress, finish := newProgressBar(cmd.Context(), cmd.ErrOrStderr(), "Identifying: ", len(args))
			detections, err := detector.DetectBatch(cmd.Context(), args, progress)
			finish(err == nil)
			if err != nil {
				return fmt.Errorf("predict: %w", err)
			}

			failed := 0
			for _, detection := range detections {
				if detection.Err() != nil {
					failed++
				}
			}

			if jsonOutput {
				if err := writeJSON(cmd, predictReport{
					Checkpoint: cfg.Paths.Checkpoint,
					Threshold:  detector.Threshold(),
					Detections: detections,
					Failed:     failed,
				}); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderDetections(detections, newHighlighter(cmd.OutOrStdout())))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be decoded", failed, len(detections))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Write detections as JSON")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Low confidence threshold (overrides prediction.low_confidence_threshold)")
	cmd.Flags().DurationVar(&seek, "seek", 0, "Clip offset (overrides decoder.seek_seconds)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Clip length (overrides decoder.duration_seconds)")
	return cmd
}

func renderDetections(detections []opening.Detection, hl highlighter) string {
	rows := make([][]string, 0, len(detections))
	for _, detection := range detections {
		name := filepath.Base(detection.Path)
		if detection.Err() != nil {
			rows = append(rows, []string{name, "-", "-", "-", hl.fail.Sprint("decode failed")})
			continue
		}
		status := hl.ok.Sprint("ok")
		if detection.LowConfidence {
			status = hl.warn.Sprint("low confidence")
		}
		rows = append(rows, []string{
			name,
			detection.Label,
			formatScore(detection.Score),
			formatScore(detection.Confidence),
			status,
		})
	}
	return renderTable(
		[]string{"File", "Opening", "Score", "Confidence", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func formatScore(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}
