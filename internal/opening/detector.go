package opening

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"jingleid/internal/decoder"
	"jingleid/internal/logging"
	"jingleid/internal/refdb"
)

// DefaultLowConfidenceThreshold is the confidence below which a prediction
// is reported as doubtful.
const DefaultLowConfidenceThreshold = 0.10

// Detection is the outcome for one media file.
type Detection struct {
	Path          string             `json:"path"`
	Label         string             `json:"label,omitempty"`
	Score         float64            `json:"score"`
	Confidence    float64            `json:"confidence"`
	LowConfidence bool               `json:"low_confidence"`
	Scores        map[string]float64 `json:"scores,omitempty"`
	Ranking       []refdb.LabelScore `json:"ranking,omitempty"`
	// Error is set when the file could not be decoded.
	Error string `json:"error,omitempty"`
	err   error
}

// Err returns the decode failure recorded for the file, if any.
func (d Detection) Err() error { return d.err }

// Options configures a Detector.
type Options struct {
	Window Window
	// LowConfidenceThreshold is used as given; zero flags nothing. Callers
	// without a configured value pass DefaultLowConfidenceThreshold.
	LowConfidenceThreshold float64
	Logger                 *slog.Logger
}

// Detector predicts the opening of media files against a fitted database.
type Detector struct {
	db        *refdb.Database
	clips     ClipSource
	window    Window
	threshold float64
	logger    *slog.Logger
}

// NewDetector binds a database and a clip source.
func NewDetector(db *refdb.Database, clips ClipSource, opts Options) (*Detector, error) {
	if db == nil {
		return nil, errors.New("detector: database required")
	}
	if clips == nil {
		return nil, errors.New("detector: clip source required")
	}
	if opts.Window.Duration <= 0 {
		return nil, fmt.Errorf("detector: window duration must be positive, got %s", opts.Window.Duration)
	}
	if opts.LowConfidenceThreshold < 0 || opts.LowConfidenceThreshold > 1 {
		return nil, fmt.Errorf("detector: low confidence threshold must be between 0 and 1, got %v", opts.LowConfidenceThreshold)
	}
	return &Detector{
		db:        db,
		clips:     clips,
		window:    opts.Window,
		threshold: opts.LowConfidenceThreshold,
		logger:    logging.NewComponentLogger(opts.Logger, "opening"),
	}, nil
}

// Threshold returns the low confidence threshold.
func (d *Detector) Threshold() float64 { return d.threshold }

// Detect decodes the window of path and predicts its opening. A low
// confidence prediction is logged as a warning and still returned.
func (d *Detector) Detect(ctx context.Context, path string) (*Detection, error) {
	logger := logging.WithContext(ctx, d.logger).With(logging.String(logging.FieldFile, path))

	prediction, err := d.db.PredictOnTheFly(ctx, d.clips.Source(d.window.request(path)))
	if err != nil {
		return nil, fmt.Errorf("detect %s: %w", path, err)
	}

	detection := &Detection{
		Path:          path,
		Label:         prediction.Label,
		Score:         prediction.Score,
		Confidence:    prediction.Confidence,
		LowConfidence: prediction.Confidence < d.threshold,
		Scores:        prediction.Scores,
		Ranking:       prediction.Ranking,
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldLabel, prediction.Label),
		logging.Float64("score", prediction.Score),
		logging.Float64("confidence", prediction.Confidence),
	}
	if detection.LowConfidence {
		attrs = append(attrs,
			logging.Float64("threshold", d.threshold),
			logging.String(logging.FieldErrorHint, "add the missing opening as a reference or widen the clip window"),
			logging.String(logging.FieldImpact, "reported label may be wrong"),
		)
		logging.WarnWithContext(logger, "opening prediction confidence is low", "prediction_low_confidence", attrs...)
	} else {
		logger.Info("opening identified", logging.Args(attrs...)...)
	}
	return detection, nil
}

// DetectBatch runs Detect over paths in order under one correlation ID.
// Files that fail to decode are recorded and skipped; any other error stops
// the batch and is returned with the detections gathered so far.
func (d *Detector) DetectBatch(ctx context.Context, paths []string, progress Progress) ([]Detection, error) {
	if _, ok := logging.CorrelationIDFromContext(ctx); !ok {
		ctx = logging.WithCorrelationID(ctx, uuid.NewString())
	}
	logger := logging.WithContext(ctx, d.logger)
	logger.Info("batch started", logging.Int("files", len(paths)))

	results := make([]Detection, 0, len(paths))
	failed := 0
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		detection, err := d.Detect(ctx, path)
		switch {
		case err == nil:
			results = append(results, *detection)
		case errors.Is(err, decoder.ErrDecodeFailure) && ctx.Err() == nil:
			failed++
			logging.ErrorWithContext(logger, "decode failed", "decode_failure",
				logging.String(logging.FieldFile, path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the file with ffprobe or run 'jingleid check'"),
			)
			results = append(results, Detection{Path: path, Error: err.Error(), err: err})
		default:
			return results, err
		}
		if progress != nil {
			progress(i+1, len(paths), path)
		}
	}

	logger.Info("batch finished",
		logging.Int("files", len(paths)),
		logging.Int("failed", failed),
	)
	return results, nil
}
