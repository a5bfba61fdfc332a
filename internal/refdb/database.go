package refdb

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"jingleid/internal/fingerprint"
	"jingleid/internal/logging"
	"jingleid/internal/matching"
)

// Entry is one labelled reference fingerprint.
type Entry struct {
	Label       string
	Fingerprint *fingerprint.Fingerprint
}

// EntryFromTrack builds an Entry from a FingerprintReady track.
func EntryFromTrack(label string, track *fingerprint.Track) (Entry, error) {
	if track == nil {
		return Entry{}, fmt.Errorf("reference %q: %w", label, fingerprint.ErrFingerprintNotReady)
	}
	fp, err := track.Fingerprint()
	if err != nil {
		return Entry{}, fmt.Errorf("reference %q: %w", label, err)
	}
	return Entry{Label: label, Fingerprint: fp}, nil
}

// LabelScore pairs a reference label with the query's score against it.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Prediction is the outcome of matching one query against the database.
type Prediction struct {
	Label string `json:"label"`
	// Index is the winning reference's position in the database.
	Index int     `json:"index"`
	Score float64 `json:"score"`
	// Confidence is the winning score minus the best other score, so it is
	// zero on ties. With a single reference under PolicyScore it equals Score.
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores"`
	// Ranking lists every reference in database order.
	Ranking []LabelScore `json:"ranking"`
}

// Option configures a Database.
type Option func(*Database)

// WithScorer replaces the default scorer.
func WithScorer(s matching.Scorer) Option {
	return func(d *Database) { d.scorer = s }
}

// WithWorkers bounds concurrent scoring. Values below one use one worker per CPU.
func WithWorkers(n int) Option {
	return func(d *Database) { d.workers = n }
}

// WithSingleReferencePolicy sets how a single-reference database predicts.
func WithSingleReferencePolicy(p SingleReferencePolicy) Option {
	return func(d *Database) { d.policy = p }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Database) { d.logger = logger }
}

// Database is an ordered set of reference entries sharing one Params.
// Predict may run concurrently; Fit and checkpoint loading replace the
// contents wholesale under the write lock.
type Database struct {
	mu      sync.RWMutex
	params  fingerprint.Params
	scorer  matching.Scorer
	workers int
	policy  SingleReferencePolicy
	logger  *slog.Logger
	entries []Entry
}

// New returns an empty Database for fingerprints produced under params.
func New(params fingerprint.Params, opts ...Option) (*Database, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	d := &Database{
		params: params,
		scorer: matching.DefaultScorer(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	if err := d.scorer.Validate(); err != nil {
		return nil, err
	}
	if d.workers < 1 {
		d.workers = runtime.NumCPU()
	}
	switch d.policy {
	case PolicyScore, PolicyReject:
	default:
		return nil, fmt.Errorf("single reference policy: unsupported value %s", d.policy)
	}
	d.logger = logging.NewComponentLogger(d.logger, "refdb")
	return d, nil
}

// Params returns the parameters every entry shares.
func (d *Database) Params() fingerprint.Params {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.params
}

// Scorer returns the scorer used by Predict.
func (d *Database) Scorer() matching.Scorer { return d.scorer }

// Policy returns the single-reference policy.
func (d *Database) Policy() SingleReferencePolicy { return d.policy }

// Len returns the number of references.
func (d *Database) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Labels returns the reference labels in database order.
func (d *Database) Labels() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	labels := make([]string, len(d.entries))
	for i, entry := range d.entries {
		labels[i] = entry.Label
	}
	return labels
}

// Entries returns a copy of the references in database order.
func (d *Database) Entries() []Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Fit replaces the database contents with entries. On error the previous
// contents are kept.
func (d *Database) Fit(entries []Entry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	validated, err := validateEntries(d.params, entries)
	if err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	d.entries = validated
	d.logger.Info("reference database fitted", logging.Int("entries", len(validated)))
	return nil
}

// Predict identifies which reference the FingerprintReady track contains.
func (d *Database) Predict(ctx context.Context, track *fingerprint.Track) (*Prediction, error) {
	if track == nil {
		return nil, fmt.Errorf("predict: %w", fingerprint.ErrFingerprintNotReady)
	}
	if d.Len() == 0 {
		return nil, fmt.Errorf("predict: %w", ErrEmptyDatabase)
	}
	query, err := track.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	return d.PredictFingerprint(ctx, query)
}

// PredictOnTheFly loads, analyses and fingerprints source, then predicts.
// The source owns any files it creates.
func (d *Database) PredictOnTheFly(ctx context.Context, source fingerprint.Source) (*Prediction, error) {
	if d.Len() == 0 {
		return nil, fmt.Errorf("predict: %w", ErrEmptyDatabase)
	}
	track, err := fingerprint.NewTrack(d.Params(), source)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if err := track.Preprocess(ctx); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	return d.Predict(ctx, track)
}

// PredictFingerprint scores query against every reference. Scores are
// computed in parallel and reduced once all are known; ties go to the
// lowest index.
func (d *Database) PredictFingerprint(ctx context.Context, query *fingerprint.Fingerprint) (*Prediction, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if query == nil {
		return nil, fmt.Errorf("predict: %w", fingerprint.ErrFingerprintNotReady)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(d.entries) == 0 {
		return nil, fmt.Errorf("predict: %w", ErrEmptyDatabase)
	}
	if got := query.Params(); got != d.params {
		return nil, fmt.Errorf("predict: %w: query params %s, database params %s",
			matching.ErrIncompatibleFingerprint, got, d.params)
	}
	if len(d.entries) == 1 && d.policy == PolicyReject {
		return nil, fmt.Errorf("predict: %w: database holds only %q", ErrInsufficientReferences, d.entries[0].Label)
	}

	scores := make([]float64, len(d.entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, entry := range d.entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			score, err := d.scorer.Score(query, entry.Fingerprint)
			if err != nil {
				return fmt.Errorf("score %q: %w", entry.Label, err)
			}
			scores[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	prediction := d.reduce(scores)
	d.logger.Debug("prediction complete",
		logging.String(logging.FieldLabel, prediction.Label),
		logging.Float64("score", prediction.Score),
		logging.Float64("confidence", prediction.Confidence),
	)
	return prediction, nil
}

func (d *Database) reduce(scores []float64) *Prediction {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}

	confidence := scores[best]
	if len(scores) > 1 {
		runnerUp := -1.0
		for i, score := range scores {
			if i != best && score > runnerUp {
				runnerUp = score
			}
		}
		confidence = scores[best] - runnerUp
	}

	byLabel := make(map[string]float64, len(scores))
	ranking := make([]LabelScore, len(scores))
	for i, entry := range d.entries {
		byLabel[entry.Label] = scores[i]
		ranking[i] = LabelScore{Label: entry.Label, Score: scores[i]}
	}

	return &Prediction{
		Label:      d.entries[best].Label,
		Index:      best,
		Score:      scores[best],
		Confidence: confidence,
		Scores:     byLabel,
		Ranking:    ranking,
	}
}
