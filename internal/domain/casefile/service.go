package casefile

import (
	"context"
	"sync/atomic"

	"github.com/openlands/caselens/internal/infrastructure/monitoring/logging"
	"github.com/openlands/caselens/pkg/errors"
)

// Engine is the similarity and duplicate detection service over the current
// corpus snapshot.  Any number of goroutines may call Rank and Stats
// concurrently: both operate on the snapshot acquired at call start, and
// Refresh publishes a fully-built replacement with a single atomic store, so
// a refresh never produces mixed-generation results within one query.
type Engine struct {
	opts       EngineOptions
	aggregator aggregator
	source     CorpusSource
	logger     logging.Logger

	snapshot   atomic.Pointer[Index]
	generation atomic.Uint64
}

// NewEngine validates opts and constructs an Engine.  An invalid weight set
// or threshold is the fatal configuration class; nothing is served until the
// first successful Refresh.
func NewEngine(opts EngineOptions, source CorpusSource, logger logging.Logger) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "corpus source is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Engine{
		opts:       opts,
		aggregator: newAggregator(opts),
		source:     source,
		logger:     logger.Named("engine"),
	}, nil
}

// Options returns the engine's fixed scoring parameters.
func (e *Engine) Options() EngineOptions { return e.opts }

// Snapshot returns the current corpus snapshot, or nil before the first
// successful refresh.
func (e *Engine) Snapshot() *Index { return e.snapshot.Load() }

// Refresh loads the named datasets from the corpus source, builds a new
// immutable snapshot, and publishes it atomically.  On any load failure the
// previous snapshot stays in service.  Data-quality issues (records without
// a usable date) are logged once here, never per query.
func (e *Engine) Refresh(ctx context.Context, datasets []string) error {
	records, err := e.source.LoadCases(ctx, datasets)
	if err != nil {
		e.logger.Error("corpus refresh failed, keeping last good snapshot",
			logging.Err(err),
			logging.Any("datasets", datasets))
		return errors.Wrap(err, errors.ErrCodeCorpusLoadFailed, "failed to load corpus datasets")
	}

	ix := BuildIndex(records, e.generation.Add(1), datasets)
	e.snapshot.Store(ix)

	if ix.Len() == 0 {
		e.logger.Warn("corpus snapshot is empty",
			logging.Any("datasets", datasets),
			logging.Uint64("generation", ix.Generation()))
	}
	if ix.UndatedCases() > 0 {
		e.logger.Warn("corpus records without usable date_received kept with date absent",
			logging.Int("undated", ix.UndatedCases()),
			logging.Uint64("generation", ix.Generation()))
	}
	e.logger.Info("corpus snapshot published",
		logging.Uint64("generation", ix.Generation()),
		logging.Int("records", ix.Len()),
		logging.Any("datasets", datasets))
	return nil
}

// Rank scores every candidate in the current snapshot against the query and
// returns the best matches.  An all-empty query yields an empty outcome with
// a warning, never an error; per-record data problems degrade to absent
// fields.  The context deadline bounds the scan: on expiry a partial ranked
// result is returned with Truncated set.
func (e *Engine) Rank(ctx context.Context, q SimilarityQuery) (*RankOutcome, error) {
	ix := e.snapshot.Load()
	if ix == nil {
		return nil, errors.New(errors.ErrCodeCorpusNotReady, "corpus snapshot not loaded yet")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = e.opts.DefaultLimit
	}
	minSimilarity := q.MinSimilarity
	if minSimilarity == 0 {
		minSimilarity = e.opts.MinSimilarity
	}
	if minSimilarity < 0 || minSimilarity > 1 {
		return nil, errors.Newf(errors.ErrCodeValidation,
			"min_similarity %v is out of range [0, 1]", q.MinSimilarity)
	}

	norm := normalizeQuery(&q)
	if norm.isEmpty() {
		e.logger.Warn("similarity query has no comparable fields")
		return &RankOutcome{
			Results:    []MatchResult{},
			Generation: ix.Generation(),
			Warning:    "all query fields empty",
		}, nil
	}

	return rank(ctx, e.aggregator, ix, &norm, limit, minSimilarity), nil
}

// Stats scans the current snapshot for the key's cohort and aggregates
// complaint frequency statistics.  Stats runs independently of any ranking
// request.
func (e *Engine) Stats(ctx context.Context, q StatsQuery) (*LocationStatistics, error) {
	ix := e.snapshot.Load()
	if ix == nil {
		return nil, errors.New(errors.ErrCodeCorpusNotReady, "corpus snapshot not loaded yet")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "stats cancelled before scan")
	}

	key := normalizeStatsQuery(&q)
	if key.location == "" && key.identifier == "" {
		return nil, errors.New(errors.ErrCodeValidation, "stats key is empty")
	}

	return collectStatistics(ix, &q, e.opts.FrequentThreshold), nil
}
