// Package match provides the application-level service for similarity
// ranking and duplicate checking: caching, alerting, and metrics around the
// domain engine.
package match

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openlands/caselens/internal/domain/casefile"
	rediscache "github.com/openlands/caselens/internal/infrastructure/database/redis"
	"github.com/openlands/caselens/internal/infrastructure/messaging/kafka"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/logging"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/prometheus"
	"github.com/openlands/caselens/pkg/errors"
)

// Service defines the ranking operations exposed to transports.
type Service interface {
	Rank(ctx context.Context, input *RankInput) (*RankOutput, error)
	DuplicateCheck(ctx context.Context, input *RankInput) (*DuplicateCheckOutput, error)
	Refresh(ctx context.Context, input *RefreshInput) (*RefreshOutput, error)
	Snapshot(ctx context.Context) (*casefile.SnapshotInfo, error)
}

// engine is the domain surface the service depends on.
type engine interface {
	Rank(ctx context.Context, q casefile.SimilarityQuery) (*casefile.RankOutcome, error)
	Refresh(ctx context.Context, datasets []string) error
	Snapshot() *casefile.Index
}

// alertPublisher emits duplicate-flag events.
type alertPublisher interface {
	PublishDuplicateFlagged(ctx context.Context, payload kafka.DuplicateFlaggedPayload) error
}

// RankInput is one similarity query from a transport.
type RankInput struct {
	Location      string  `json:"location"`
	SlopeOrTreeNo string  `json:"slope_or_tree_no"`
	SubjectMatter string  `json:"subject_matter"`
	CallerName    string  `json:"caller_name"`
	ContactNo     string  `json:"contact_no"`
	Limit         int     `json:"limit"`
	MinSimilarity float64 `json:"min_similarity"`
}

// RankOutput is the ranked result set.
type RankOutput struct {
	QueryID              string                 `json:"query_id"`
	Results              []casefile.MatchResult `json:"results"`
	CandidatesConsidered int                    `json:"candidates_considered"`
	Truncated            bool                   `json:"truncated"`
	Generation           uint64                 `json:"generation"`
	Warning              string                 `json:"warning,omitempty"`
	Cached               bool                   `json:"cached"`
}

// DuplicateCheckOutput is the boiled-down duplicate verdict for intake
// screens: the flag plus the best match that triggered it.
type DuplicateCheckOutput struct {
	QueryID     string                `json:"query_id"`
	IsDuplicate bool                  `json:"is_duplicate"`
	BestMatch   *casefile.MatchResult `json:"best_match,omitempty"`
	Generation  uint64                `json:"generation"`
	Warning     string                `json:"warning,omitempty"`
}

// RefreshInput names the datasets to load; empty means the configured
// default set.
type RefreshInput struct {
	Datasets []string `json:"datasets,omitempty"`
	Trigger  string   `json:"trigger"`
}

// RefreshOutput summarises the published snapshot.
type RefreshOutput struct {
	Snapshot casefile.SnapshotInfo `json:"snapshot"`
}

type service struct {
	engine          engine
	cache           rediscache.Cache
	publisher       alertPublisher
	metrics         *prometheus.AppMetrics
	logger          logging.Logger
	defaultDatasets []string
	cacheTTL        time.Duration
}

// Option customises the service.
type Option func(*service)

// WithCache enables result caching.
func WithCache(cache rediscache.Cache, ttl time.Duration) Option {
	return func(s *service) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithPublisher enables duplicate-flag alerting.
func WithPublisher(p alertPublisher) Option {
	return func(s *service) { s.publisher = p }
}

// WithMetrics enables instrumentation.
func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(s *service) { s.metrics = m }
}

// NewService wires the match service.  Cache, publisher, and metrics are
// optional; the service degrades to engine-only behavior without them.
func NewService(eng engine, defaultDatasets []string, logger logging.Logger, opts ...Option) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &service{
		engine:          eng,
		logger:          logger.Named("match"),
		defaultDatasets: defaultDatasets,
		cacheTTL:        5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (i *RankInput) toQuery() casefile.SimilarityQuery {
	return casefile.SimilarityQuery{
		Location:      i.Location,
		SlopeOrTreeNo: i.SlopeOrTreeNo,
		SubjectMatter: i.SubjectMatter,
		CallerName:    i.CallerName,
		ContactNo:     i.ContactNo,
		Limit:         i.Limit,
		MinSimilarity: i.MinSimilarity,
	}
}

// cacheKey derives a deterministic key from the query and the snapshot
// generation, so a refresh naturally invalidates all earlier entries.
func cacheKey(input *RankInput, generation uint64) string {
	raw, _ := json.Marshal(input)
	digest := sha256.Sum256(raw)
	return fmt.Sprintf("rank:%s:%d", hex.EncodeToString(digest[:8]), generation)
}

func (s *service) Rank(ctx context.Context, input *RankInput) (*RankOutput, error) {
	if input == nil {
		return nil, errors.New(errors.ErrCodeBadRequest, "request body is required")
	}
	start := time.Now()
	queryID := uuid.New().String()

	// Cache lookup is generation-scoped; a refresh mid-flight just misses.
	if s.cache != nil {
		if snapshot := s.engine.Snapshot(); snapshot != nil {
			key := cacheKey(input, snapshot.Generation())
			var cached RankOutput
			if err := s.cache.Get(ctx, key, &cached); err == nil {
				s.recordCache(true)
				cached.QueryID = queryID
				cached.Cached = true
				return &cached, nil
			}
			s.recordCache(false)
		}
	}

	outcome, err := s.engine.Rank(ctx, input.toQuery())
	if err != nil {
		s.recordRank(0, false, false, time.Since(start), err)
		return nil, err
	}

	output := &RankOutput{
		QueryID:              queryID,
		Results:              outcome.Results,
		CandidatesConsidered: outcome.CandidatesConsidered,
		Truncated:            outcome.Truncated,
		Generation:           outcome.Generation,
		Warning:              outcome.Warning,
	}

	flagged := len(outcome.Results) > 0 && outcome.Results[0].IsPotentialDuplicate
	s.recordRank(outcome.CandidatesConsidered, outcome.Truncated, flagged, time.Since(start), nil)

	if flagged {
		s.publishAlert(ctx, queryID, &outcome.Results[0], outcome.Generation)
	}

	// Truncated outcomes are not cached: a retry with more headroom should
	// recompute, and partial results must not outlive the deadline that
	// produced them.
	if s.cache != nil && !outcome.Truncated && outcome.Warning == "" {
		key := cacheKey(input, outcome.Generation)
		if err := s.cache.Set(ctx, key, output, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache ranking result", logging.Err(err))
		}
	}
	return output, nil
}

func (s *service) DuplicateCheck(ctx context.Context, input *RankInput) (*DuplicateCheckOutput, error) {
	if input == nil {
		return nil, errors.New(errors.ErrCodeBadRequest, "request body is required")
	}
	// A duplicate verdict only needs the single best match.
	checked := *input
	checked.Limit = 1

	ranked, err := s.Rank(ctx, &checked)
	if err != nil {
		return nil, err
	}

	out := &DuplicateCheckOutput{
		QueryID:    ranked.QueryID,
		Generation: ranked.Generation,
		Warning:    ranked.Warning,
	}
	if len(ranked.Results) > 0 {
		best := ranked.Results[0]
		out.BestMatch = &best
		out.IsDuplicate = best.IsPotentialDuplicate
	}
	return out, nil
}

func (s *service) Refresh(ctx context.Context, input *RefreshInput) (*RefreshOutput, error) {
	datasets := s.defaultDatasets
	trigger := "manual"
	if input != nil {
		if len(input.Datasets) > 0 {
			datasets = input.Datasets
		}
		if input.Trigger != "" {
			trigger = input.Trigger
		}
	}

	start := time.Now()
	err := s.engine.Refresh(ctx, datasets)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordRefresh(trigger, time.Since(start), 0, 0, 0, err)
			s.metrics.RecordError("corpus", errors.GetCode(err).String())
		}
		return nil, err
	}

	info := s.engine.Snapshot().Info()
	if s.metrics != nil {
		s.metrics.RecordRefresh(trigger, time.Since(start), info.Records, info.UndatedCases, info.Generation, nil)
	}

	// Entries for earlier generations expire on their own; dropping them
	// now just frees memory sooner.
	if s.cache != nil {
		if _, err := s.cache.DeleteByPrefix(ctx, "rank:"); err != nil {
			s.logger.Warn("failed to drop stale cache entries", logging.Err(err))
		}
	}
	return &RefreshOutput{Snapshot: info}, nil
}

func (s *service) Snapshot(_ context.Context) (*casefile.SnapshotInfo, error) {
	snapshot := s.engine.Snapshot()
	if snapshot == nil {
		return nil, errors.New(errors.ErrCodeCorpusNotReady, "corpus snapshot not loaded yet")
	}
	info := snapshot.Info()
	return &info, nil
}

func (s *service) publishAlert(ctx context.Context, queryID string, best *casefile.MatchResult, generation uint64) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishDuplicateFlagged(ctx, kafka.DuplicateFlaggedPayload{
		QueryID:         queryID,
		MatchedCaseID:   best.Case.Identifier,
		MatchedDataset:  best.Case.SourceDataset,
		CompositeScore:  best.CompositeScore,
		SnapshotVersion: generation,
		FlaggedAt:       time.Now().UTC(),
	})
	if err != nil {
		// Alerting is best-effort; the ranking response already carries the
		// duplicate flag.
		s.logger.Warn("failed to publish duplicate alert",
			logging.String("query_id", queryID),
			logging.Err(err))
	}
}

func (s *service) recordRank(candidates int, truncated, flagged bool, elapsed time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordRank("api", candidates, truncated, flagged, elapsed, err)
	if err != nil {
		s.metrics.RecordError("match", errors.GetCode(err).String())
	}
}

func (s *service) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheAccess("rank", hit)
	}
}
