// Package statistics provides the application-level service for
// per-location complaint frequency queries.
package statistics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openlands/caselens/internal/domain/casefile"
	rediscache "github.com/openlands/caselens/internal/infrastructure/database/redis"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/logging"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/prometheus"
	"github.com/openlands/caselens/pkg/errors"
)

// Service defines the statistics operations exposed to transports.
type Service interface {
	LocationStats(ctx context.Context, input *StatsInput) (*StatsOutput, error)
}

// engine is the domain surface the service depends on.
type engine interface {
	Stats(ctx context.Context, q casefile.StatsQuery) (*casefile.LocationStatistics, error)
	Snapshot() *casefile.Index
}

// StatsInput is one frequency query.
type StatsInput struct {
	Key        string `json:"key"`
	CallerName string `json:"caller_name,omitempty"`
}

// StatsOutput wraps the aggregated statistics.
type StatsOutput struct {
	QueryID    string                       `json:"query_id"`
	Statistics *casefile.LocationStatistics `json:"statistics"`
	Cached     bool                         `json:"cached"`
}

type service struct {
	engine   engine
	cache    rediscache.Cache
	metrics  *prometheus.AppMetrics
	logger   logging.Logger
	cacheTTL time.Duration
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

// WithMetrics enables instrumentation.
func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(s *service) { s.metrics = m }
}

// NewService wires the statistics service.
func NewService(eng engine, logger logging.Logger, opts ...Option) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &service{
		engine:   eng,
		logger:   logger.Named("statistics"),
		cacheTTL: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// cacheKey is generation-scoped, like the ranking cache, so refreshed
// snapshots never serve stale aggregates.
func cacheKey(input *StatsInput, generation uint64) string {
	digest := sha256.Sum256([]byte(input.Key + "\x00" + input.CallerName))
	return fmt.Sprintf("stats:%s:%d", hex.EncodeToString(digest[:8]), generation)
}

func (s *service) LocationStats(ctx context.Context, input *StatsInput) (*StatsOutput, error) {
	if input == nil {
		return nil, errors.New(errors.ErrCodeBadRequest, "request body is required")
	}
	start := time.Now()
	queryID := uuid.New().String()

	if s.cache != nil {
		if snapshot := s.engine.Snapshot(); snapshot != nil {
			key := cacheKey(input, snapshot.Generation())
			var cached casefile.LocationStatistics
			if err := s.cache.Get(ctx, key, &cached); err == nil {
				s.recordCache(true)
				return &StatsOutput{QueryID: queryID, Statistics: &cached, Cached: true}, nil
			}
			s.recordCache(false)
		}
	}

	stats, err := s.engine.Stats(ctx, casefile.StatsQuery{
		Key:        input.Key,
		CallerName: input.CallerName,
	})
	if s.metrics != nil {
		s.metrics.RecordStats("api", time.Since(start), err)
		if err != nil {
			s.metrics.RecordError("statistics", errors.GetCode(err).String())
		}
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		key := cacheKey(input, stats.Generation)
		if err := s.cache.Set(ctx, key, stats, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache statistics result", logging.Err(err))
		}
	}
	return &StatsOutput{QueryID: queryID, Statistics: stats}, nil
}

func (s *service) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheAccess("stats", hit)
	}
}
