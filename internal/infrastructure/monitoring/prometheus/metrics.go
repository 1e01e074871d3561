package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric the service emits, registered once at
// startup.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Matching engine
	RankRequestsTotal        CounterVec
	RankDuration             HistogramVec
	RankCandidatesConsidered HistogramVec
	RankTruncatedTotal       CounterVec
	DuplicatesFlaggedTotal   CounterVec

	// Statistics
	StatsRequestsTotal CounterVec
	StatsDuration      HistogramVec

	// Corpus snapshot
	CorpusRefreshTotal    CounterVec
	CorpusRefreshDuration HistogramVec
	CorpusSize            GaugeVec
	CorpusGeneration      GaugeVec
	CorpusUndatedCases    GaugeVec

	// Infrastructure
	CacheHitsTotal          CounterVec
	CacheMissesTotal        CounterVec
	DBQueryDuration         HistogramVec
	MessagesPublishedTotal  CounterVec
	MessagesConsumedTotal   CounterVec
	MessageProcessDuration  HistogramVec

	// Health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultScanDurationBuckets = []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30}
	DefaultDBDurationBuckets   = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	CandidateCountBuckets      = []float64{0, 100, 1000, 10000, 50000, 100000, 500000}
)

// NewAppMetrics registers the full metric set on the collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests")

	m.RankRequestsTotal = collector.RegisterCounter("rank_requests_total", "Similarity ranking requests", "status")
	m.RankDuration = collector.RegisterHistogram("rank_duration_seconds", "Similarity ranking duration", DefaultScanDurationBuckets, "source")
	m.RankCandidatesConsidered = collector.RegisterHistogram("rank_candidates_considered", "Candidates scored per ranking request", CandidateCountBuckets, "source")
	m.RankTruncatedTotal = collector.RegisterCounter("rank_truncated_total", "Ranking requests truncated by deadline")
	m.DuplicatesFlaggedTotal = collector.RegisterCounter("duplicates_flagged_total", "Queries whose best match crossed the duplicate threshold")

	m.StatsRequestsTotal = collector.RegisterCounter("stats_requests_total", "Location statistics requests", "status")
	m.StatsDuration = collector.RegisterHistogram("stats_duration_seconds", "Location statistics duration", DefaultScanDurationBuckets, "source")

	m.CorpusRefreshTotal = collector.RegisterCounter("corpus_refresh_total", "Corpus snapshot refresh attempts", "status", "trigger")
	m.CorpusRefreshDuration = collector.RegisterHistogram("corpus_refresh_duration_seconds", "Corpus refresh duration", []float64{.1, .5, 1, 5, 10, 30, 60, 120}, "trigger")
	m.CorpusSize = collector.RegisterGauge("corpus_size", "Records in the serving snapshot")
	m.CorpusGeneration = collector.RegisterGauge("corpus_generation", "Generation of the serving snapshot")
	m.CorpusUndatedCases = collector.RegisterGauge("corpus_undated_cases", "Snapshot records without a usable date")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "operation")
	m.MessagesPublishedTotal = collector.RegisterCounter("messages_published_total", "Messages published", "topic", "status")
	m.MessagesConsumedTotal = collector.RegisterCounter("messages_consumed_total", "Messages consumed", "topic", "status")
	m.MessageProcessDuration = collector.RegisterHistogram("message_process_duration_seconds", "Message handling duration", DefaultHTTPDurationBuckets, "topic")

	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Component health (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Errors by component and code", "component", "code")

	return m
}

// RecordHTTPRequest observes one completed HTTP request.
func (m *AppMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRank observes one completed ranking request.
func (m *AppMetrics) RecordRank(source string, candidates int, truncated, flagged bool, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RankRequestsTotal.WithLabelValues(status).Inc()
	if err != nil {
		return
	}
	m.RankDuration.WithLabelValues(source).Observe(duration.Seconds())
	m.RankCandidatesConsidered.WithLabelValues(source).Observe(float64(candidates))
	if truncated {
		m.RankTruncatedTotal.WithLabelValues().Inc()
	}
	if flagged {
		m.DuplicatesFlaggedTotal.WithLabelValues().Inc()
	}
}

// RecordStats observes one completed statistics request.
func (m *AppMetrics) RecordStats(source string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.StatsRequestsTotal.WithLabelValues(status).Inc()
	if err == nil {
		m.StatsDuration.WithLabelValues(source).Observe(duration.Seconds())
	}
}

// RecordRefresh observes one corpus refresh attempt and, on success, the
// snapshot gauges.
func (m *AppMetrics) RecordRefresh(trigger string, duration time.Duration, size, undated int, generation uint64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.CorpusRefreshTotal.WithLabelValues(status, trigger).Inc()
	m.CorpusRefreshDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	if err != nil {
		return
	}
	m.CorpusSize.WithLabelValues().Set(float64(size))
	m.CorpusGeneration.WithLabelValues().Set(float64(generation))
	m.CorpusUndatedCases.WithLabelValues().Set(float64(undated))
}

// RecordCacheAccess counts one cache lookup.
func (m *AppMetrics) RecordCacheAccess(cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordError counts one error by component and code.
func (m *AppMetrics) RecordError(component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}
