// Package casefile implements the historical case similarity and duplicate
// detection engine: field normalization, per-field comparators, weighted
// score aggregation, the immutable corpus snapshot, top-K ranking, and
// per-location frequency statistics.
package casefile

import (
	"fmt"
	"time"
)

// FieldKind identifies a scored field of a case record.  The constants double
// as the keys of MatchResult.ComponentScores.
type FieldKind string

const (
	FieldLocation   FieldKind = "location"
	FieldIdentifier FieldKind = "slope_or_tree_no"
	FieldSubject    FieldKind = "subject_matter"
	FieldName       FieldKind = "caller_name"
	FieldPhone      FieldKind = "contact_no"
)

// CaseRecord is a single historical complaint case.  Every textual field may
// be empty; an absent field simply does not contribute to scoring.
type CaseRecord struct {
	// Identifier is the dataset-scoped case number.
	Identifier string `json:"identifier"`
	// SourceDataset is the provenance tag, e.g. "complaints-2021".
	SourceDataset string `json:"source_dataset"`
	// DateReceived is zero when the source value was missing or unparseable;
	// zero dates are excluded from statistics date ranges.
	DateReceived  time.Time `json:"date_received"`
	Location      string    `json:"location"`
	SlopeOrTreeNo string    `json:"slope_or_tree_no"`
	SubjectMatter string    `json:"subject_matter"`
	CaseType      string    `json:"case_type"`
	CallerName    string    `json:"caller_name"`
	ContactNo     string    `json:"contact_no"`
	// NatureOfRequest is carried for display only and is never scored.
	NatureOfRequest string `json:"nature_of_request"`
}

// SimilarityQuery is the subset of case fields supplied by the caller plus
// ranking controls.  A zero Limit or MinSimilarity selects the engine
// default.
type SimilarityQuery struct {
	Location      string  `json:"location"`
	SlopeOrTreeNo string  `json:"slope_or_tree_no"`
	SubjectMatter string  `json:"subject_matter"`
	CallerName    string  `json:"caller_name"`
	ContactNo     string  `json:"contact_no"`
	Limit         int     `json:"limit"`
	MinSimilarity float64 `json:"min_similarity"`
}

// IsEmpty reports whether no comparable field survives normalization.
func (q *SimilarityQuery) IsEmpty() bool {
	n := normalizeQuery(q)
	return n.isEmpty()
}

// MatchResult is one ranked candidate from the corpus.
type MatchResult struct {
	Case *CaseRecord `json:"case"`
	// CompositeScore is the weighted sum of component scores, always in [0,1].
	CompositeScore float64 `json:"composite_score"`
	// ComponentScores holds one entry per field both sides supplied.
	ComponentScores map[FieldKind]float64 `json:"component_scores"`
	// IsPotentialDuplicate is set when CompositeScore reaches the configured
	// duplicate threshold.
	IsPotentialDuplicate bool `json:"is_potential_duplicate"`
}

func (r *MatchResult) String() string {
	return fmt.Sprintf("MatchResult{id=%s, score=%.4f, duplicate=%t}",
		r.Case.Identifier, r.CompositeScore, r.IsPotentialDuplicate)
}

// RankOutcome is the full response of a ranking request.
type RankOutcome struct {
	Results []MatchResult `json:"results"`
	// CandidatesConsidered distinguishes "empty corpus" from "all candidates
	// below the floor": it counts every candidate scored, not just survivors.
	CandidatesConsidered int `json:"candidates_considered"`
	// Truncated is set when the deadline expired mid-scan and the results
	// cover only the candidates considered so far.
	Truncated bool `json:"truncated"`
	// Generation identifies the corpus snapshot the outcome was computed on.
	Generation uint64 `json:"generation"`
	// Warning carries the non-fatal reason for a degraded response, e.g. an
	// all-empty query.
	Warning string `json:"warning,omitempty"`
}

// StatsQuery selects a cohort of historical cases by location or identifier
// key, optionally narrowed to a single caller.
type StatsQuery struct {
	Key        string `json:"key"`
	CallerName string `json:"caller_name,omitempty"`
}

// DateRange is the earliest and latest DateReceived among a cohort.
type DateRange struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// LocationStatistics summarises complaint frequency for one key.
type LocationStatistics struct {
	Key        string `json:"key"`
	TotalCases int    `json:"total_cases"`
	// DateRange is nil when no matching case carries a usable date.
	DateRange              *DateRange     `json:"date_range,omitempty"`
	SubjectMatterBreakdown map[string]int `json:"subject_matter_breakdown"`
	CaseTypeBreakdown      map[string]int `json:"case_type_breakdown"`
	// IsFrequent is set when TotalCases reaches the frequent threshold.
	IsFrequent bool `json:"is_frequent"`
	// Generation identifies the corpus snapshot the scan ran on.
	Generation uint64 `json:"generation"`
}
