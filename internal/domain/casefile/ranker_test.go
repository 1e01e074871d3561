package casefile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestIndex(records []CaseRecord) *Index {
	return BuildIndex(records, 1, []string{"test"})
}

func rankFor(t *testing.T, ix *Index, query SimilarityQuery, limit int, minSimilarity float64) *RankOutcome {
	t.Helper()
	agg := newAggregator(DefaultOptions())
	q := normalizeQuery(&query)
	return rank(context.Background(), agg, ix, &q, limit, minSimilarity)
}

func TestRankOrdering(t *testing.T) {
	day := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	ix := buildTestIndex([]CaseRecord{
		{Identifier: "C-1", DateReceived: day, Location: "Broadwood Road Mini Park"},
		{Identifier: "C-2", DateReceived: day, Location: "Broadwood Rd Park"},
		{Identifier: "C-3", DateReceived: day, Location: "Queensway Plaza"},
	})

	outcome := rankFor(t, ix, SimilarityQuery{Location: "Broadwood Road Mini Park"}, 10, 0.1)

	require.Len(t, outcome.Results, 2)
	assert.Equal(t, "C-1", outcome.Results[0].Case.Identifier)
	assert.Equal(t, "C-2", outcome.Results[1].Case.Identifier)
	assert.Equal(t, 3, outcome.CandidatesConsidered)
	assert.False(t, outcome.Truncated)
	assert.Equal(t, uint64(1), outcome.Generation)
}

func TestRankTieBreaks(t *testing.T) {
	older := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("more recent case wins equal scores", func(t *testing.T) {
		ix := buildTestIndex([]CaseRecord{
			{Identifier: "C-OLD", DateReceived: older, Location: "Broadwood Road"},
			{Identifier: "C-NEW", DateReceived: newer, Location: "Broadwood Road"},
		})
		outcome := rankFor(t, ix, SimilarityQuery{Location: "Broadwood Road"}, 10, 0.1)
		require.Len(t, outcome.Results, 2)
		assert.Equal(t, "C-NEW", outcome.Results[0].Case.Identifier)
		assert.Equal(t, "C-OLD", outcome.Results[1].Case.Identifier)
	})

	t.Run("identifier breaks equal score and date", func(t *testing.T) {
		ix := buildTestIndex([]CaseRecord{
			{Identifier: "C-B", DateReceived: newer, Location: "Broadwood Road"},
			{Identifier: "C-A", DateReceived: newer, Location: "Broadwood Road"},
		})
		outcome := rankFor(t, ix, SimilarityQuery{Location: "Broadwood Road"}, 10, 0.1)
		require.Len(t, outcome.Results, 2)
		assert.Equal(t, "C-A", outcome.Results[0].Case.Identifier)
		assert.Equal(t, "C-B", outcome.Results[1].Case.Identifier)
	})
}

func TestRankLimitBound(t *testing.T) {
	records := make([]CaseRecord, 20)
	for i := range records {
		records[i] = CaseRecord{
			Identifier:   fmt.Sprintf("C-%02d", i),
			DateReceived: time.Date(2021, 1, 1+i, 0, 0, 0, 0, time.UTC),
			Location:     "Broadwood Road",
		}
	}
	ix := buildTestIndex(records)

	outcome := rankFor(t, ix, SimilarityQuery{Location: "Broadwood Road"}, 5, 0.1)

	require.Len(t, outcome.Results, 5)
	assert.Equal(t, 20, outcome.CandidatesConsidered)
	// The retained five are the most recent, newest first.
	for i, r := range outcome.Results {
		assert.Equal(t, fmt.Sprintf("C-%02d", 19-i), r.Case.Identifier)
	}
}

func TestRankMinSimilarityMonotonic(t *testing.T) {
	ix := buildTestIndex([]CaseRecord{
		{Identifier: "C-1", Location: "Broadwood Road Mini Park"},
		{Identifier: "C-2", Location: "Broadwood Rd Park"},
		{Identifier: "C-3", Location: "Broadwood Street"},
		{Identifier: "C-4", Location: "Queensway Plaza"},
	})
	query := SimilarityQuery{Location: "Broadwood Road Mini Park"}

	prevCount := len(rankFor(t, ix, query, 10, 0.0).Results)
	for _, floor := range []float64{0.1, 0.2, 0.3, 0.39, 0.41} {
		count := len(rankFor(t, ix, query, 10, floor).Results)
		assert.LessOrEqual(t, count, prevCount, "floor %v admitted new results", floor)
		prevCount = count
	}
}

func TestRankConsidersBelowFloorCandidates(t *testing.T) {
	ix := buildTestIndex([]CaseRecord{
		{Identifier: "C-1", Location: "Queensway Plaza"},
		{Identifier: "C-2", Location: "Statue Square"},
	})

	outcome := rankFor(t, ix, SimilarityQuery{Location: "Broadwood Road"}, 10, 0.9)

	assert.Empty(t, outcome.Results)
	assert.Equal(t, 2, outcome.CandidatesConsidered)
}

func TestRankDeadlineTruncates(t *testing.T) {
	records := make([]CaseRecord, 600)
	for i := range records {
		records[i] = CaseRecord{
			Identifier: fmt.Sprintf("C-%03d", i),
			Location:   "Broadwood Road",
		}
	}
	ix := buildTestIndex(records)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := newAggregator(DefaultOptions())
	query := SimilarityQuery{Location: "Broadwood Road"}
	q := normalizeQuery(&query)
	outcome := rank(ctx, agg, ix, &q, 10, 0.1)

	assert.True(t, outcome.Truncated)
	assert.Less(t, outcome.CandidatesConsidered, len(records))
}

func TestRankDeterminism(t *testing.T) {
	records := make([]CaseRecord, 50)
	for i := range records {
		records[i] = CaseRecord{
			Identifier:    fmt.Sprintf("C-%02d", i),
			DateReceived:  time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
			Location:      "Broadwood Road",
			SubjectMatter: "fallen tree",
		}
	}
	ix := buildTestIndex(records)
	query := SimilarityQuery{Location: "Broadwood Road", SubjectMatter: "fallen tree"}

	first := rankFor(t, ix, query, 10, 0.1)
	for i := 0; i < 5; i++ {
		again := rankFor(t, ix, query, 10, 0.1)
		require.Len(t, again.Results, len(first.Results))
		for j := range first.Results {
			assert.Equal(t, first.Results[j].Case.Identifier, again.Results[j].Case.Identifier)
			assert.Equal(t, first.Results[j].CompositeScore, again.Results[j].CompositeScore)
		}
	}
}
