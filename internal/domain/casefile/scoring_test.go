package casefile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlands/caselens/pkg/errors"
)

func TestWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{"default weights", DefaultWeights(), false},
		{"uniform weights", Weights{0.2, 0.2, 0.2, 0.2, 0.2}, false},
		{"sum below one", Weights{Location: 0.4, Identifier: 0.3}, true},
		{"sum above one", Weights{0.4, 0.3, 0.15, 0.1, 0.1}, true},
		{"negative weight", Weights{0.5, 0.3, 0.15, 0.1, -0.05}, true},
		{"within tolerance", Weights{0.4, 0.3, 0.15, 0.1, 0.05 + 1e-12}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodeEngineWeightsInvalid))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEngineOptionsValidate(t *testing.T) {
	valid := DefaultOptions()
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*EngineOptions)
	}{
		{"duplicate threshold above one", func(o *EngineOptions) { o.DuplicateThreshold = 1.1 }},
		{"negative min similarity", func(o *EngineOptions) { o.MinSimilarity = -0.1 }},
		{"duplicate below min similarity", func(o *EngineOptions) {
			o.DuplicateThreshold = 0.2
			o.MinSimilarity = 0.3
		}},
		{"zero frequent threshold", func(o *EngineOptions) { o.FrequentThreshold = 0 }},
		{"zero default limit", func(o *EngineOptions) { o.DefaultLimit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeEngineThresholdInvalid))
		})
	}
}

func fullRecord() CaseRecord {
	return CaseRecord{
		Identifier:    "C-2021-0001",
		SourceDataset: "complaints-2021",
		DateReceived:  time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
		Location:      "Broadwood Road Mini Park",
		SlopeOrTreeNo: "11SW-D/805",
		SubjectMatter: "Fallen Tree",
		CaseType:      "Emergency",
		CallerName:    "Chan Tai Man",
		ContactNo:     "28904087",
	}
}

func indexed(r CaseRecord) indexedCase {
	return indexedCase{record: r, norm: normalizeRecord(&r)}
}

func TestAggregatorReflexivity(t *testing.T) {
	agg := newAggregator(DefaultOptions())
	rec := indexed(fullRecord())
	q := normFromQuery(SimilarityQuery{
		Location:      rec.record.Location,
		SlopeOrTreeNo: rec.record.SlopeOrTreeNo,
		SubjectMatter: rec.record.SubjectMatter,
		CallerName:    rec.record.CallerName,
		ContactNo:     rec.record.ContactNo,
	})

	result := agg.score(&q, &rec)
	assert.Equal(t, 1.0, result.CompositeScore)
	assert.True(t, result.IsPotentialDuplicate)
	require.Len(t, result.ComponentScores, 5)
	for field, score := range result.ComponentScores {
		assert.Equal(t, 1.0, score, "component %s", field)
	}
}

func TestAggregatorAbsentFieldsExcluded(t *testing.T) {
	agg := newAggregator(DefaultOptions())
	rec := indexed(fullRecord())

	// Location-only query: the other weights are not redistributed, so a
	// perfect location alone yields exactly its weight.
	q := normFromQuery(SimilarityQuery{Location: "Broadwood Road Mini Park"})
	result := agg.score(&q, &rec)

	assert.InDelta(t, 0.40, result.CompositeScore, 1e-12)
	assert.False(t, result.IsPotentialDuplicate)
	require.Len(t, result.ComponentScores, 1)
	assert.Contains(t, result.ComponentScores, FieldLocation)
}

func TestAggregatorDuplicateBoundary(t *testing.T) {
	agg := newAggregator(DefaultOptions())
	rec := indexed(fullRecord())

	t.Run("at threshold flags duplicate", func(t *testing.T) {
		// Exact location (0.40) plus exact identifier (0.30) lands on the
		// 0.70 threshold; reaching it counts.
		q := normFromQuery(SimilarityQuery{
			Location:      "Broadwood Road Mini Park",
			SlopeOrTreeNo: "11SW-D/805",
		})
		result := agg.score(&q, &rec)
		assert.GreaterOrEqual(t, result.CompositeScore, 0.70)
		assert.True(t, result.IsPotentialDuplicate)
	})

	t.Run("just below threshold does not flag", func(t *testing.T) {
		// Exact location (0.40) plus structural-partial identifier
		// (0.85 x 0.30 = 0.255) stays below 0.70.
		q := normFromQuery(SimilarityQuery{
			Location:      "Broadwood Road Mini Park",
			SlopeOrTreeNo: "11SW-D/R805",
		})
		result := agg.score(&q, &rec)
		assert.InDelta(t, 0.655, result.CompositeScore, 1e-9)
		assert.False(t, result.IsPotentialDuplicate)
	})
}

func TestAggregatorScoreBounds(t *testing.T) {
	agg := newAggregator(DefaultOptions())
	rec := indexed(fullRecord())

	queries := []SimilarityQuery{
		{Location: "completely elsewhere"},
		{SlopeOrTreeNo: "99ZZ-X/1"},
		{SubjectMatter: "water seepage", CallerName: "Wong Siu Ming"},
		{
			Location:      rec.record.Location,
			SlopeOrTreeNo: rec.record.SlopeOrTreeNo,
			SubjectMatter: rec.record.SubjectMatter,
			CallerName:    rec.record.CallerName,
			ContactNo:     rec.record.ContactNo,
		},
	}
	for _, query := range queries {
		q := normFromQuery(query)
		result := agg.score(&q, &rec)
		assert.GreaterOrEqual(t, result.CompositeScore, 0.0)
		assert.LessOrEqual(t, result.CompositeScore, 1.0)
		for field, score := range result.ComponentScores {
			assert.GreaterOrEqual(t, score, 0.0, "component %s", field)
			assert.LessOrEqual(t, score, 1.0, "component %s", field)
		}
	}
}

func TestAggregatorRequireNameMatch(t *testing.T) {
	opts := DefaultOptions()
	opts.RequireNameMatch = true
	agg := newAggregator(opts)
	rec := indexed(fullRecord())

	t.Run("threshold met but name differs", func(t *testing.T) {
		q := normFromQuery(SimilarityQuery{
			Location:      rec.record.Location,
			SlopeOrTreeNo: rec.record.SlopeOrTreeNo,
			CallerName:    "Totally Different Person",
		})
		result := agg.score(&q, &rec)
		assert.GreaterOrEqual(t, result.CompositeScore, 0.70)
		assert.False(t, result.IsPotentialDuplicate)
	})

	t.Run("threshold met with matching name", func(t *testing.T) {
		q := normFromQuery(SimilarityQuery{
			Location:      rec.record.Location,
			SlopeOrTreeNo: rec.record.SlopeOrTreeNo,
			CallerName:    rec.record.CallerName,
		})
		result := agg.score(&q, &rec)
		assert.True(t, result.IsPotentialDuplicate)
	})
}

func TestAggregatorDeterminism(t *testing.T) {
	agg := newAggregator(DefaultOptions())
	rec := indexed(fullRecord())
	q := normFromQuery(SimilarityQuery{
		Location:      "Broadwood Rd Park",
		SlopeOrTreeNo: "11SW-D/R805",
		SubjectMatter: "fallen branch",
	})

	first := agg.score(&q, &rec)
	for i := 0; i < 10; i++ {
		again := agg.score(&q, &rec)
		assert.Equal(t, first.CompositeScore, again.CompositeScore)
	}
}
