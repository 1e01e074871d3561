package casefile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normFromQuery(q SimilarityQuery) normalizedCase {
	return normalizeQuery(&q)
}

func TestComparatorRegistryOrder(t *testing.T) {
	registry := newComparatorRegistry()
	require.Len(t, registry, 5)

	expected := []FieldKind{FieldLocation, FieldIdentifier, FieldSubject, FieldName, FieldPhone}
	for i, cmp := range registry {
		assert.Equal(t, expected[i], cmp.Field())
	}
}

func TestLocationComparator(t *testing.T) {
	q := normFromQuery(SimilarityQuery{Location: "Broadwood Road Mini Park"})

	t.Run("identical", func(t *testing.T) {
		c := normFromQuery(SimilarityQuery{Location: "broadwood road mini park"})
		score, present := locationComparator{}.Compare(&q, &c)
		assert.True(t, present)
		assert.Equal(t, 1.0, score)
	})

	t.Run("abbreviated variant scores high", func(t *testing.T) {
		c := normFromQuery(SimilarityQuery{Location: "Broadwood Rd Park"})
		score, present := locationComparator{}.Compare(&q, &c)
		assert.True(t, present)
		assert.GreaterOrEqual(t, score, 0.7)
	})

	t.Run("absent when either side empty", func(t *testing.T) {
		c := normFromQuery(SimilarityQuery{})
		_, present := locationComparator{}.Compare(&q, &c)
		assert.False(t, present)
	})
}

func TestIdentifierComparator(t *testing.T) {
	cmp := identifierComparator{}

	tests := []struct {
		name    string
		query   string
		cand    string
		score   float64
		present bool
	}{
		{"exact", "11SW-D/805", "11SW-D/805", 1.0, true},
		{"exact after normalization", "slope 11SW-D/805 cracked", "11sw-d/805", 1.0, true},
		{"structural partial differing infix", "11SW-D/805", "11SW-D/R805", IdentifierPartialScore, true},
		{"structural partial is symmetric", "11SW-D/R805", "11SW-D/805", IdentifierPartialScore, true},
		{"different trailing number", "11SW-D/805", "11SW-D/806", 0, true},
		{"different district", "11SW-D/805", "12NE-D/805", 0, true},
		{"both absent", "", "", 0, false},
		{"one absent", "11SW-D/805", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := normFromQuery(SimilarityQuery{SlopeOrTreeNo: tt.query})
			c := normFromQuery(SimilarityQuery{SlopeOrTreeNo: tt.cand})
			score, present := cmp.Compare(&q, &c)
			assert.Equal(t, tt.present, present)
			assert.Equal(t, tt.score, score)
		})
	}

	t.Run("containment capped below structural partial", func(t *testing.T) {
		q := normalizedCase{identifier: "TREE42"}
		c := normalizedCase{identifier: "TREE42A"}
		score, present := cmp.Compare(&q, &c)
		assert.True(t, present)
		assert.Greater(t, score, 0.0)
		assert.LessOrEqual(t, score, IdentifierContainmentCap)
		assert.Less(t, score, IdentifierPartialScore)
	})

	t.Run("containment ignored when lengths diverge", func(t *testing.T) {
		q := normalizedCase{identifier: "TREE42"}
		c := normalizedCase{identifier: "TREE42AREA9999"}
		score, present := cmp.Compare(&q, &c)
		assert.True(t, present)
		assert.Equal(t, 0.0, score)
	})
}

func TestSubjectComparator(t *testing.T) {
	cmp := subjectComparator{}

	tests := []struct {
		name    string
		query   string
		cand    string
		score   float64
		present bool
	}{
		{"identical phrase", "fallen tree", "Fallen Tree", 1.0, true},
		{"partial overlap", "fallen tree", "fallen branch", 1.0 / 3.0, true},
		{"no overlap", "fallen tree", "water seepage", 0, true},
		{"query empty", "", "fallen tree", 0, false},
		{"candidate empty", "fallen tree", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := normFromQuery(SimilarityQuery{SubjectMatter: tt.query})
			c := normFromQuery(SimilarityQuery{SubjectMatter: tt.cand})
			score, present := cmp.Compare(&q, &c)
			assert.Equal(t, tt.present, present)
			assert.InDelta(t, tt.score, score, 1e-12)
		})
	}
}

func TestNameComparator(t *testing.T) {
	q := normFromQuery(SimilarityQuery{CallerName: "Chan Tai Man"})
	c := normFromQuery(SimilarityQuery{CallerName: "CHAN TAI MAN"})

	score, present := nameComparator{}.Compare(&q, &c)
	assert.True(t, present)
	assert.Equal(t, 1.0, score)
	assert.True(t, IsNameMatch(score))
	assert.False(t, IsNameMatch(0.79))
	assert.True(t, IsNameMatch(NameMatchThreshold))
}

func TestPhoneComparator(t *testing.T) {
	cmp := phoneComparator{}

	tests := []struct {
		name    string
		query   string
		cand    string
		score   float64
		present bool
	}{
		{"exact digits", "2890 4087", "28904087", 1.0, true},
		{"tail match with extra prefix", "28904087", "028904087", PhoneTailScore, true},
		{"tail match both prefixed", "85228904087", "028904087", PhoneTailScore, true},
		{"different numbers", "28904087", "28904088", 0, true},
		{"short numbers never tail-match", "4087", "904087", 0, true},
		{"query absent", "", "28904087", 0, false},
		{"candidate absent", "28904087", "n/a", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := normFromQuery(SimilarityQuery{ContactNo: tt.query})
			c := normFromQuery(SimilarityQuery{ContactNo: tt.cand})
			score, present := cmp.Compare(&q, &c)
			assert.Equal(t, tt.present, present)
			assert.Equal(t, tt.score, score)
		})
	}
}
