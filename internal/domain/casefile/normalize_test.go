package casefile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLocation(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases and trims", "  Broadwood Road Mini Park  ", "broadwood road mini park"},
		{"strips punctuation", "Broadwood Road, Mini Park.", "broadwood road mini park"},
		{"collapses whitespace", "broadwood   road\tmini  park", "broadwood road mini park"},
		{"keeps cjk runes", "黃泥涌道 Broadwood Road", "黃泥涌道 broadwood road"},
		{"empty input", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeLocation(tt.input))
		})
	}
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "fallen tree", NormalizeText("  Fallen   Tree "))
	assert.Equal(t, "", NormalizeText("\t\n"))
}

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already canonical", "11SW-D/805", "11SW-D/805"},
		{"lowercase input", "11sw-d/805", "11SW-D/805"},
		{"letter infix", "11SW-D/R805", "11SW-D/R805"},
		{"embedded in sentence", "Slope no. 11SW-D/805 near the footpath", "11SW-D/805"},
		{"embedded bilingual", "斜坡編號 11SW-D/805 有裂縫", "11SW-D/805"},
		{"missing hyphen repaired", "11SWD/805", "11SW-D/805"},
		{"whitespace stripped", " 11SW - D / 805 ", "11SW-D/805"},
		{"leading I repaired to 1", "ISW-D/805", "1SW-D/805"},
		{"leading O repaired to 0", "ONE-A/C12", "0NE-A/C12"},
		{"leading S repaired to 5", "SSW-D/805", "5SW-D/805"},
		{"repair skipped without valid prefix", "I-5", "I-5"},
		{"unstructured value kept stripped", "TREE 42", "TREE42"},
		{"empty", "  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeIdentifier(tt.input))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		full  string
		tail  string
	}{
		{"plain eight digits", "28904087", "28904087", "28904087"},
		{"formatted", "(852) 2890-4087", "85228904087", "28904087"},
		{"leading zero prefix", "028904087", "028904087", "28904087"},
		{"short number", "999", "999", "999"},
		{"no digits", "n/a", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NormalizePhone(tt.input)
			assert.Equal(t, tt.full, p.Full)
			assert.Equal(t, tt.tail, p.Tail)
		})
	}
	assert.True(t, NormalizePhone("none").IsEmpty())
}

func TestTokenSet(t *testing.T) {
	set := tokenSet("fallen tree on slope")
	assert.Len(t, set, 4)
	assert.Contains(t, set, "fallen")
	assert.Contains(t, set, "slope")

	assert.Nil(t, tokenSet(""))
	assert.Nil(t, tokenSet("---"))
}

func TestSimilarityRatio(t *testing.T) {
	assert.Equal(t, 1.0, similarityRatio("broadwood road", "broadwood road"))
	assert.Equal(t, 0.0, similarityRatio("", ""))

	// Abbreviated road name still scores above the duplicate-grade band.
	ratio := similarityRatio("broadwood road mini park", "broadwood rd park")
	assert.GreaterOrEqual(t, ratio, 0.7)
	assert.InDelta(t, 0.7083, ratio, 0.001)

	// Symmetric.
	assert.Equal(t,
		similarityRatio("broadwood rd park", "broadwood road mini park"),
		ratio)
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, levenshtein([]rune(tt.a), []rune(tt.b)),
			"levenshtein(%q, %q)", tt.a, tt.b)
	}
}
