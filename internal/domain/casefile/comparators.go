package casefile

import "strings"

// FieldComparator scores one field of two normalized cases.  Compare returns
// (score, present); present is false when at least one side is empty, in
// which case the field is excluded from aggregation entirely rather than
// scored as zero.
type FieldComparator interface {
	Field() FieldKind
	Compare(query, candidate *normalizedCase) (score float64, present bool)
}

// Similarity grade constants.
const (
	// IdentifierPartialScore is awarded for a structural partial match:
	// same district prefix and trailing number, differing letter infix.
	IdentifierPartialScore = 0.85

	// IdentifierContainmentCap bounds the graded containment score so that
	// containment evidence never outranks a structural partial match.
	IdentifierContainmentCap = 0.80

	// identifierContainmentMaxLenDiff is the largest length difference for
	// which substring containment is considered evidence at all.
	identifierContainmentMaxLenDiff = 3

	// PhoneTailScore is awarded when only the last-8-digit suffixes match,
	// e.g. a regional number recorded once with and once without its
	// area-code prefix.
	PhoneTailScore = 0.9

	// NameMatchThreshold is the ratio at which two caller names are
	// considered the same person.  Diagnostic only: the raw ratio, not the
	// flag, feeds the weighted sum.
	NameMatchThreshold = 0.8
)

// newComparatorRegistry returns the comparator set in the fixed, declared
// aggregation order: location, identifier, subject, name, phone.  The
// aggregator iterates this slice; the order determines floating-point
// summation order and must not change.
func newComparatorRegistry() []FieldComparator {
	return []FieldComparator{
		locationComparator{},
		identifierComparator{},
		subjectComparator{},
		nameComparator{},
		phoneComparator{},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Location
// ─────────────────────────────────────────────────────────────────────────────

// locationComparator scores free-text locations by normalized edit-distance
// ratio.  No internal cutoff: the raw ratio feeds the weighted sum directly.
type locationComparator struct{}

func (locationComparator) Field() FieldKind { return FieldLocation }

func (locationComparator) Compare(q, c *normalizedCase) (float64, bool) {
	if q.location == "" || c.location == "" {
		return 0, false
	}
	return similarityRatio(q.location, c.location), true
}

// ─────────────────────────────────────────────────────────────────────────────
// Slope/tree identifier
// ─────────────────────────────────────────────────────────────────────────────

// identifierComparator scores structured slope/tree identifiers:
// exact match 1.0; structural partial match (same district prefix and
// trailing number, differing letter infix) 0.85; substring containment with
// a length difference of at most 3 a graded score proportional to the
// overlap, capped at 0.80; otherwise 0.
type identifierComparator struct{}

func (identifierComparator) Field() FieldKind { return FieldIdentifier }

func (identifierComparator) Compare(q, c *normalizedCase) (float64, bool) {
	a, b := q.identifier, c.identifier
	if a == "" || b == "" {
		return 0, false
	}
	if a == b {
		return 1.0, true
	}

	if structuralPartialMatch(a, b) {
		return IdentifierPartialScore, true
	}

	if score, ok := containmentScore(a, b); ok {
		return score, true
	}
	return 0, true
}

// structuralPartialMatch reports whether two canonical identifiers differ
// only in the optional letter infix, e.g. "11SW-D/805" vs "11SW-D/R805".
func structuralPartialMatch(a, b string) bool {
	pa := identifierParts.FindStringSubmatch(a)
	pb := identifierParts.FindStringSubmatch(b)
	if pa == nil || pb == nil {
		return false
	}
	// District digits, district letters, section letter, trailing number all
	// equal; infix differs (equal infix would have been an exact match).
	return pa[1] == pb[1] && pa[2] == pb[2] && pa[3] == pb[3] && pa[5] == pb[5] && pa[4] != pb[4]
}

// containmentScore grades substring containment between identifiers of
// similar length, proportional to the overlap.
func containmentScore(a, b string) (float64, bool) {
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(longer)-len(shorter) > identifierContainmentMaxLenDiff {
		return 0, false
	}
	if !strings.Contains(longer, shorter) {
		return 0, false
	}
	score := float64(len(shorter)) / float64(len(longer))
	if score > IdentifierContainmentCap {
		score = IdentifierContainmentCap
	}
	return score, true
}

// ─────────────────────────────────────────────────────────────────────────────
// Subject matter
// ─────────────────────────────────────────────────────────────────────────────

// subjectComparator scores short category phrases by Jaccard similarity of
// their keyword token sets.  Two empty sets are absent, not a match.
type subjectComparator struct{}

func (subjectComparator) Field() FieldKind { return FieldSubject }

func (subjectComparator) Compare(q, c *normalizedCase) (float64, bool) {
	if len(q.subjectTokens) == 0 || len(c.subjectTokens) == 0 {
		return 0, false
	}
	intersection := 0
	for tok := range q.subjectTokens {
		if _, ok := c.subjectTokens[tok]; ok {
			intersection++
		}
	}
	union := len(q.subjectTokens) + len(c.subjectTokens) - intersection
	return float64(intersection) / float64(union), true
}

// ─────────────────────────────────────────────────────────────────────────────
// Caller name
// ─────────────────────────────────────────────────────────────────────────────

// nameComparator scores caller names with the same ratio as locations.  The
// match flag at NameMatchThreshold is surfaced for diagnostics; the raw
// ratio is what feeds the weighted sum.
type nameComparator struct{}

func (nameComparator) Field() FieldKind { return FieldName }

func (nameComparator) Compare(q, c *normalizedCase) (float64, bool) {
	if q.name == "" || c.name == "" {
		return 0, false
	}
	return similarityRatio(q.name, c.name), true
}

// IsNameMatch reports whether a name component score reaches the diagnostic
// match level.
func IsNameMatch(score float64) bool { return score >= NameMatchThreshold }

// ─────────────────────────────────────────────────────────────────────────────
// Contact number
// ─────────────────────────────────────────────────────────────────────────────

// phoneComparator scores contact numbers: exact full-digit match 1.0,
// last-8-digit suffix match 0.9, otherwise 0.
type phoneComparator struct{}

func (phoneComparator) Field() FieldKind { return FieldPhone }

func (phoneComparator) Compare(q, c *normalizedCase) (float64, bool) {
	if q.phone.IsEmpty() || c.phone.IsEmpty() {
		return 0, false
	}
	if q.phone.Full == c.phone.Full {
		return 1.0, true
	}
	if len(q.phone.Tail) == 8 && q.phone.Tail == c.phone.Tail {
		return PhoneTailScore, true
	}
	return 0, true
}
