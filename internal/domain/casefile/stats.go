package casefile

// Statistics membership reuses the comparator logic rather than duplicating
// it: a record belongs to a key's cohort when the key is contained in the
// record's normalized location, when the location similarity ratio reaches
// statsLocationThreshold, or when the identifier comparator scores at least
// IdentifierPartialScore against the key.

import "strings"

// statsLocationThreshold is the location ratio at which a record is counted
// toward a key's cohort when plain containment fails.
const statsLocationThreshold = 0.8

// statsKey is the pre-normalized form of a StatsQuery.
type statsKey struct {
	location   string
	identifier string
	name       string
}

func normalizeStatsQuery(q *StatsQuery) statsKey {
	return statsKey{
		location:   NormalizeLocation(q.Key),
		identifier: NormalizeIdentifier(q.Key),
		name:       NormalizeText(q.CallerName),
	}
}

// matchesKey decides cohort membership for one record.
func (k *statsKey) matchesKey(rec *indexedCase) bool {
	if k.location != "" && rec.norm.location != "" {
		if strings.Contains(rec.norm.location, k.location) {
			return true
		}
		if similarityRatio(k.location, rec.norm.location) >= statsLocationThreshold {
			return true
		}
	}
	if k.identifier != "" && rec.norm.identifier != "" {
		keyCase := normalizedCase{identifier: k.identifier}
		if score, present := (identifierComparator{}).Compare(&keyCase, &rec.norm); present && score >= IdentifierPartialScore {
			return true
		}
	}
	return false
}

// matchesCaller applies the optional caller-name filter.
func (k *statsKey) matchesCaller(rec *indexedCase) bool {
	if k.name == "" {
		return true
	}
	if rec.norm.name == "" {
		return false
	}
	return IsNameMatch(similarityRatio(k.name, rec.norm.name))
}

// collectStatistics scans the snapshot for the key's cohort and aggregates
// frequency, date range, and category breakdowns.  Records without a usable
// date count toward totals but not the date range.
func collectStatistics(ix *Index, q *StatsQuery, frequentThreshold int) *LocationStatistics {
	key := normalizeStatsQuery(q)

	stats := &LocationStatistics{
		Key:                    q.Key,
		SubjectMatterBreakdown: make(map[string]int),
		CaseTypeBreakdown:      make(map[string]int),
		Generation:             ix.generation,
	}

	for i := range ix.cases {
		rec := &ix.cases[i]
		if !key.matchesKey(rec) || !key.matchesCaller(rec) {
			continue
		}
		stats.TotalCases++

		if subject := NormalizeText(rec.record.SubjectMatter); subject != "" {
			stats.SubjectMatterBreakdown[subject]++
		}
		if caseType := NormalizeText(rec.record.CaseType); caseType != "" {
			stats.CaseTypeBreakdown[caseType]++
		}

		received := rec.record.DateReceived
		if received.IsZero() {
			continue
		}
		if stats.DateRange == nil {
			stats.DateRange = &DateRange{Earliest: received, Latest: received}
			continue
		}
		if received.Before(stats.DateRange.Earliest) {
			stats.DateRange.Earliest = received
		}
		if received.After(stats.DateRange.Latest) {
			stats.DateRange.Latest = received
		}
	}

	stats.IsFrequent = stats.TotalCases >= frequentThreshold
	return stats
}
