package casefile

import (
	"context"
	"time"
)

// CorpusSource supplies the already-typed historical records for a snapshot.
// Implementations parse spreadsheets, CSV exports, or database tables; this
// core only consumes CaseRecords.  The source must never include the live
// case store a new case is about to be written into; only designated
// historical datasets participate, which is what prevents a case from
// matching itself.
type CorpusSource interface {
	LoadCases(ctx context.Context, datasets []string) ([]CaseRecord, error)
}

// indexedCase pairs a record with its pre-computed normalized form so the
// per-query cost is comparison only, never re-normalization.
type indexedCase struct {
	record CaseRecord
	norm   normalizedCase
}

// Index is an immutable snapshot of the historical corpus.  It exposes only
// iteration; filtering and ranking are the Ranker's job.  A snapshot is
// never mutated after construction; refresh builds a replacement and the
// engine swaps the pointer atomically, so in-flight queries always finish on
// the snapshot they acquired.
type Index struct {
	cases      []indexedCase
	generation uint64
	loadedAt   time.Time
	datasets   []string
	// undatedCases counts records whose DateReceived was missing or
	// unparseable; such records still participate in ranking on their
	// remaining fields.
	undatedCases int
}

// BuildIndex normalizes records into a new immutable snapshot.  Records with
// malformed fields are never rejected: an unusable field is simply absent
// for scoring.
func BuildIndex(records []CaseRecord, generation uint64, datasets []string) *Index {
	cases := make([]indexedCase, 0, len(records))
	undated := 0
	for i := range records {
		if records[i].DateReceived.IsZero() {
			undated++
		}
		cases = append(cases, indexedCase{
			record: records[i],
			norm:   normalizeRecord(&records[i]),
		})
	}
	ds := make([]string, len(datasets))
	copy(ds, datasets)
	return &Index{
		cases:        cases,
		generation:   generation,
		loadedAt:     time.Now().UTC(),
		datasets:     ds,
		undatedCases: undated,
	}
}

// Len returns the number of records in the snapshot.
func (ix *Index) Len() int { return len(ix.cases) }

// Generation returns the snapshot's monotonically increasing generation
// number.
func (ix *Index) Generation() uint64 { return ix.generation }

// LoadedAt returns the UTC time the snapshot was built.
func (ix *Index) LoadedAt() time.Time { return ix.loadedAt }

// Datasets returns the provenance tags loaded into this snapshot.
func (ix *Index) Datasets() []string {
	out := make([]string, len(ix.datasets))
	copy(out, ix.datasets)
	return out
}

// UndatedCases returns the count of records without a usable DateReceived.
func (ix *Index) UndatedCases() int { return ix.undatedCases }

// SnapshotInfo is the externally visible description of a snapshot.
type SnapshotInfo struct {
	Generation   uint64    `json:"generation"`
	Records      int       `json:"records"`
	UndatedCases int       `json:"undated_cases"`
	Datasets     []string  `json:"datasets"`
	LoadedAt     time.Time `json:"loaded_at"`
}

// Info summarises the snapshot.
func (ix *Index) Info() SnapshotInfo {
	return SnapshotInfo{
		Generation:   ix.generation,
		Records:      len(ix.cases),
		UndatedCases: ix.undatedCases,
		Datasets:     ix.Datasets(),
		LoadedAt:     ix.loadedAt,
	}
}
