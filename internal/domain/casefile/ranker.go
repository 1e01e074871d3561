package casefile

import (
	"container/heap"
	"context"
	"sort"
)

// rankBatchSize is how many candidates are scored between context deadline
// checks on large corpora.
const rankBatchSize = 256

// betterMatch defines the total order on results: composite score
// descending, then DateReceived descending (prefer more recent precedent),
// then Identifier ascending.  The identifier tie-break guarantees
// reproducible output even for otherwise identical candidates.
func betterMatch(a, b *MatchResult) bool {
	if a.CompositeScore != b.CompositeScore {
		return a.CompositeScore > b.CompositeScore
	}
	if !a.Case.DateReceived.Equal(b.Case.DateReceived) {
		return a.Case.DateReceived.After(b.Case.DateReceived)
	}
	return a.Case.Identifier < b.Case.Identifier
}

// topKHeap is a bounded min-heap of the best K results seen so far: the
// worst retained result sits at the root and is evicted when a better
// candidate arrives.  Keeping only K entries holds per-query cost at
// O(N log K) instead of sorting the whole candidate set.
type topKHeap struct {
	items []MatchResult
	limit int
}

func (h *topKHeap) Len() int { return len(h.items) }

// Less puts the worst result at the root.
func (h *topKHeap) Less(i, j int) bool { return betterMatch(&h.items[j], &h.items[i]) }

func (h *topKHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *topKHeap) Push(x interface{}) { h.items = append(h.items, x.(MatchResult)) }

func (h *topKHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// offer inserts a result, evicting the current worst when full.
func (h *topKHeap) offer(r MatchResult) {
	if len(h.items) < h.limit {
		heap.Push(h, r)
		return
	}
	if betterMatch(&r, &h.items[0]) {
		h.items[0] = r
		heap.Fix(h, 0)
	}
}

// sorted drains the heap into best-first order.
func (h *topKHeap) sorted() []MatchResult {
	out := make([]MatchResult, len(h.items))
	copy(out, h.items)
	sort.Slice(out, func(i, j int) bool { return betterMatch(&out[i], &out[j]) })
	return out
}

// rank scores every candidate in the snapshot, discards those below the
// floor, and keeps the best limit results.  The context deadline is checked
// between batches; on expiry the partial top-K gathered so far is returned
// with Truncated set rather than blocking past the deadline.
func rank(ctx context.Context, agg aggregator, ix *Index, q *normalizedCase, limit int, minSimilarity float64) *RankOutcome {
	h := &topKHeap{items: make([]MatchResult, 0, limit), limit: limit}
	considered := 0
	truncated := false

	for i := range ix.cases {
		if i%rankBatchSize == 0 && ctx.Err() != nil {
			truncated = true
			break
		}
		result := agg.score(q, &ix.cases[i])
		considered++
		if result.CompositeScore < minSimilarity {
			continue
		}
		h.offer(result)
	}

	return &RankOutcome{
		Results:              h.sorted(),
		CandidatesConsidered: considered,
		Truncated:            truncated,
		Generation:           ix.generation,
	}
}
