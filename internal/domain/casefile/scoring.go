package casefile

import (
	"math"

	"github.com/openlands/caselens/pkg/errors"
)

// Weights are the fixed per-field scoring weights.  They must sum to 1.0;
// this is a construction-time invariant, never renegotiated per query.
type Weights struct {
	Location   float64 `json:"location"`
	Identifier float64 `json:"identifier"`
	Subject    float64 `json:"subject"`
	Name       float64 `json:"name"`
	Phone      float64 `json:"phone"`
}

// DefaultWeights returns the standard weight set: location 0.40, identifier
// 0.30, subject 0.15, name 0.10, phone 0.05.
func DefaultWeights() Weights {
	return Weights{Location: 0.40, Identifier: 0.30, Subject: 0.15, Name: 0.10, Phone: 0.05}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Location + w.Identifier + w.Subject + w.Name + w.Phone
}

// of returns the weight for a field kind.
func (w Weights) of(f FieldKind) float64 {
	switch f {
	case FieldLocation:
		return w.Location
	case FieldIdentifier:
		return w.Identifier
	case FieldSubject:
		return w.Subject
	case FieldName:
		return w.Name
	case FieldPhone:
		return w.Phone
	default:
		return 0
	}
}

// weightSumTolerance is the permitted deviation of the weight sum from 1.0.
const weightSumTolerance = 1e-9

// Validate checks the weight invariants.  A violation is a fatal
// configuration error raised at engine construction, never mid-query.
func (w Weights) Validate() error {
	for _, f := range []struct {
		kind  FieldKind
		value float64
	}{
		{FieldLocation, w.Location},
		{FieldIdentifier, w.Identifier},
		{FieldSubject, w.Subject},
		{FieldName, w.Name},
		{FieldPhone, w.Phone},
	} {
		if f.value < 0 {
			return errors.Newf(errors.ErrCodeEngineWeightsInvalid,
				"weight for %s must not be negative, got %v", f.kind, f.value)
		}
	}
	if math.Abs(w.Sum()-1.0) > weightSumTolerance {
		return errors.Newf(errors.ErrCodeEngineWeightsInvalid,
			"weights must sum to 1.0, got %v", w.Sum())
	}
	return nil
}

// EngineOptions are the engine's fixed scoring parameters, supplied at
// construction.
type EngineOptions struct {
	Weights            Weights
	DuplicateThreshold float64
	MinSimilarity      float64
	FrequentThreshold  int
	DefaultLimit       int
	// RequireNameMatch additionally gates the duplicate flag on the name
	// comparator reaching NameMatchThreshold.  Off by default: the composite
	// threshold is the sole duplicate criterion.
	RequireNameMatch bool
}

// DefaultOptions returns the standard engine parameters.
func DefaultOptions() EngineOptions {
	return EngineOptions{
		Weights:            DefaultWeights(),
		DuplicateThreshold: 0.70,
		MinSimilarity:      0.30,
		FrequentThreshold:  3,
		DefaultLimit:       10,
	}
}

// Validate checks every construction-time invariant of the options.
func (o EngineOptions) Validate() error {
	if err := o.Weights.Validate(); err != nil {
		return err
	}
	if o.DuplicateThreshold < 0 || o.DuplicateThreshold > 1 {
		return errors.Newf(errors.ErrCodeEngineThresholdInvalid,
			"duplicate threshold %v is out of range [0, 1]", o.DuplicateThreshold)
	}
	if o.MinSimilarity < 0 || o.MinSimilarity > 1 {
		return errors.Newf(errors.ErrCodeEngineThresholdInvalid,
			"minimum similarity %v is out of range [0, 1]", o.MinSimilarity)
	}
	if o.DuplicateThreshold < o.MinSimilarity {
		return errors.Newf(errors.ErrCodeEngineThresholdInvalid,
			"duplicate threshold %v must be >= minimum similarity %v",
			o.DuplicateThreshold, o.MinSimilarity)
	}
	if o.FrequentThreshold < 1 {
		return errors.Newf(errors.ErrCodeEngineThresholdInvalid,
			"frequent threshold must be >= 1, got %d", o.FrequentThreshold)
	}
	if o.DefaultLimit < 1 {
		return errors.Newf(errors.ErrCodeEngineThresholdInvalid,
			"default limit must be >= 1, got %d", o.DefaultLimit)
	}
	return nil
}

// aggregator combines per-field comparator scores into one composite score.
type aggregator struct {
	comparators []FieldComparator
	opts        EngineOptions
}

func newAggregator(opts EngineOptions) aggregator {
	return aggregator{comparators: newComparatorRegistry(), opts: opts}
}

// score computes the MatchResult for one candidate.  Fields where either
// side is absent contribute nothing; their weight is not redistributed, so a
// terse query can still reach a meaningful, if capped, score.  Comparators
// run in the registry's fixed order, making the floating-point sum
// deterministic.
func (a aggregator) score(q *normalizedCase, rec *indexedCase) MatchResult {
	components := make(map[FieldKind]float64, len(a.comparators))
	composite := 0.0
	nameScore, namePresent := 0.0, false

	for _, cmp := range a.comparators {
		s, present := cmp.Compare(q, &rec.norm)
		if !present {
			continue
		}
		components[cmp.Field()] = s
		composite += a.opts.Weights.of(cmp.Field()) * s
		if cmp.Field() == FieldName {
			nameScore, namePresent = s, true
		}
	}

	// Guard against accumulated rounding pushing past the bounds.
	if composite > 1 {
		composite = 1
	}
	if composite < 0 {
		composite = 0
	}

	duplicate := composite >= a.opts.DuplicateThreshold
	if duplicate && a.opts.RequireNameMatch {
		duplicate = namePresent && IsNameMatch(nameScore)
	}

	return MatchResult{
		Case:                 &rec.record,
		CompositeScore:       composite,
		ComponentScores:      components,
		IsPotentialDuplicate: duplicate,
	}
}
