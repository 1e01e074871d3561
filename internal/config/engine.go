package config

import "github.com/openlands/caselens/internal/domain/casefile"

// EngineOptions converts the validated engine configuration into the domain
// engine's option set.
func (e EngineConfig) EngineOptions() casefile.EngineOptions {
	return casefile.EngineOptions{
		Weights: casefile.Weights{
			Location:   e.Weights.Location,
			Identifier: e.Weights.Identifier,
			Subject:    e.Weights.Subject,
			Name:       e.Weights.Name,
			Phone:      e.Weights.Phone,
		},
		DuplicateThreshold: e.DuplicateThreshold,
		MinSimilarity:      e.MinSimilarity,
		FrequentThreshold:  e.FrequentThreshold,
		DefaultLimit:       e.DefaultLimit,
		RequireNameMatch:   e.RequireNameMatch,
	}
}
