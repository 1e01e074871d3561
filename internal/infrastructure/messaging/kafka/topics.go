// Package kafka publishes duplicate-flag alerts and consumes corpus refresh
// triggers.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/openlands/caselens/pkg/errors"
)

// Topic names.
const (
	// TopicDuplicatesFlagged carries one event per query whose best match
	// crossed the duplicate threshold, for downstream alerting.
	TopicDuplicatesFlagged = "caselens.duplicates.flagged"

	// TopicCorpusRefresh carries refresh requests consumed by the API
	// server, published by the worker when new dataset files land.
	TopicCorpusRefresh = "caselens.corpus.refresh"
)

// Event types carried in envelopes.
const (
	EventTypeDuplicateFlagged       = "duplicate.flagged"
	EventTypeCorpusRefreshRequested = "corpus.refresh.requested"
)

// EventEnvelope is the wire format of every published event.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// DuplicateFlaggedPayload describes one query that hit the duplicate
// threshold against a historical case.
type DuplicateFlaggedPayload struct {
	QueryID         string    `json:"query_id"`
	MatchedCaseID   string    `json:"matched_case_id"`
	MatchedDataset  string    `json:"matched_dataset"`
	CompositeScore  float64   `json:"composite_score"`
	SnapshotVersion uint64    `json:"snapshot_version"`
	FlaggedAt       time.Time `json:"flagged_at"`
}

// CorpusRefreshRequestedPayload asks consuming API servers to rebuild
// their snapshots.
// An empty Datasets list means the configured default set.
type CorpusRefreshRequestedPayload struct {
	Datasets    []string  `json:"datasets,omitempty"`
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewEventEnvelope wraps a payload with identity and provenance.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the envelope payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 {
		return errors.New(errors.ErrCodeValidation, "event has no payload")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal event payload")
	}
	return nil
}

// ParseEnvelope decodes a raw message value into an envelope.
func ParseEnvelope(value []byte) (*EventEnvelope, error) {
	if len(value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal event envelope")
	}
	return &env, nil
}
