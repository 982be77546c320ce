package aggregate

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

// StateDocuments is an alias type for a slice of StateDocument.
type StateDocuments = []StateDocument

// StateDocument is the materialized projection of an aggregate: the reducer's
// output after the most recently applied event, serialized as JSON.
//
// It is mutable, derived, and disposable - it can always be rebuilt from the
// event log via Replay. A document exists if and only if the reducer's last
// output was non-nil.
type StateDocument struct {
	AggregateID string
	StateJSON   []byte
	UpdatedAt   time.Time
}

// BuildStateDocument is a factory method for StateDocument.
// Returns an error if stateJSON is not valid JSON.
func BuildStateDocument(aggregateID string, stateJSON []byte, updatedAt time.Time) (StateDocument, error) {
	if aggregateID == "" {
		return StateDocument{}, ErrEmptyAggregateID
	}

	if !jsoniter.ConfigFastest.Valid(stateJSON) {
		return StateDocument{}, ErrInvalidPayloadJSON
	}

	return StateDocument{
		AggregateID: aggregateID,
		StateJSON:   stateJSON,
		UpdatedAt:   updatedAt,
	}, nil
}
