package aggregate

import (
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// ErrInvalidPayloadJSON is returned when an event payload is not valid JSON.
var ErrInvalidPayloadJSON = errors.New("payload json is not valid")

// EventDocuments is an alias type for a slice of EventDocument.
type EventDocuments = []EventDocument

// EventDocument is a DTO (data transfer object) used by the aggregate store to
// append events and query them back. Once written, an event document is never
// mutated or deleted; the ordered log per aggregate id is the source of truth.
//
// It is built on scalars to be completely agnostic of the implementation of
// domain event payloads in the client code.
//
// While its properties are exported, it should only be constructed with the
// supplied factory method BuildEventDocument.
type EventDocument struct {
	EventID        string
	AggregateID    string
	SequenceNumber SequenceNumberUint
	OccurredAt     time.Time
	PrincipalID    string
	PayloadJSON    []byte
}

// BuildEventDocument is a factory method for EventDocument.
//
// It populates the EventDocument with the given scalar input.
// An empty principalID is permitted and denotes the "system" actor.
// Returns an error if payloadJSON is not valid JSON.
func BuildEventDocument(
	eventID string,
	aggregateID string,
	sequenceNumber SequenceNumberUint,
	occurredAt time.Time,
	principalID string,
	payloadJSON []byte,
) (EventDocument, error) {

	if aggregateID == "" {
		return EventDocument{}, ErrEmptyAggregateID
	}

	if !jsoniter.ConfigFastest.Valid(payloadJSON) {
		return EventDocument{}, ErrInvalidPayloadJSON
	}

	return EventDocument{
		EventID:        eventID,
		AggregateID:    aggregateID,
		SequenceNumber: sequenceNumber,
		OccurredAt:     occurredAt,
		PrincipalID:    principalID,
		PayloadJSON:    payloadJSON,
	}, nil
}

// PayloadType extracts the "type" discriminant from the event's payload.
// Returns an empty string if the payload carries no type field.
func (e EventDocument) PayloadType() string {
	var envelope struct {
		Type string `json:"type"`
	}

	if err := jsoniter.ConfigFastest.Unmarshal(e.PayloadJSON, &envelope); err != nil {
		return ""
	}

	return envelope.Type
}
