// Package counter provides a minimal fixture aggregate for engine tests: a
// signed counter with initialise, increment, decrement, multiply and destroy
// events. It exists so the store can be exercised without pulling in any of
// the real domain aggregates.
package counter

import (
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
)

const (
	InitialisedEventType = "COUNTER_INITIALISED"
	IncrementedEventType = "COUNTER_INCREMENTED"
	DecrementedEventType = "COUNTER_DECREMENTED"
	MultipliedEventType  = "COUNTER_MULTIPLIED"
	DestroyedEventType   = "COUNTER_DESTROYED"
)

// ErrValueWouldGoNegative rejects a decrement that would push the counter
// below zero. The reducer returns it before anything is written.
var ErrValueWouldGoNegative = errors.New("counter value would go negative")

// State is the materialized state of one counter.
type State struct {
	Value int64 `json:"value"`
}

type initialisedPayload struct {
	Type  string `json:"type"`
	Value int64  `json:"value"`
}

type amountPayload struct {
	Type   string `json:"type"`
	Amount int64  `json:"amount"`
}

type multipliedPayload struct {
	Type   string `json:"type"`
	Factor int64  `json:"factor"`
}

type destroyedPayload struct {
	Type string `json:"type"`
}

var marshal = jsoniter.ConfigFastest.Marshal
var unmarshal = jsoniter.ConfigFastest.Unmarshal

// InitialisedPayloadJSON builds the creation payload.
func InitialisedPayloadJSON(value int64) []byte {
	payload, _ := marshal(initialisedPayload{Type: InitialisedEventType, Value: value})
	return payload
}

// IncrementedPayloadJSON builds an increment payload.
func IncrementedPayloadJSON(amount int64) []byte {
	payload, _ := marshal(amountPayload{Type: IncrementedEventType, Amount: amount})
	return payload
}

// DecrementedPayloadJSON builds a decrement payload.
func DecrementedPayloadJSON(amount int64) []byte {
	payload, _ := marshal(amountPayload{Type: DecrementedEventType, Amount: amount})
	return payload
}

// MultipliedPayloadJSON builds a multiply payload.
func MultipliedPayloadJSON(factor int64) []byte {
	payload, _ := marshal(multipliedPayload{Type: MultipliedEventType, Factor: factor})
	return payload
}

// DestroyedPayloadJSON builds the deletion payload.
func DestroyedPayloadJSON() []byte {
	payload, _ := marshal(destroyedPayload{Type: DestroyedEventType})
	return payload
}

const schemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"oneOf": [
		{
			"type": "object",
			"properties": {
				"type": {"const": "COUNTER_INITIALISED"},
				"value": {"type": "integer"}
			},
			"required": ["type", "value"],
			"additionalProperties": false
		},
		{
			"type": "object",
			"properties": {
				"type": {"const": "COUNTER_INCREMENTED"},
				"amount": {"type": "integer", "minimum": 0}
			},
			"required": ["type", "amount"],
			"additionalProperties": false
		},
		{
			"type": "object",
			"properties": {
				"type": {"const": "COUNTER_DECREMENTED"},
				"amount": {"type": "integer", "minimum": 0}
			},
			"required": ["type", "amount"],
			"additionalProperties": false
		},
		{
			"type": "object",
			"properties": {
				"type": {"const": "COUNTER_MULTIPLIED"},
				"factor": {"type": "integer"}
			},
			"required": ["type", "factor"],
			"additionalProperties": false
		},
		{
			"type": "object",
			"properties": {
				"type": {"const": "COUNTER_DESTROYED"}
			},
			"required": ["type"],
			"additionalProperties": false
		}
	]
}`

var payloadSchema = aggregate.MustCompilePayloadSchema([]byte(schemaJSON))

// Schema returns the compiled payload schema covering all counter events.
func Schema() *aggregate.PayloadSchema {
	return payloadSchema
}

// Reduce is the counter's state-transition function.
func Reduce(state *State, event aggregate.EventDocument) (*State, error) {
	eventType := event.PayloadType()

	if eventType == InitialisedEventType {
		var payload initialisedPayload
		if unmarshalErr := unmarshal(event.PayloadJSON, &payload); unmarshalErr != nil {
			return nil, unmarshalErr
		}

		return &State{Value: payload.Value}, nil
	}

	if state == nil {
		return nil, aggregate.ErrNotInitialised
	}

	switch eventType {
	case IncrementedEventType:
		var payload amountPayload
		if unmarshalErr := unmarshal(event.PayloadJSON, &payload); unmarshalErr != nil {
			return nil, unmarshalErr
		}

		return &State{Value: state.Value + payload.Amount}, nil

	case DecrementedEventType:
		var payload amountPayload
		if unmarshalErr := unmarshal(event.PayloadJSON, &payload); unmarshalErr != nil {
			return nil, unmarshalErr
		}

		if state.Value-payload.Amount < 0 {
			return nil, ErrValueWouldGoNegative
		}

		return &State{Value: state.Value - payload.Amount}, nil

	case MultipliedEventType:
		var payload multipliedPayload
		if unmarshalErr := unmarshal(event.PayloadJSON, &payload); unmarshalErr != nil {
			return nil, unmarshalErr
		}

		return &State{Value: state.Value * payload.Factor}, nil

	case DestroyedEventType:
		return nil, nil

	default:
		return state, nil
	}
}
