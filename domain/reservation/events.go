package reservation

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
)

const (
	CreateReservationEventType = "CREATE_RESERVATION"
	UpdateReservationEventType = "UPDATE_RESERVATION"
	DeleteReservationEventType = "DELETE_RESERVATION"
)

var marshal = jsoniter.ConfigFastest.Marshal
var unmarshal = jsoniter.ConfigFastest.Unmarshal

// CreateReservationPayload reserves a quantity of one inventory item for a
// date range, optionally tied to a quote.
type CreateReservationPayload struct {
	Type        string    `json:"type"`
	TenantID    string    `json:"tenantId"`
	InventoryID string    `json:"inventoryId"`
	QuoteID     *string   `json:"quoteId,omitempty"`
	Quantity    int64     `json:"quantity"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	Notes       *string   `json:"notes,omitempty"`
}

// UpdateReservationPayload merges the given fields into the existing state;
// nil fields keep their current values.
type UpdateReservationPayload struct {
	Type     string     `json:"type"`
	Quantity *int64     `json:"quantity,omitempty"`
	StartsAt *time.Time `json:"startsAt,omitempty"`
	EndsAt   *time.Time `json:"endsAt,omitempty"`
	Notes    *string    `json:"notes,omitempty"`
}

// DeleteReservationPayload deletes the reservation's projection; the event
// log is retained.
type DeleteReservationPayload struct {
	Type string `json:"type"`
}

const schemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"$defs": {
		"dateTime": {"type": "string", "format": "date-time"}
	},
	"oneOf": [
		{
			"type": "object",
			"properties": {
				"type": {"const": "CREATE_RESERVATION"},
				"tenantId": {"type": "string", "minLength": 1},
				"inventoryId": {"type": "string", "minLength": 1},
				"quoteId": {"type": "string", "minLength": 1},
				"quantity": {"type": "integer", "minimum": 1},
				"startsAt": {"$ref": "#/$defs/dateTime"},
				"endsAt": {"$ref": "#/$defs/dateTime"},
				"notes": {"type": "string"}
			},
			"required": ["type", "tenantId", "inventoryId", "quantity", "startsAt", "endsAt"],
			"additionalProperties": false
		},
		{
			"type": "object",
			"properties": {
				"type": {"const": "UPDATE_RESERVATION"},
				"quantity": {"type": "integer", "minimum": 1},
				"startsAt": {"$ref": "#/$defs/dateTime"},
				"endsAt": {"$ref": "#/$defs/dateTime"},
				"notes": {"type": "string"}
			},
			"required": ["type"],
			"additionalProperties": false
		},
		{
			"type": "object",
			"properties": {
				"type": {"const": "DELETE_RESERVATION"}
			},
			"required": ["type"],
			"additionalProperties": false
		}
	]
}`

var payloadSchema = aggregate.MustCompilePayloadSchema([]byte(schemaJSON))

// Schema returns the compiled payload schema covering all reservation events.
func Schema() *aggregate.PayloadSchema {
	return payloadSchema
}
