package quote

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
)

const (
	CreateQuoteEventType = "CREATE_QUOTE"
	UpdateQuoteEventType = "UPDATE_QUOTE"
	DeleteQuoteEventType = "DELETE_QUOTE"
)

// Quote status values.
const (
	StatusDraft    = "DRAFT"
	StatusSent     = "SENT"
	StatusAccepted = "ACCEPTED"
	StatusDeclined = "DECLINED"
)

var marshal = jsoniter.ConfigFastest.Marshal
var unmarshal = jsoniter.ConfigFastest.Unmarshal

// CreateQuotePayload creates a quote. Status defaults to DRAFT.
type CreateQuotePayload struct {
	Type         string  `json:"type"`
	TenantID     string  `json:"tenantId"`
	CustomerName string  `json:"customerName"`
	Currency     string  `json:"currency"`
	Status       *string `json:"status,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

// UpdateQuotePayload merges the given fields into the existing state; nil
// fields keep their current values.
type UpdateQuotePayload struct {
	Type         string  `json:"type"`
	CustomerName *string `json:"customerName,omitempty"`
	Currency     *string `json:"currency,omitempty"`
	Status       *string `json:"status,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

// DeleteQuotePayload deletes the quote's projection; the event log is retained.
type DeleteQuotePayload struct {
	Type string `json:"type"`
}

const schemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"$defs": {
		"status": {"enum": ["DRAFT", "SENT", "ACCEPTED", "DECLINED"]},
		"currency": {"type": "string", "pattern": "^[A-Z]{3}$"}
	},
	"oneOf": [
		{
			"type": "object",
			"properties": {
				"type": {"const": "CREATE_QUOTE"},
				"tenantId": {"type": "string", "minLength": 1},
				"customerName": {"type": "string", "minLength": 1},
				"currency": {"$ref": "#/$defs/currency"},
				"status": {"$ref": "#/$defs/status"},
				"notes": {"type": "string"}
			},
			"required": ["type", "tenantId", "customerName", "currency"],
			"additionalProperties": false
		},
		{
			"type": "object",
			"properties": {
				"type": {"const": "UPDATE_QUOTE"},
				"customerName": {"type": "string", "minLength": 1},
				"currency": {"$ref": "#/$defs/currency"},
				"status": {"$ref": "#/$defs/status"},
				"notes": {"type": "string"}
			},
			"required": ["type"],
			"additionalProperties": false
		},
		{
			"type": "object",
			"properties": {
				"type": {"const": "DELETE_QUOTE"}
			},
			"required": ["type"],
			"additionalProperties": false
		}
	]
}`

var payloadSchema = aggregate.MustCompilePayloadSchema([]byte(schemaJSON))

// Schema returns the compiled payload schema covering all quote events.
func Schema() *aggregate.PayloadSchema {
	return payloadSchema
}
