package rfq

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
)

const (
	CreateRFQEventType = "CREATE_RFQ"
	UpdateRFQEventType = "UPDATE_RFQ"
	DeleteRFQEventType = "DELETE_RFQ"
)

// RFQ status values.
const (
	StatusOpen      = "OPEN"
	StatusClosed    = "CLOSED"
	StatusAwarded   = "AWARDED"
	StatusCancelled = "CANCELLED"
)

var marshal = jsoniter.ConfigFastest.Marshal
var unmarshal = jsoniter.ConfigFastest.Unmarshal

// CreateRFQPayload creates a request for quotation. Status defaults to OPEN.
type CreateRFQPayload struct {
	Type        string     `json:"type"`
	TenantID    string     `json:"tenantId"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// UpdateRFQPayload merges the given fields into the existing state; nil
// fields keep their current values.
type UpdateRFQPayload struct {
	Type        string     `json:"type"`
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// DeleteRFQPayload deletes the RFQ's projection; the event log is retained.
type DeleteRFQPayload struct {
	Type string `json:"type"`
}

const schemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"$defs": {
		"status": {"enum": ["OPEN", "CLOSED", "AWARDED", "CANCELLED"]},
		"dateTime": {"type": "string", "format": "date-time"}
	},
	"oneOf": [
		{
			"type": "object",
			"properties": {
				"type": {"const": "CREATE_RFQ"},
				"tenantId": {"type": "string", "minLength": 1},
				"title": {"type": "string", "minLength": 1},
				"description": {"type": "string"},
				"dueDate": {"$ref": "#/$defs/dateTime"},
				"notes": {"type": "string"}
			},
			"required": ["type", "tenantId", "title"],
			"additionalProperties": false
		},
		{
			"type": "object",
			"properties": {
				"type": {"const": "UPDATE_RFQ"},
				"title": {"type": "string", "minLength": 1},
				"description": {"type": "string"},
				"status": {"$ref": "#/$defs/status"},
				"dueDate": {"$ref": "#/$defs/dateTime"},
				"notes": {"type": "string"}
			},
			"required": ["type"],
			"additionalProperties": false
		},
		{
			"type": "object",
			"properties": {
				"type": {"const": "DELETE_RFQ"}
			},
			"required": ["type"],
			"additionalProperties": false
		}
	]
}`

var payloadSchema = aggregate.MustCompilePayloadSchema([]byte(schemaJSON))

// Schema returns the compiled payload schema covering all RFQ events.
func Schema() *aggregate.PayloadSchema {
	return payloadSchema
}
