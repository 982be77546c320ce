package quoterevision

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
)

const (
	CreateQuoteRevisionEventType = "CREATE_QUOTE_REVISION"
	UpdateQuoteRevisionEventType = "UPDATE_QUOTE_REVISION"
	DeleteQuoteRevisionEventType = "DELETE_QUOTE_REVISION"
)

var marshal = jsoniter.ConfigFastest.Marshal
var unmarshal = jsoniter.ConfigFastest.Unmarshal

// LineItem is one priced position of a quote revision. Items are wholesale
// replaced on update; the id gives them stable identity across revisions so
// downstream consumers can diff additions, removals and changes.
type LineItem struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku"`
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// CreateQuoteRevisionPayload creates a revision of a quote. Line items must
// carry their final ids; the model reconciles them before appending.
type CreateQuoteRevisionPayload struct {
	Type           string     `json:"type"`
	TenantID       string     `json:"tenantId"`
	QuoteID        string     `json:"quoteId"`
	RevisionNumber int        `json:"revisionNumber"`
	LineItems      []LineItem `json:"lineItems"`
	Notes          *string    `json:"notes,omitempty"`
}

// UpdateQuoteRevisionPayload replaces the full line-item list and optionally
// the notes.
type UpdateQuoteRevisionPayload struct {
	Type      string     `json:"type"`
	LineItems []LineItem `json:"lineItems"`
	Notes     *string    `json:"notes,omitempty"`
}

// DeleteQuoteRevisionPayload deletes the revision's projection; the event log
// is retained.
type DeleteQuoteRevisionPayload struct {
	Type string `json:"type"`
}

const schemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"$defs": {
		"lineItem": {
			"type": "object",
			"properties": {
				"id": {"type": "string", "minLength": 1},
				"sku": {"type": "string", "minLength": 1},
				"description": {"type": "string"},
				"quantity": {"type": "integer", "minimum": 1},
				"unitPrice": {"type": "string", "pattern": "^-?[0-9]+(\\.[0-9]+)?$"}
			},
			"required": ["id", "sku", "quantity", "unitPrice"],
			"additionalProperties": false
		}
	},
	"oneOf": [
		{
			"type": "object",
			"properties": {
				"type": {"const": "CREATE_QUOTE_REVISION"},
				"tenantId": {"type": "string", "minLength": 1},
				"quoteId": {"type": "string", "minLength": 1},
				"revisionNumber": {"type": "integer", "minimum": 1},
				"lineItems": {"type": "array", "items": {"$ref": "#/$defs/lineItem"}},
				"notes": {"type": "string"}
			},
			"required": ["type", "tenantId", "quoteId", "revisionNumber", "lineItems"],
			"additionalProperties": false
		},
		{
			"type": "object",
			"properties": {
				"type": {"const": "UPDATE_QUOTE_REVISION"},
				"lineItems": {"type": "array", "items": {"$ref": "#/$defs/lineItem"}},
				"notes": {"type": "string"}
			},
			"required": ["type", "lineItems"],
			"additionalProperties": false
		},
		{
			"type": "object",
			"properties": {
				"type": {"const": "DELETE_QUOTE_REVISION"}
			},
			"required": ["type"],
			"additionalProperties": false
		}
	]
}`

var payloadSchema = aggregate.MustCompilePayloadSchema([]byte(schemaJSON))

// Schema returns the compiled payload schema covering all quote revision events.
func Schema() *aggregate.PayloadSchema {
	return payloadSchema
}
