package inventory

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
)

const (
	CreateInventoryEventType             = "CREATE_INVENTORY"
	InventoryReceivedEventType           = "INVENTORY_RECEIVED"
	UpdateInventoryEventType             = "UPDATE_INVENTORY"
	UpdateInventorySerialisedIDEventType = "UPDATE_INVENTORY_SERIALISED_ID"
	DeleteInventoryEventType             = "DELETE_INVENTORY"
)

var marshal = jsoniter.ConfigFastest.Marshal
var unmarshal = jsoniter.ConfigFastest.Unmarshal

// CreateInventoryPayload creates an inventory item. Optional fields default to
// their zero values in the initial state.
type CreateInventoryPayload struct {
	Type           string  `json:"type"`
	TenantID       string  `json:"tenantId"`
	SKU            string  `json:"sku"`
	Name           string  `json:"name"`
	Description    *string `json:"description,omitempty"`
	SerialisedID   *string `json:"serialisedId,omitempty"`
	QuantityOnHand *int64  `json:"quantityOnHand,omitempty"`
}

// InventoryReceivedPayload adjusts the on-hand quantity by a signed delta.
// Goods receipts carry a positive quantity; reservations decrement with a
// negative one. The reducer rejects a delta that would push the quantity
// below zero.
type InventoryReceivedPayload struct {
	Type     string `json:"type"`
	Quantity int64  `json:"quantity"`
}

// UpdateInventoryPayload merges the given fields into the existing state;
// nil fields keep their current values.
type UpdateInventoryPayload struct {
	Type        string  `json:"type"`
	SKU         *string `json:"sku,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// UpdateInventorySerialisedIDPayload replaces the serialised id.
type UpdateInventorySerialisedIDPayload struct {
	Type         string `json:"type"`
	SerialisedID string `json:"serialisedId"`
}

// DeleteInventoryPayload deletes the inventory item's projection; the event
// log is retained.
type DeleteInventoryPayload struct {
	Type string `json:"type"`
}

const schemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"oneOf": [
		{
			"type": "object",
			"properties": {
				"type": {"const": "CREATE_INVENTORY"},
				"tenantId": {"type": "string", "minLength": 1},
				"sku": {"type": "string", "minLength": 1},
				"name": {"type": "string", "minLength": 1},
				"description": {"type": "string"},
				"serialisedId": {"type": "string"},
				"quantityOnHand": {"type": "integer", "minimum": 0}
			},
			"required": ["type", "tenantId", "sku", "name"],
			"additionalProperties": false
		},
		{
			"type": "object",
			"properties": {
				"type": {"const": "INVENTORY_RECEIVED"},
				"quantity": {"type": "integer"}
			},
			"required": ["type", "quantity"],
			"additionalProperties": false
		},
		{
			"type": "object",
			"properties": {
				"type": {"const": "UPDATE_INVENTORY"},
				"sku": {"type": "string", "minLength": 1},
				"name": {"type": "string", "minLength": 1},
				"description": {"type": "string"}
			},
			"required": ["type"],
			"additionalProperties": false
		},
		{
			"type": "object",
			"properties": {
				"type": {"const": "UPDATE_INVENTORY_SERIALISED_ID"},
				"serialisedId": {"type": "string", "minLength": 1}
			},
			"required": ["type", "serialisedId"],
			"additionalProperties": false
		},
		{
			"type": "object",
			"properties": {
				"type": {"const": "DELETE_INVENTORY"}
			},
			"required": ["type"],
			"additionalProperties": false
		}
	]
}`

var payloadSchema = aggregate.MustCompilePayloadSchema([]byte(schemaJSON))

// Schema returns the compiled payload schema covering all inventory events.
func Schema() *aggregate.PayloadSchema {
	return payloadSchema
}
