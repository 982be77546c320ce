package inventory

import (
	"errors"
	"time"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
)

// ErrQuantityWouldGoNegative rejects a quantity adjustment that would push the
// on-hand quantity below zero. Nothing is written when it is returned.
var ErrQuantityWouldGoNegative = errors.New("inventory quantity on hand would go negative")

// State is the materialized state of one inventory item.
type State struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenantId"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	SerialisedID   string    `json:"serialisedId"`
	QuantityOnHand int64     `json:"quantityOnHand"`
	CreatedBy      string    `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedBy      string    `json:"updatedBy"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Reduce is the inventory aggregate's state-transition function.
func Reduce(state *State, event aggregate.EventDocument) (*State, error) {
	eventType := event.PayloadType()

	if eventType == CreateInventoryEventType {
		var payload CreateInventoryPayload
		if err := unmarshal(event.PayloadJSON, &payload); err != nil {
			return nil, err
		}

		return &State{
			ID:             event.AggregateID,
			TenantID:       payload.TenantID,
			SKU:            payload.SKU,
			Name:           payload.Name,
			Description:    aggregate.Coalesce(payload.Description, ""),
			SerialisedID:   aggregate.Coalesce(payload.SerialisedID, ""),
			QuantityOnHand: aggregate.Coalesce(payload.QuantityOnHand, 0),
			CreatedBy:      event.PrincipalID,
			CreatedAt:      event.OccurredAt,
			UpdatedBy:      event.PrincipalID,
			UpdatedAt:      event.OccurredAt,
		}, nil
	}

	if state == nil {
		return nil, aggregate.ErrNotInitialised
	}

	switch eventType {
	case InventoryReceivedEventType:
		var payload InventoryReceivedPayload
		if err := unmarshal(event.PayloadJSON, &payload); err != nil {
			return nil, err
		}

		if state.QuantityOnHand+payload.Quantity < 0 {
			return nil, ErrQuantityWouldGoNegative
		}

		next := *state
		next.QuantityOnHand += payload.Quantity
		next.UpdatedBy = event.PrincipalID
		next.UpdatedAt = event.OccurredAt

		return &next, nil

	case UpdateInventoryEventType:
		var payload UpdateInventoryPayload
		if err := unmarshal(event.PayloadJSON, &payload); err != nil {
			return nil, err
		}

		next := *state
		next.SKU = aggregate.Coalesce(payload.SKU, state.SKU)
		next.Name = aggregate.Coalesce(payload.Name, state.Name)
		next.Description = aggregate.Coalesce(payload.Description, state.Description)
		next.UpdatedBy = event.PrincipalID
		next.UpdatedAt = event.OccurredAt

		return &next, nil

	case UpdateInventorySerialisedIDEventType:
		var payload UpdateInventorySerialisedIDPayload
		if err := unmarshal(event.PayloadJSON, &payload); err != nil {
			return nil, err
		}

		next := *state
		next.SerialisedID = payload.SerialisedID
		next.UpdatedBy = event.PrincipalID
		next.UpdatedAt = event.OccurredAt

		return &next, nil

	case DeleteInventoryEventType:
		return nil, nil

	default:
		return state, nil
	}
}
