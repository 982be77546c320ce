package reservation

import (
	"time"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
)

// State is the materialized state of one inventory reservation.
type State struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	InventoryID string    `json:"inventoryId"`
	QuoteID     string    `json:"quoteId"`
	Quantity    int64     `json:"quantity"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	Notes       string    `json:"notes"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedBy   string    `json:"updatedBy"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Reduce is the reservation aggregate's state-transition function.
func Reduce(state *State, event aggregate.EventDocument) (*State, error) {
	eventType := event.PayloadType()

	if eventType == CreateReservationEventType {
		var payload CreateReservationPayload
		if err := unmarshal(event.PayloadJSON, &payload); err != nil {
			return nil, err
		}

		return &State{
			ID:          event.AggregateID,
			TenantID:    payload.TenantID,
			InventoryID: payload.InventoryID,
			QuoteID:     aggregate.Coalesce(payload.QuoteID, ""),
			Quantity:    payload.Quantity,
			StartsAt:    payload.StartsAt,
			EndsAt:      payload.EndsAt,
			Notes:       aggregate.Coalesce(payload.Notes, ""),
			CreatedBy:   event.PrincipalID,
			CreatedAt:   event.OccurredAt,
			UpdatedBy:   event.PrincipalID,
			UpdatedAt:   event.OccurredAt,
		}, nil
	}

	if state == nil {
		return nil, aggregate.ErrNotInitialised
	}

	switch eventType {
	case UpdateReservationEventType:
		var payload UpdateReservationPayload
		if err := unmarshal(event.PayloadJSON, &payload); err != nil {
			return nil, err
		}

		next := *state
		next.Quantity = aggregate.Coalesce(payload.Quantity, state.Quantity)
		next.StartsAt = aggregate.Coalesce(payload.StartsAt, state.StartsAt)
		next.EndsAt = aggregate.Coalesce(payload.EndsAt, state.EndsAt)
		next.Notes = aggregate.Coalesce(payload.Notes, state.Notes)
		next.UpdatedBy = event.PrincipalID
		next.UpdatedAt = event.OccurredAt

		return &next, nil

	case DeleteReservationEventType:
		return nil, nil

	default:
		return state, nil
	}
}
