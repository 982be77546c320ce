package rfq

import (
	"time"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
)

// State is the materialized state of one request for quotation.
type State struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenantId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Notes       string     `json:"notes"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedBy   string     `json:"updatedBy"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Reduce is the RFQ aggregate's state-transition function.
func Reduce(state *State, event aggregate.EventDocument) (*State, error) {
	eventType := event.PayloadType()

	if eventType == CreateRFQEventType {
		var payload CreateRFQPayload
		if err := unmarshal(event.PayloadJSON, &payload); err != nil {
			return nil, err
		}

		return &State{
			ID:          event.AggregateID,
			TenantID:    payload.TenantID,
			Title:       payload.Title,
			Description: aggregate.Coalesce(payload.Description, ""),
			Status:      StatusOpen,
			DueDate:     payload.DueDate,
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
	case UpdateRFQEventType:
		var payload UpdateRFQPayload
		if err := unmarshal(event.PayloadJSON, &payload); err != nil {
			return nil, err
		}

		next := *state
		next.Title = aggregate.Coalesce(payload.Title, state.Title)
		next.Description = aggregate.Coalesce(payload.Description, state.Description)
		next.Status = aggregate.Coalesce(payload.Status, state.Status)
		next.Notes = aggregate.Coalesce(payload.Notes, state.Notes)
		next.UpdatedBy = event.PrincipalID
		next.UpdatedAt = event.OccurredAt

		if payload.DueDate != nil {
			next.DueDate = payload.DueDate
		}

		return &next, nil

	case DeleteRFQEventType:
		return nil, nil

	default:
		return state, nil
	}
}
