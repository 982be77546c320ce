package quote

import (
	"time"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
)

// State is the materialized state of one quote.
type State struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenantId"`
	CustomerName string    `json:"customerName"`
	Currency     string    `json:"currency"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedBy    string    `json:"updatedBy"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Reduce is the quote aggregate's state-transition function.
func Reduce(state *State, event aggregate.EventDocument) (*State, error) {
	eventType := event.PayloadType()

	if eventType == CreateQuoteEventType {
		var payload CreateQuotePayload
		if err := unmarshal(event.PayloadJSON, &payload); err != nil {
			return nil, err
		}

		return &State{
			ID:           event.AggregateID,
			TenantID:     payload.TenantID,
			CustomerName: payload.CustomerName,
			Currency:     payload.Currency,
			Status:       aggregate.Coalesce(payload.Status, StatusDraft),
			Notes:        aggregate.Coalesce(payload.Notes, ""),
			CreatedBy:    event.PrincipalID,
			CreatedAt:    event.OccurredAt,
			UpdatedBy:    event.PrincipalID,
			UpdatedAt:    event.OccurredAt,
		}, nil
	}

	if state == nil {
		return nil, aggregate.ErrNotInitialised
	}

	switch eventType {
	case UpdateQuoteEventType:
		var payload UpdateQuotePayload
		if err := unmarshal(event.PayloadJSON, &payload); err != nil {
			return nil, err
		}

		next := *state
		next.CustomerName = aggregate.Coalesce(payload.CustomerName, state.CustomerName)
		next.Currency = aggregate.Coalesce(payload.Currency, state.Currency)
		next.Status = aggregate.Coalesce(payload.Status, state.Status)
		next.Notes = aggregate.Coalesce(payload.Notes, state.Notes)
		next.UpdatedBy = event.PrincipalID
		next.UpdatedAt = event.OccurredAt

		return &next, nil

	case DeleteQuoteEventType:
		return nil, nil

	default:
		return state, nil
	}
}
