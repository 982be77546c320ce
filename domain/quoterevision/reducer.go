package quoterevision

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
)

// State is the materialized state of one quote revision.
type State struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenantId"`
	QuoteID        string     `json:"quoteId"`
	RevisionNumber int        `json:"revisionNumber"`
	LineItems      []LineItem `json:"lineItems"`
	Notes          string     `json:"notes"`
	CreatedBy      string     `json:"createdBy"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedBy      string     `json:"updatedBy"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Total is the sum over line items of quantity times unit price.
func (s State) Total() decimal.Decimal {
	total := decimal.Zero

	for _, item := range s.LineItems {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)))
	}

	return total
}

// Reduce is the quote revision aggregate's state-transition function.
func Reduce(state *State, event aggregate.EventDocument) (*State, error) {
	eventType := event.PayloadType()

	if eventType == CreateQuoteRevisionEventType {
		var payload CreateQuoteRevisionPayload
		if err := unmarshal(event.PayloadJSON, &payload); err != nil {
			return nil, err
		}

		return &State{
			ID:             event.AggregateID,
			TenantID:       payload.TenantID,
			QuoteID:        payload.QuoteID,
			RevisionNumber: payload.RevisionNumber,
			LineItems:      payload.LineItems,
			Notes:          aggregate.Coalesce(payload.Notes, ""),
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
	case UpdateQuoteRevisionEventType:
		var payload UpdateQuoteRevisionPayload
		if err := unmarshal(event.PayloadJSON, &payload); err != nil {
			return nil, err
		}

		next := *state
		next.LineItems = payload.LineItems
		next.Notes = aggregate.Coalesce(payload.Notes, state.Notes)
		next.UpdatedBy = event.PrincipalID
		next.UpdatedAt = event.OccurredAt

		return &next, nil

	case DeleteQuoteRevisionEventType:
		return nil, nil

	default:
		return state, nil
	}
}
