// Package quote implements the quote aggregate: event payloads and schema,
// the reducer, and a model facade over the aggregate store.
package quote

import (
	"context"
	"errors"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
	"github.com/quotedesk/eventsourced-aggregates-go/aggregate/postgresengine"
	"github.com/quotedesk/eventsourced-aggregates-go/identifier"
)

// IDPrefix is the external-facing id prefix for quotes.
const IDPrefix = "QTE"

// ErrNotFound is returned by mutating operations when the id does not belong
// to the tenant.
var ErrNotFound = errors.New("quote not found")

const tenantIDFilterKey = "tenantId"

// CreateInput carries the caller-supplied fields for a new quote.
type CreateInput struct {
	CustomerName string
	Currency     string
	Status       *string
	Notes        *string
}

// UpdateInput carries a partial update; nil fields keep their current values.
type UpdateInput struct {
	CustomerName *string
	Currency     *string
	Status       *string
	Notes        *string
}

// Model is the CRUD-style facade over the quote aggregate store.
type Model struct {
	store *postgresengine.AggregateStore[State]
	ids   identifier.Generator
}

// NewModel creates a quote model over the given store and id generator.
func NewModel(store *postgresengine.AggregateStore[State], ids identifier.Generator) Model {
	return Model{store: store, ids: ids}
}

// Create mints a new tenant-scoped id and appends the creation event.
func (m Model) Create(
	ctx context.Context,
	tenantID string,
	input CreateInput,
	principal aggregate.Principal,
) (*State, error) {

	id, err := m.ids.Generate(tenantID)
	if err != nil {
		return nil, err
	}

	payload, marshalErr := marshal(CreateQuotePayload{
		Type:         CreateQuoteEventType,
		TenantID:     tenantID,
		CustomerName: input.CustomerName,
		Currency:     input.Currency,
		Status:       input.Status,
		Notes:        input.Notes,
	})
	if marshalErr != nil {
		return nil, marshalErr
	}

	applied, applyErr := m.store.ApplyEvent(ctx, id, payload, principal)
	if applyErr != nil {
		return nil, applyErr
	}

	return applied.After, nil
}

// Update merges the given fields into the existing state.
func (m Model) Update(
	ctx context.Context,
	tenantID string,
	id string,
	input UpdateInput,
	principal aggregate.Principal,
) (*State, error) {

	if !m.ids.IsIDFromTenant(id, tenantID) {
		return nil, ErrNotFound
	}

	payload, marshalErr := marshal(UpdateQuotePayload{
		Type:         UpdateQuoteEventType,
		CustomerName: input.CustomerName,
		Currency:     input.Currency,
		Status:       input.Status,
		Notes:        input.Notes,
	})
	if marshalErr != nil {
		return nil, marshalErr
	}

	applied, applyErr := m.store.ApplyEvent(ctx, id, payload, principal)
	if applyErr != nil {
		return nil, applyErr
	}

	return applied.After, nil
}

// Delete removes the quote's projection; the event log is retained.
func (m Model) Delete(ctx context.Context, tenantID string, id string, principal aggregate.Principal) error {
	if !m.ids.IsIDFromTenant(id, tenantID) {
		return ErrNotFound
	}

	payload, marshalErr := marshal(DeleteQuotePayload{Type: DeleteQuoteEventType})
	if marshalErr != nil {
		return marshalErr
	}

	_, applyErr := m.store.ApplyEvent(ctx, id, payload, principal)

	return applyErr
}

// Get reads the materialized state, returning (nil, nil) when the id does not
// exist or does not belong to the tenant.
func (m Model) Get(ctx context.Context, tenantID string, id string) (*State, error) {
	if !m.ids.IsIDFromTenant(id, tenantID) {
		return nil, nil
	}

	document, err := m.store.GetStateDocument(ctx, id)
	if err != nil || document == nil {
		return nil, err
	}

	return stateFromDocument(*document)
}

// List returns the tenant's quotes, paginated.
func (m Model) List(ctx context.Context, tenantID string, limit, offset uint) ([]State, error) {
	filter := aggregate.BuildStateFilter().
		Matching().
		AllPredicatesOf(aggregate.P(tenantIDFilterKey, tenantID)).
		WithLimit(limit).
		WithOffset(offset).
		Finalize()

	documents, err := m.store.QueryStateDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}

	states := make([]State, 0, len(documents))

	for _, document := range documents {
		state, unmarshalErr := stateFromDocument(document)
		if unmarshalErr != nil {
			return nil, unmarshalErr
		}

		states = append(states, *state)
	}

	return states, nil
}

func stateFromDocument(document aggregate.StateDocument) (*State, error) {
	var state State
	if err := unmarshal(document.StateJSON, &state); err != nil {
		return nil, err
	}

	return &state, nil
}
