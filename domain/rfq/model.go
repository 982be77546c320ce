// Package rfq implements the request-for-quotation aggregate: event payloads
// and schema, the reducer, and a model facade over the aggregate store.
package rfq

import (
	"context"
	"errors"
	"time"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
	"github.com/quotedesk/eventsourced-aggregates-go/aggregate/postgresengine"
	"github.com/quotedesk/eventsourced-aggregates-go/identifier"
)

// IDPrefix is the external-facing id prefix for RFQs.
const IDPrefix = "RFQ"

// ErrNotFound is returned by mutating operations when the id does not belong
// to the tenant.
var ErrNotFound = errors.New("rfq not found")

const tenantIDFilterKey = "tenantId"

// CreateInput carries the caller-supplied fields for a new RFQ.
type CreateInput struct {
	Title       string
	Description *string
	DueDate     *time.Time
	Notes       *string
}

// UpdateInput carries a partial update; nil fields keep their current values.
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *string
	DueDate     *time.Time
	Notes       *string
}

// Model is the CRUD-style facade over the RFQ aggregate store.
type Model struct {
	store *postgresengine.AggregateStore[State]
	ids   identifier.Generator
}

// NewModel creates an RFQ model over the given store and id generator.
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

	payload, marshalErr := marshal(CreateRFQPayload{
		Type:        CreateRFQEventType,
		TenantID:    tenantID,
		Title:       input.Title,
		Description: input.Description,
		DueDate:     input.DueDate,
		Notes:       input.Notes,
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

	payload, marshalErr := marshal(UpdateRFQPayload{
		Type:        UpdateRFQEventType,
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		DueDate:     input.DueDate,
		Notes:       input.Notes,
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

// Delete removes the RFQ's projection; the event log is retained.
func (m Model) Delete(ctx context.Context, tenantID string, id string, principal aggregate.Principal) error {
	if !m.ids.IsIDFromTenant(id, tenantID) {
		return ErrNotFound
	}

	payload, marshalErr := marshal(DeleteRFQPayload{Type: DeleteRFQEventType})
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

// List returns the tenant's RFQs, paginated.
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
