// Package inventory implements the inventory aggregate: its event payloads
// and schema, the reducer deriving the materialized state, and a model facade
// translating tenant-scoped inputs into aggregate store calls.
package inventory

import (
	"context"
	"errors"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
	"github.com/quotedesk/eventsourced-aggregates-go/aggregate/postgresengine"
	"github.com/quotedesk/eventsourced-aggregates-go/identifier"
)

// IDPrefix is the external-facing id prefix for inventory items.
const IDPrefix = "INV"

// ErrNotFound is returned by mutating operations when the id does not belong
// to the tenant. Ownership is checked fail-closed before any store call.
var ErrNotFound = errors.New("inventory item not found")

const tenantIDFilterKey = "tenantId"

// CreateInput carries the caller-supplied fields for a new inventory item.
type CreateInput struct {
	SKU            string
	Name           string
	Description    *string
	SerialisedID   *string
	QuantityOnHand *int64
}

// UpdateInput carries a partial update; nil fields keep their current values.
type UpdateInput struct {
	SKU         *string
	Name        *string
	Description *string
}

// Model is the CRUD-style facade over the inventory aggregate store.
type Model struct {
	store *postgresengine.AggregateStore[State]
	ids   identifier.Generator
}

// NewModel creates an inventory model over the given store and id generator.
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

	payload, marshalErr := marshal(CreateInventoryPayload{
		Type:           CreateInventoryEventType,
		TenantID:       tenantID,
		SKU:            input.SKU,
		Name:           input.Name,
		Description:    input.Description,
		SerialisedID:   input.SerialisedID,
		QuantityOnHand: input.QuantityOnHand,
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

// Receive adjusts the on-hand quantity by a signed delta.
func (m Model) Receive(
	ctx context.Context,
	tenantID string,
	id string,
	quantity int64,
	principal aggregate.Principal,
) (*State, error) {

	if !m.ids.IsIDFromTenant(id, tenantID) {
		return nil, ErrNotFound
	}

	payload, marshalErr := marshal(InventoryReceivedPayload{Type: InventoryReceivedEventType, Quantity: quantity})
	if marshalErr != nil {
		return nil, marshalErr
	}

	applied, applyErr := m.store.ApplyEvent(ctx, id, payload, principal)
	if applyErr != nil {
		return nil, applyErr
	}

	return applied.After, nil
}

// ReceiveInSession is Receive participating in the caller's session; used to
// compose an inventory adjustment with other aggregates into one atomic
// business transaction. The caller owns the session's outcome.
func (m Model) ReceiveInSession(
	ctx context.Context,
	session *postgresengine.Session,
	tenantID string,
	id string,
	quantity int64,
	principal aggregate.Principal,
) (*State, error) {

	if !m.ids.IsIDFromTenant(id, tenantID) {
		return nil, ErrNotFound
	}

	payload, marshalErr := marshal(InventoryReceivedPayload{Type: InventoryReceivedEventType, Quantity: quantity})
	if marshalErr != nil {
		return nil, marshalErr
	}

	applied, applyErr := m.store.ApplyEventInSession(ctx, session, id, payload, principal)
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

	payload, marshalErr := marshal(UpdateInventoryPayload{
		Type:        UpdateInventoryEventType,
		SKU:         input.SKU,
		Name:        input.Name,
		Description: input.Description,
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

// SetSerialisedID replaces the item's serialised id.
func (m Model) SetSerialisedID(
	ctx context.Context,
	tenantID string,
	id string,
	serialisedID string,
	principal aggregate.Principal,
) (*State, error) {

	if !m.ids.IsIDFromTenant(id, tenantID) {
		return nil, ErrNotFound
	}

	payload, marshalErr := marshal(UpdateInventorySerialisedIDPayload{
		Type:         UpdateInventorySerialisedIDEventType,
		SerialisedID: serialisedID,
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

// Delete removes the item's projection; the event log is retained.
func (m Model) Delete(ctx context.Context, tenantID string, id string, principal aggregate.Principal) error {
	if !m.ids.IsIDFromTenant(id, tenantID) {
		return ErrNotFound
	}

	payload, marshalErr := marshal(DeleteInventoryPayload{Type: DeleteInventoryEventType})
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

// List returns the tenant's inventory items, paginated.
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
