// Package reservation implements the inventory reservation aggregate. Besides
// the usual schema, reducer and facade it carries the two pieces of domain
// logic layered on the generic engine: date-range overlap filtering for
// listing reservations, and the Reserve/Release operations that compose a
// reservation change with the matching inventory quantity adjustment in one
// shared session.
package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
	"github.com/quotedesk/eventsourced-aggregates-go/aggregate/postgresengine"
	"github.com/quotedesk/eventsourced-aggregates-go/domain/inventory"
	"github.com/quotedesk/eventsourced-aggregates-go/identifier"
)

// IDPrefix is the external-facing id prefix for reservations.
const IDPrefix = "RSV"

// ErrNotFound is returned by mutating operations when the id does not belong
// to the tenant.
var ErrNotFound = errors.New("reservation not found")

const (
	tenantIDFilterKey    = "tenantId"
	inventoryIDFilterKey = "inventoryId"
	startsAtFilterKey    = "startsAt"
	endsAtFilterKey      = "endsAt"
)

// CreateInput carries the caller-supplied fields for a new reservation.
type CreateInput struct {
	InventoryID string
	QuoteID     *string
	Quantity    int64
	StartsAt    time.Time
	EndsAt      time.Time
	Notes       *string
}

// UpdateInput carries a partial update; nil fields keep their current values.
type UpdateInput struct {
	Quantity *int64
	StartsAt *time.Time
	EndsAt   *time.Time
	Notes    *string
}

// Model is the facade over the reservation aggregate store. It also holds the
// inventory model so Reserve and Release can adjust availability atomically
// with the reservation change.
type Model struct {
	store     *postgresengine.AggregateStore[State]
	ids       identifier.Generator
	inventory inventory.Model
}

// NewModel creates a reservation model over the given store, id generator and
// inventory model.
func NewModel(
	store *postgresengine.AggregateStore[State],
	ids identifier.Generator,
	inventoryModel inventory.Model,
) Model {

	return Model{store: store, ids: ids, inventory: inventoryModel}
}

// Reserve creates a reservation and decrements the reserved inventory item's
// on-hand quantity in one shared session: either both changes commit or
// neither does. An insufficient quantity surfaces as
// inventory.ErrQuantityWouldGoNegative with zero writes.
func (m Model) Reserve(
	ctx context.Context,
	tenantID string,
	input CreateInput,
	principal aggregate.Principal,
) (*State, error) {

	id, err := m.ids.Generate(tenantID)
	if err != nil {
		return nil, err
	}

	payload, marshalErr := marshal(CreateReservationPayload{
		Type:        CreateReservationEventType,
		TenantID:    tenantID,
		InventoryID: input.InventoryID,
		QuoteID:     input.QuoteID,
		Quantity:    input.Quantity,
		StartsAt:    input.StartsAt,
		EndsAt:      input.EndsAt,
		Notes:       input.Notes,
	})
	if marshalErr != nil {
		return nil, marshalErr
	}

	session, beginErr := m.store.BeginSession(ctx)
	if beginErr != nil {
		return nil, beginErr
	}
	defer func() { _ = session.Rollback(ctx) }()

	applied, applyErr := m.store.ApplyEventInSession(ctx, session, id, payload, principal)
	if applyErr != nil {
		return nil, applyErr
	}

	if _, adjustErr := m.inventory.ReceiveInSession(
		ctx, session, tenantID, input.InventoryID, -input.Quantity, principal,
	); adjustErr != nil {
		return nil, adjustErr
	}

	if commitErr := session.Commit(ctx); commitErr != nil {
		return nil, commitErr
	}

	return applied.After, nil
}

// Release deletes a reservation and returns its quantity to the inventory
// item in one shared session.
func (m Model) Release(ctx context.Context, tenantID string, id string, principal aggregate.Principal) error {
	if !m.ids.IsIDFromTenant(id, tenantID) {
		return ErrNotFound
	}

	payload, marshalErr := marshal(DeleteReservationPayload{Type: DeleteReservationEventType})
	if marshalErr != nil {
		return marshalErr
	}

	session, beginErr := m.store.BeginSession(ctx)
	if beginErr != nil {
		return beginErr
	}
	defer func() { _ = session.Rollback(ctx) }()

	applied, applyErr := m.store.ApplyEventInSession(ctx, session, id, payload, principal)
	if applyErr != nil {
		return applyErr
	}

	// The deletion's before-state tells us what to give back.
	if applied.Before == nil {
		return aggregate.ErrNotInitialised
	}

	if _, adjustErr := m.inventory.ReceiveInSession(
		ctx, session, tenantID, applied.Before.InventoryID, applied.Before.Quantity, principal,
	); adjustErr != nil {
		return adjustErr
	}

	return session.Commit(ctx)
}

// Update merges the given fields into the existing state. Quantity changes do
// not adjust inventory; use Release and Reserve for that.
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

	payload, marshalErr := marshal(UpdateReservationPayload{
		Type:     UpdateReservationEventType,
		Quantity: input.Quantity,
		StartsAt: input.StartsAt,
		EndsAt:   input.EndsAt,
		Notes:    input.Notes,
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

// Delete removes the reservation's projection without touching inventory; the
// event log is retained.
func (m Model) Delete(ctx context.Context, tenantID string, id string, principal aggregate.Principal) error {
	if !m.ids.IsIDFromTenant(id, tenantID) {
		return ErrNotFound
	}

	payload, marshalErr := marshal(DeleteReservationPayload{Type: DeleteReservationEventType})
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

// List returns the tenant's reservations whose [startsAt, endsAt] interval
// overlaps [from, until], paginated. The overlap matches three cases: the
// reservation starts within the range, ends within the range, or fully
// encloses it.
func (m Model) List(
	ctx context.Context,
	tenantID string,
	from, until time.Time,
	limit, offset uint,
) ([]State, error) {

	filter := aggregate.BuildStateFilter().
		Matching().
		AllPredicatesOf(aggregate.P(tenantIDFilterKey, tenantID)).
		AndOverlappingDateRange(startsAtFilterKey, endsAtFilterKey, from, until).
		WithLimit(limit).
		WithOffset(offset).
		Finalize()

	return m.queryStates(ctx, filter)
}

// ListForInventory returns the reservations of one inventory item, paginated.
func (m Model) ListForInventory(
	ctx context.Context,
	tenantID string,
	inventoryID string,
	limit, offset uint,
) ([]State, error) {

	filter := aggregate.BuildStateFilter().
		Matching().
		AllPredicatesOf(
			aggregate.P(tenantIDFilterKey, tenantID),
			aggregate.P(inventoryIDFilterKey, inventoryID)).
		WithLimit(limit).
		WithOffset(offset).
		Finalize()

	return m.queryStates(ctx, filter)
}

func (m Model) queryStates(ctx context.Context, filter aggregate.StateFilter) ([]State, error) {
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
