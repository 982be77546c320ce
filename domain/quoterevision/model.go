// Package quoterevision implements the quote revision aggregate: versioned,
// priced line-item lists attached to a quote. Line items are wholesale
// replaced on update with explicit id reconciliation so their identity stays
// stable across revisions.
package quoterevision

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
	"github.com/quotedesk/eventsourced-aggregates-go/aggregate/postgresengine"
	"github.com/quotedesk/eventsourced-aggregates-go/identifier"
)

// IDPrefix is the external-facing id prefix for quote revisions.
const IDPrefix = "QRV"

// ErrNotFound is returned by mutating operations when the id does not belong
// to the tenant.
var ErrNotFound = errors.New("quote revision not found")

const (
	tenantIDFilterKey = "tenantId"
	quoteIDFilterKey  = "quoteId"
)

// CreateInput carries the caller-supplied fields for a new quote revision.
// Line items without an id get one minted.
type CreateInput struct {
	QuoteID        string
	RevisionNumber int
	LineItems      []LineItem
	Notes          *string
}

// UpdateInput carries the full replacement line-item list and optional notes.
type UpdateInput struct {
	LineItems []LineItem
	Notes     *string
}

// Model is the CRUD-style facade over the quote revision aggregate store.
type Model struct {
	store  *postgresengine.AggregateStore[State]
	ids    identifier.Generator
	mintID func() string
}

// NewModel creates a quote revision model over the given store and id generator.
func NewModel(store *postgresengine.AggregateStore[State], ids identifier.Generator) Model {
	return Model{store: store, ids: ids, mintID: uuid.NewString}
}

// Create mints a new tenant-scoped id and appends the creation event.
// Caller-supplied line-item ids are kept; missing ones are minted.
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

	payload, marshalErr := marshal(CreateQuoteRevisionPayload{
		Type:           CreateQuoteRevisionEventType,
		TenantID:       tenantID,
		QuoteID:        input.QuoteID,
		RevisionNumber: input.RevisionNumber,
		LineItems:      MintMissingLineItemIDs(input.LineItems, m.mintID),
		Notes:          input.Notes,
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

// Update replaces the revision's line-item list after reconciling item ids
// against the current state: matched items keep their id, new items get one
// minted.
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

	var existingItems []LineItem

	document, getErr := m.store.GetStateDocument(ctx, id)
	if getErr != nil {
		return nil, getErr
	}

	if document != nil {
		existing, unmarshalErr := stateFromDocument(*document)
		if unmarshalErr != nil {
			return nil, unmarshalErr
		}

		existingItems = existing.LineItems
	}

	payload, marshalErr := marshal(UpdateQuoteRevisionPayload{
		Type:      UpdateQuoteRevisionEventType,
		LineItems: ReconcileLineItemIDs(existingItems, input.LineItems, m.mintID),
		Notes:     input.Notes,
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

// Delete removes the revision's projection; the event log is retained.
func (m Model) Delete(ctx context.Context, tenantID string, id string, principal aggregate.Principal) error {
	if !m.ids.IsIDFromTenant(id, tenantID) {
		return ErrNotFound
	}

	payload, marshalErr := marshal(DeleteQuoteRevisionPayload{Type: DeleteQuoteRevisionEventType})
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

// ListForQuote returns the revisions of one quote, paginated.
func (m Model) ListForQuote(
	ctx context.Context,
	tenantID string,
	quoteID string,
	limit, offset uint,
) ([]State, error) {

	filter := aggregate.BuildStateFilter().
		Matching().
		AllPredicatesOf(
			aggregate.P(tenantIDFilterKey, tenantID),
			aggregate.P(quoteIDFilterKey, quoteID)).
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
