// Package aggregate provides the core abstractions for an event-sourced
// aggregate store: per-aggregate append-only event logs replayed through pure
// reducers into materialized state documents.
//
// This package defines the storage-agnostic types shared by engine
// implementations: event and state document DTOs, the reducer contract,
// payload schema validation, state-query filters, and common error
// definitions.
//
// Key types:
//   - EventDocument: an immutable event appended to an aggregate's log
//   - StateDocument: the materialized projection derived from the log
//   - Reducer: a pure state-transition function applied during replay
//   - PayloadSchema: discriminated-union validation for event payloads
//   - StateFilter: criteria for querying materialized state documents
//
// Common usage pattern:
//
//	store, err := postgresengine.NewAggregateStoreFromPGXPool[inventory.State](
//		pool,
//		inventory.Schema(),
//		inventory.Reduce,
//		postgresengine.WithEventTableName("inventory_events"),
//		postgresengine.WithStateTableName("inventory_state"),
//	)
//
//	applied, err := store.ApplyEvent(ctx, aggregateID, payloadJSON, principal)
//	if err != nil {
//		// handle error
//	}
//	_ = applied.Before // state prior to the event, nil for creations
//	_ = applied.After  // state after the event, nil for deletions
package aggregate
