// Package postgresengine provides the PostgreSQL implementation of the
// event-sourced aggregate store.
//
// The engine supports multiple database libraries through adapters:
//   - pgx connection pools: NewAggregateStoreFromPGXPool
//   - standard library sql.DB: NewAggregateStoreFromSQLDB
//   - sqlx wrapper: NewAggregateStoreFromSQLX
//
// Every mutation is an atomic load-reduce-append-persist cycle inside one
// repeatable-read transaction. ApplyEvent owns its transaction; the *InSession
// variants participate in a caller-owned Session instead, enabling atomic
// compositions across multiple aggregates and stores.
//
// Expected schema per aggregate type (names configurable via options):
//
//	CREATE TABLE events (
//	    event_id        text PRIMARY KEY,
//	    aggregate_id    text NOT NULL,
//	    sequence_number bigint NOT NULL,
//	    occurred_at     timestamp with time zone NOT NULL,
//	    principal_id    text NOT NULL DEFAULT '',
//	    payload         jsonb NOT NULL
//	);
//	CREATE UNIQUE INDEX events_aggregate_sequence ON events (aggregate_id, sequence_number);
//
//	CREATE TABLE aggregate_state (
//	    aggregate_id text PRIMARY KEY,
//	    state        jsonb NOT NULL,
//	    updated_at   timestamp with time zone NOT NULL
//	);
//
// The unique index is required: it backstops the guarded insert that keeps
// sequence numbers gapless under concurrent appenders.
package postgresengine
