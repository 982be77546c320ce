package helper

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
	"github.com/quotedesk/eventsourced-aggregates-go/aggregate/postgresengine"
	"github.com/quotedesk/eventsourced-aggregates-go/testutil/counter"
)

const (
	defaultEventTableName = "events"
	defaultStateTableName = "aggregate_state"
)

// CreateTables creates the default event and state tables if they do not exist.
func CreateTables[S any](t testing.TB, wrapper *Wrapper[S]) {
	t.Helper()
	CreateTablesWithNames(t, wrapper, defaultEventTableName, defaultStateTableName)
}

// CreateTablesWithNames creates the event and state tables under custom names,
// including the unique index that backstops the sequence guard.
func CreateTablesWithNames[S any](t testing.TB, wrapper *Wrapper[S], eventTableName, stateTableName string) {
	t.Helper()

	wrapper.Exec(t, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			event_id        TEXT        PRIMARY KEY,
			aggregate_id    TEXT        NOT NULL,
			sequence_number BIGINT      NOT NULL,
			occurred_at     TIMESTAMPTZ NOT NULL,
			principal_id    TEXT        NOT NULL DEFAULT '',
			payload         JSONB       NOT NULL
		)`, eventTableName))

	wrapper.Exec(t, fmt.Sprintf(
		`CREATE UNIQUE INDEX IF NOT EXISTS %s_aggregate_sequence ON %s (aggregate_id, sequence_number)`,
		eventTableName, eventTableName))

	wrapper.Exec(t, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			aggregate_id TEXT        PRIMARY KEY,
			state        JSONB       NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL
		)`, stateTableName))
}

// CleanUp truncates the default event and state tables.
func CleanUp[S any](t testing.TB, wrapper *Wrapper[S]) {
	t.Helper()
	CleanUpWithNames(t, wrapper, defaultEventTableName, defaultStateTableName)
}

// CleanUpWithNames truncates the event and state tables under custom names.
func CleanUpWithNames[S any](t testing.TB, wrapper *Wrapper[S], eventTableName, stateTableName string) {
	t.Helper()

	wrapper.Exec(t, fmt.Sprintf(`TRUNCATE TABLE %s`, eventTableName))
	wrapper.Exec(t, fmt.Sprintf(`TRUNCATE TABLE %s`, stateTableName))
}

// GivenUniqueID generates a unique aggregate id for testing.
func GivenUniqueID(t testing.TB) string {
	t.Helper()

	id, err := uuid.NewV7()
	assert.NoError(t, err, "error in arranging test data")

	return id.String()
}

// GivenCounterInitialised appends a creation event for testing.
func GivenCounterInitialised(
	t testing.TB,
	ctx context.Context, //nolint:revive
	store *postgresengine.AggregateStore[counter.State],
	counterID string,
	value int64,
) {

	t.Helper()

	_, err := store.ApplyEvent(ctx, counterID, counter.InitialisedPayloadJSON(value), aggregate.SystemPrincipal())
	assert.NoError(t, err, "error in arranging test data")
}

// GivenCounterIncremented appends an increment event for testing.
func GivenCounterIncremented(
	t testing.TB,
	ctx context.Context, //nolint:revive
	store *postgresengine.AggregateStore[counter.State],
	counterID string,
	amount int64,
) {

	t.Helper()

	_, err := store.ApplyEvent(ctx, counterID, counter.IncrementedPayloadJSON(amount), aggregate.SystemPrincipal())
	assert.NoError(t, err, "error in arranging test data")
}

// GivenCounterDestroyed appends a deletion event for testing.
func GivenCounterDestroyed(
	t testing.TB,
	ctx context.Context, //nolint:revive
	store *postgresengine.AggregateStore[counter.State],
	counterID string,
) {

	t.Helper()

	_, err := store.ApplyEvent(ctx, counterID, counter.DestroyedPayloadJSON(), aggregate.SystemPrincipal())
	assert.NoError(t, err, "error in arranging test data")
}
