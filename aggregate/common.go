package aggregate

import (
	"errors"
)

var (
	// ErrNilDatabaseConnection is returned when a nil database connection is supplied to an engine constructor.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyEventTableName is returned when an empty event table name is supplied.
	ErrEmptyEventTableName = errors.New("empty event table name supplied")

	// ErrEmptyStateTableName is returned when an empty state table name is supplied.
	ErrEmptyStateTableName = errors.New("empty state table name supplied")

	// ErrEmptyAggregateID is returned when an empty aggregate id is supplied to a store operation.
	ErrEmptyAggregateID = errors.New("empty aggregate id supplied")

	// ErrNilReducer is returned when no reducer is supplied to an engine constructor.
	ErrNilReducer = errors.New("reducer must not be nil")

	// ErrNilPayloadSchema is returned when no payload schema is supplied to an engine constructor.
	ErrNilPayloadSchema = errors.New("payload schema must not be nil")

	// ErrConcurrencyConflict is returned when a concurrent append to the same aggregate
	// won the race; the caller should retry the whole apply from a fresh read.
	ErrConcurrencyConflict = errors.New("concurrency conflict, no rows were affected")

	// ErrNotInitialised is returned by reducers when a non-creation event targets an
	// aggregate that has no current state (never created, or already deleted).
	ErrNotInitialised = errors.New("not initialised correctly")

	// ErrQueryingEventsFailed is returned when loading an aggregate's event history fails.
	ErrQueryingEventsFailed = errors.New("querying events failed")

	// ErrQueryingStateFailed is returned when reading a materialized state document fails.
	ErrQueryingStateFailed = errors.New("querying state failed")

	// ErrAppendingEventFailed is returned when appending an event row fails.
	ErrAppendingEventFailed = errors.New("appending event failed")

	// ErrPersistingStateFailed is returned when writing the materialized state document fails.
	ErrPersistingStateFailed = errors.New("persisting state failed")

	// ErrBuildingQueryFailed is returned when SQL query construction fails.
	ErrBuildingQueryFailed = errors.New("building query failed")

	// ErrScanningDBRowFailed is returned when scanning a database row fails.
	ErrScanningDBRowFailed = errors.New("scanning database row failed")

	// ErrSessionClosed is returned when an operation is attempted on a finished session.
	ErrSessionClosed = errors.New("session is already committed or rolled back")
)

// SequenceNumberUint is a type alias for uint, representing an event's position
// within its aggregate's log: 1-based, strictly increasing, gapless.
type SequenceNumberUint = uint
