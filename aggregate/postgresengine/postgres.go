package postgresengine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
	"github.com/quotedesk/eventsourced-aggregates-go/aggregate/postgresengine/internal/adapters"
)

const (
	defaultEventTableName = "events"
	defaultStateTableName = "aggregate_state"

	colEventID        = "event_id"
	colAggregateID    = "aggregate_id"
	colSequenceNumber = "sequence_number"
	colOccurredAt     = "occurred_at"
	colPrincipalID    = "principal_id"
	colPayload        = "payload"
	colState          = "state"
	colUpdatedAt      = "updated_at"

	cteContext      = "context"
	dialectPostgres = "postgres"
	aliasMaxSeq     = "max_seq"
	castText        = "?::text"
	castTimestamp   = "?::timestamp with time zone"
	castJsonb       = "?::jsonb"
	castBigint      = "?::bigint"
)

type (
	sqlQueryString    = string
	rowsAffectedInt64 = int64
)

// Applied is the result of a successful ApplyEvent call: the state before the
// event was applied and the state after. Before is nil for creation events,
// After is nil for deletion events. Callers use the pair for business
// decisions that need the prior value.
type Applied[S any] struct {
	Before *S
	After  *S
	Event  aggregate.EventDocument
}

// AggregateStore persists an ordered, append-only log of events per aggregate
// and a companion materialized state document derived by replaying the log
// through the configured reducer.
//
// Every mutation goes through an atomic load-reduce-append-persist cycle
// inside one repeatable-read transaction; a guarded insert keyed on the
// expected maximum sequence number keeps the log gapless under concurrent
// appenders, surfacing the losing side as aggregate.ErrConcurrencyConflict.
type AggregateStore[S any] struct {
	db             adapters.DBAdapter
	eventTableName string
	stateTableName string
	schema         *aggregate.PayloadSchema
	reducer        aggregate.Reducer[S]
	clock          func() time.Time
	observability  observabilityConfig
}

// NewAggregateStoreFromPGXPool creates a new AggregateStore using a pgx pool with optional configuration.
func NewAggregateStoreFromPGXPool[S any](
	db *pgxpool.Pool,
	schema *aggregate.PayloadSchema,
	reducer aggregate.Reducer[S],
	options ...Option,
) (*AggregateStore[S], error) {

	if db == nil {
		return nil, aggregate.ErrNilDatabaseConnection
	}

	return newAggregateStore[S](adapters.NewPGXAdapter(db), schema, reducer, options...)
}

// NewAggregateStoreFromSQLDB creates a new AggregateStore using a sql.DB with optional configuration.
func NewAggregateStoreFromSQLDB[S any](
	db *sql.DB,
	schema *aggregate.PayloadSchema,
	reducer aggregate.Reducer[S],
	options ...Option,
) (*AggregateStore[S], error) {

	if db == nil {
		return nil, aggregate.ErrNilDatabaseConnection
	}

	return newAggregateStore[S](adapters.NewSQLAdapter(db), schema, reducer, options...)
}

// NewAggregateStoreFromSQLX creates a new AggregateStore using a sqlx.DB with optional configuration.
func NewAggregateStoreFromSQLX[S any](
	db *sqlx.DB,
	schema *aggregate.PayloadSchema,
	reducer aggregate.Reducer[S],
	options ...Option,
) (*AggregateStore[S], error) {

	if db == nil {
		return nil, aggregate.ErrNilDatabaseConnection
	}

	return newAggregateStore[S](adapters.NewSQLXAdapter(db), schema, reducer, options...)
}

func newAggregateStore[S any](
	db adapters.DBAdapter,
	schema *aggregate.PayloadSchema,
	reducer aggregate.Reducer[S],
	options ...Option,
) (*AggregateStore[S], error) {

	if schema == nil {
		return nil, aggregate.ErrNilPayloadSchema
	}

	if reducer == nil {
		return nil, aggregate.ErrNilReducer
	}

	config := storeConfig{
		eventTableName: defaultEventTableName,
		stateTableName: defaultStateTableName,
		clock:          time.Now,
	}

	for _, option := range options {
		if err := option(&config); err != nil {
			return nil, err
		}
	}

	return &AggregateStore[S]{
		db:             db,
		eventTableName: config.eventTableName,
		stateTableName: config.stateTableName,
		schema:         schema,
		reducer:        reducer,
		clock:          config.clock,
		observability:  config.observability,
	}, nil
}

// dbRunner is the subset of database operations shared by the pool adapter and
// an open transaction; the apply cycle is written against it so the same code
// serves both the store-owned and the session-participating entry points.
type dbRunner interface {
	Query(ctx context.Context, query string) (adapters.DBRows, error)
	Exec(ctx context.Context, query string) (adapters.DBResult, error)
}

// ApplyEvent validates the payload, then atomically loads the aggregate's full
// event history, replays it through the reducer, appends the new event with
// the next sequence number, and persists the recomputed materialized state -
// all inside one transaction that this call owns (begin, commit, abort).
//
// An empty principal id is permitted and denotes the "system" actor.
//
// Error semantics: a *aggregate.ValidationError or aggregate.ErrNotInitialised
// aborts with zero writes; aggregate.ErrConcurrencyConflict means a concurrent
// appender won and the caller should retry the whole call from a fresh read
// (see aggregate.RetryWithExponentialBackoff). The store never retries
// internally and never partially commits.
func (es *AggregateStore[S]) ApplyEvent(
	ctx context.Context,
	aggregateID string,
	payloadJSON []byte,
	principal aggregate.Principal,
) (Applied[S], error) {

	var empty Applied[S]

	if err := es.validateApplyInput(aggregateID, payloadJSON); err != nil {
		return empty, err
	}

	tx, beginErr := es.db.Begin(ctx)
	if beginErr != nil {
		es.observability.logError(ctx, logMsgBeginTxFailed, beginErr)
		return empty, mapConcurrencyError(beginErr)
	}

	applied, applyErr := es.applyEventIn(ctx, tx, aggregateID, payloadJSON, principal)
	if applyErr != nil {
		es.rollbackQuietly(ctx, tx)
		return empty, applyErr
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		es.observability.logError(ctx, logMsgCommitTxFailed, commitErr)
		es.observability.recordConflictIfAny(ctx, operationApply, mapConcurrencyError(commitErr))

		return empty, mapConcurrencyError(commitErr)
	}

	return applied, nil
}

// ApplyEventInSession is ApplyEvent participating in the caller's session: it
// performs the same validate-load-reduce-append-persist cycle inside the
// supplied transaction and performs no commit or rollback itself. The caller
// owns the session's outcome, which enables composing multiple ApplyEvent
// calls - possibly across different aggregate stores - into one larger atomic
// business transaction.
//
// On any error the session must be rolled back by the caller; its reads and
// writes are no longer reliable.
func (es *AggregateStore[S]) ApplyEventInSession(
	ctx context.Context,
	session *Session,
	aggregateID string,
	payloadJSON []byte,
	principal aggregate.Principal,
) (Applied[S], error) {

	var empty Applied[S]

	if err := es.validateApplyInput(aggregateID, payloadJSON); err != nil {
		return empty, err
	}

	tx, sessionErr := session.transaction()
	if sessionErr != nil {
		return empty, sessionErr
	}

	return es.applyEventIn(ctx, tx, aggregateID, payloadJSON, principal)
}

func (es *AggregateStore[S]) validateApplyInput(aggregateID string, payloadJSON []byte) error {
	if aggregateID == "" {
		return aggregate.ErrEmptyAggregateID
	}

	if validationErr := es.schema.Validate(payloadJSON); validationErr != nil {
		es.observability.recordValidationFailure(operationApply)
		return validationErr
	}

	return nil
}

// applyEventIn runs the load-reduce-append-persist cycle on the given runner.
func (es *AggregateStore[S]) applyEventIn(
	ctx context.Context,
	runner dbRunner,
	aggregateID string,
	payloadJSON []byte,
	principal aggregate.Principal,
) (Applied[S], error) {

	var empty Applied[S]

	spanCtx, span := es.observability.startApplySpan(ctx, aggregateID)
	start := time.Now()

	history, loadErr := es.loadEvents(spanCtx, runner, aggregateID)
	if loadErr != nil {
		es.observability.finishSpanError(span, loadErr)
		return empty, loadErr
	}

	beforeState, replayErr := es.replayHistory(history)
	if replayErr != nil {
		es.observability.finishSpanError(span, replayErr)
		return empty, replayErr
	}

	newEvent, buildErr := aggregate.BuildEventDocument(
		uuid.NewString(),
		aggregateID,
		aggregate.SequenceNumberUint(len(history)+1),
		es.clock().UTC(),
		principal.ID,
		payloadJSON,
	)
	if buildErr != nil {
		es.observability.finishSpanError(span, buildErr)
		return empty, buildErr
	}

	afterState, reduceErr := es.reducer(beforeState, newEvent)
	if reduceErr != nil {
		es.observability.finishSpanError(span, reduceErr)
		return empty, reduceErr
	}

	if appendErr := es.appendEvent(spanCtx, runner, newEvent, aggregate.SequenceNumberUint(len(history))); appendErr != nil {
		es.observability.recordConflictIfAny(spanCtx, operationApply, appendErr)
		es.observability.finishSpanError(span, appendErr)

		return empty, appendErr
	}

	if persistErr := es.persistState(spanCtx, runner, aggregateID, afterState, newEvent.OccurredAt); persistErr != nil {
		es.observability.finishSpanError(span, persistErr)
		return empty, persistErr
	}

	es.observability.recordApplied(spanCtx, newEvent, len(history)+1, time.Since(start))
	es.observability.finishSpanSuccess(span, newEvent.SequenceNumber)

	return Applied[S]{Before: beforeState, After: afterState, Event: newEvent}, nil
}

// GetStateDocument reads the materialized state document for the given
// aggregate id, bypassing replay. Returns (nil, nil) when no document exists -
// "not found" is a null result, not an error.
//
// The read is a lock-free snapshot read and may observe slightly stale data
// relative to in-flight transactions; business decisions that need a
// consistent before/after pair must use ApplyEvent's return value instead.
func (es *AggregateStore[S]) GetStateDocument(ctx context.Context, aggregateID string) (*aggregate.StateDocument, error) {
	return es.getStateDocumentIn(ctx, es.db, aggregateID)
}

// GetStateDocumentInSession reads the materialized state document within the
// caller's session, observing the session's uncommitted writes.
func (es *AggregateStore[S]) GetStateDocumentInSession(
	ctx context.Context,
	session *Session,
	aggregateID string,
) (*aggregate.StateDocument, error) {

	tx, sessionErr := session.transaction()
	if sessionErr != nil {
		return nil, sessionErr
	}

	return es.getStateDocumentIn(ctx, tx, aggregateID)
}

// GetEventDocuments returns the raw ordered event log for the given aggregate
// id - used for inspection, testing, and downstream read models. The log is
// retained permanently, including for deleted aggregates.
func (es *AggregateStore[S]) GetEventDocuments(ctx context.Context, aggregateID string) (aggregate.EventDocuments, error) {
	if aggregateID == "" {
		return nil, aggregate.ErrEmptyAggregateID
	}

	return es.loadEvents(ctx, es.db, aggregateID)
}

// GetEventDocumentsInSession returns the raw ordered event log within the
// caller's session, observing the session's uncommitted appends.
func (es *AggregateStore[S]) GetEventDocumentsInSession(
	ctx context.Context,
	session *Session,
	aggregateID string,
) (aggregate.EventDocuments, error) {

	if aggregateID == "" {
		return nil, aggregate.ErrEmptyAggregateID
	}

	tx, sessionErr := session.transaction()
	if sessionErr != nil {
		return nil, sessionErr
	}

	return es.loadEvents(ctx, tx, aggregateID)
}

// Replay recomputes the materialized state from the aggregate's full event log
// inside its own transaction and overwrites the stored projection. The log
// itself is never changed. Used for repairing or bootstrapping projections,
// e.g. after reducer bugs or manual data repair.
func (es *AggregateStore[S]) Replay(ctx context.Context, aggregateID string) error {
	if aggregateID == "" {
		return aggregate.ErrEmptyAggregateID
	}

	tx, beginErr := es.db.Begin(ctx)
	if beginErr != nil {
		es.observability.logError(ctx, logMsgBeginTxFailed, beginErr)
		return mapConcurrencyError(beginErr)
	}

	replayErr := es.replayIn(ctx, tx, aggregateID)
	if replayErr != nil {
		es.rollbackQuietly(ctx, tx)
		return replayErr
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		es.observability.logError(ctx, logMsgCommitTxFailed, commitErr)
		return mapConcurrencyError(commitErr)
	}

	return nil
}

func (es *AggregateStore[S]) replayIn(ctx context.Context, tx adapters.DBTx, aggregateID string) error {
	history, loadErr := es.loadEvents(ctx, tx, aggregateID)
	if loadErr != nil {
		return loadErr
	}

	state, replayErr := es.replayHistory(history)
	if replayErr != nil {
		return replayErr
	}

	var lastOccurredAt time.Time
	if len(history) > 0 {
		lastOccurredAt = history[len(history)-1].OccurredAt
	}

	return es.persistState(ctx, tx, aggregateID, state, lastOccurredAt)
}

// QueryStateDocuments lists materialized state documents matching the given
// filter, ordered by aggregate id for deterministic pagination.
func (es *AggregateStore[S]) QueryStateDocuments(
	ctx context.Context,
	filter aggregate.StateFilter,
) (aggregate.StateDocuments, error) {

	sqlQuery, buildErr := es.buildStateListQuery(filter)
	if buildErr != nil {
		es.observability.logError(ctx, logMsgBuildSelectQueryFailed, buildErr)
		return nil, buildErr
	}

	start := time.Now()
	rows, queryErr := es.db.Query(ctx, sqlQuery)
	es.observability.logQueryWithDuration(ctx, sqlQuery, logActionQueryState, time.Since(start))

	if queryErr != nil {
		es.observability.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		return nil, joinErr(aggregate.ErrQueryingStateFailed, queryErr)
	}
	defer es.closeRows(ctx, rows)

	documents := make(aggregate.StateDocuments, 0)

	for rows.Next() {
		var (
			scannedID        string
			scannedState     []byte
			scannedUpdatedAt time.Time
		)

		if scanErr := rows.Scan(&scannedID, &scannedState, &scannedUpdatedAt); scanErr != nil {
			es.observability.logError(ctx, logMsgScanRowFailed, scanErr)
			return nil, joinErr(aggregate.ErrScanningDBRowFailed, scanErr)
		}

		document, buildDocErr := aggregate.BuildStateDocument(scannedID, scannedState, scannedUpdatedAt)
		if buildDocErr != nil {
			return nil, buildDocErr
		}

		documents = append(documents, document)
	}

	return documents, nil
}

/***** internals *****/

func (es *AggregateStore[S]) replayHistory(history aggregate.EventDocuments) (*S, error) {
	var state *S

	for _, event := range history {
		next, err := es.reducer(state, event)
		if err != nil {
			return nil, err
		}

		state = next
	}

	return state, nil
}

func (es *AggregateStore[S]) loadEvents(
	ctx context.Context,
	runner dbRunner,
	aggregateID string,
) (aggregate.EventDocuments, error) {

	sqlQuery, buildErr := es.buildSelectEventsQuery(aggregateID)
	if buildErr != nil {
		es.observability.logError(ctx, logMsgBuildSelectQueryFailed, buildErr)
		return nil, buildErr
	}

	start := time.Now()
	rows, queryErr := runner.Query(ctx, sqlQuery)
	es.observability.logQueryWithDuration(ctx, sqlQuery, logActionQueryEvents, time.Since(start))

	if queryErr != nil {
		es.observability.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		return nil, joinErr(aggregate.ErrQueryingEventsFailed, queryErr)
	}
	defer es.closeRows(ctx, rows)

	history := make(aggregate.EventDocuments, 0)

	for rows.Next() {
		var (
			scannedEventID     string
			scannedAggregateID string
			scannedSequence    aggregate.SequenceNumberUint
			scannedOccurredAt  time.Time
			scannedPrincipalID string
			scannedPayload     []byte
		)

		scanErr := rows.Scan(
			&scannedEventID,
			&scannedAggregateID,
			&scannedSequence,
			&scannedOccurredAt,
			&scannedPrincipalID,
			&scannedPayload,
		)
		if scanErr != nil {
			es.observability.logError(ctx, logMsgScanRowFailed, scanErr)
			return nil, joinErr(aggregate.ErrScanningDBRowFailed, scanErr)
		}

		event, buildErr := aggregate.BuildEventDocument(
			scannedEventID,
			scannedAggregateID,
			scannedSequence,
			scannedOccurredAt,
			scannedPrincipalID,
			scannedPayload,
		)
		if buildErr != nil {
			es.observability.logError(ctx, logMsgBuildEventDocFailed, buildErr)
			return nil, buildErr
		}

		history = append(history, event)
	}

	return history, nil
}

// appendEvent inserts the new event row guarded by the expected maximum
// sequence number: the insert affects zero rows when a concurrent appender
// already advanced the log, which surfaces as ErrConcurrencyConflict. The
// unique index on (aggregate_id, sequence_number) backstops the guard under
// read-committed visibility rules.
func (es *AggregateStore[S]) appendEvent(
	ctx context.Context,
	runner dbRunner,
	event aggregate.EventDocument,
	expectedMaxSequenceNumber aggregate.SequenceNumberUint,
) error {

	sqlQuery, buildErr := es.buildGuardedInsertQuery(event, expectedMaxSequenceNumber)
	if buildErr != nil {
		es.observability.logError(ctx, logMsgBuildInsertQueryFailed, buildErr, logAttrEventType, event.PayloadType())
		return buildErr
	}

	start := time.Now()
	result, execErr := runner.Exec(ctx, sqlQuery)
	es.observability.logQueryWithDuration(ctx, sqlQuery, logActionAppend, time.Since(start))

	if execErr != nil {
		es.observability.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)
		return mapConcurrencyError(joinErr(aggregate.ErrAppendingEventFailed, execErr))
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		es.observability.logError(ctx, logMsgRowsAffectedFailed, rowsAffectedErr)
		return joinErr(aggregate.ErrAppendingEventFailed, rowsAffectedErr)
	}

	if rowsAffected < 1 {
		es.observability.logOperation(ctx, logMsgConcurrencyConflict,
			logAttrAggregateID, event.AggregateID,
			logAttrExpectedSequence, expectedMaxSequenceNumber,
			logAttrRowsAffected, rowsAffected,
		)

		return aggregate.ErrConcurrencyConflict
	}

	return nil
}

// persistState fully overwrites the materialized state document, or deletes it
// when the reducer's output was nil (domain deletion).
func (es *AggregateStore[S]) persistState(
	ctx context.Context,
	runner dbRunner,
	aggregateID string,
	state *S,
	updatedAt time.Time,
) error {

	var sqlQuery sqlQueryString
	var buildErr error

	if state == nil {
		sqlQuery, buildErr = es.buildDeleteStateQuery(aggregateID)
	} else {
		stateJSON, marshalErr := jsoniter.ConfigFastest.Marshal(state)
		if marshalErr != nil {
			return joinErr(aggregate.ErrPersistingStateFailed, marshalErr)
		}

		sqlQuery, buildErr = es.buildUpsertStateQuery(aggregateID, stateJSON, updatedAt)
	}

	if buildErr != nil {
		es.observability.logError(ctx, logMsgBuildUpsertQueryFailed, buildErr)
		return buildErr
	}

	start := time.Now()
	_, execErr := runner.Exec(ctx, sqlQuery)
	es.observability.logQueryWithDuration(ctx, sqlQuery, logActionPersistState, time.Since(start))

	if execErr != nil {
		es.observability.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)
		return mapConcurrencyError(joinErr(aggregate.ErrPersistingStateFailed, execErr))
	}

	return nil
}

func (es *AggregateStore[S]) getStateDocumentIn(
	ctx context.Context,
	runner dbRunner,
	aggregateID string,
) (*aggregate.StateDocument, error) {

	if aggregateID == "" {
		return nil, aggregate.ErrEmptyAggregateID
	}

	sqlQuery, buildErr := es.buildSelectStateQuery(aggregateID)
	if buildErr != nil {
		es.observability.logError(ctx, logMsgBuildSelectQueryFailed, buildErr)
		return nil, buildErr
	}

	start := time.Now()
	rows, queryErr := runner.Query(ctx, sqlQuery)
	es.observability.logQueryWithDuration(ctx, sqlQuery, logActionQueryState, time.Since(start))

	if queryErr != nil {
		es.observability.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		return nil, joinErr(aggregate.ErrQueryingStateFailed, queryErr)
	}
	defer es.closeRows(ctx, rows)

	if !rows.Next() {
		return nil, nil // not found is a null result, not an error
	}

	var (
		scannedID        string
		scannedState     []byte
		scannedUpdatedAt time.Time
	)

	if scanErr := rows.Scan(&scannedID, &scannedState, &scannedUpdatedAt); scanErr != nil {
		es.observability.logError(ctx, logMsgScanRowFailed, scanErr)
		return nil, joinErr(aggregate.ErrScanningDBRowFailed, scanErr)
	}

	document, buildDocErr := aggregate.BuildStateDocument(scannedID, scannedState, scannedUpdatedAt)
	if buildDocErr != nil {
		return nil, buildDocErr
	}

	return &document, nil
}

func (es *AggregateStore[S]) rollbackQuietly(ctx context.Context, tx adapters.DBTx) {
	if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
		es.observability.logWarn(ctx, logMsgRollbackFailed, logAttrError, rollbackErr.Error())
	}
}

func (es *AggregateStore[S]) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		es.observability.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

/***** query building *****/

func (es *AggregateStore[S]) buildSelectEventsQuery(aggregateID string) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(es.eventTableName).
		Select(colEventID, colAggregateID, colSequenceNumber, colOccurredAt, colPrincipalID, colPayload).
		Where(goqu.Ex{colAggregateID: aggregateID}).
		Order(goqu.I(colSequenceNumber).Asc())

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", joinErr(aggregate.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (es *AggregateStore[S]) buildGuardedInsertQuery(
	event aggregate.EventDocument,
	expectedMaxSequenceNumber aggregate.SequenceNumberUint,
) (sqlQueryString, error) {

	builder := goqu.Dialect(dialectPostgres)

	// The CTE reads the aggregate's current max sequence; the insert only
	// happens while it still equals the value observed during the load.
	cteStmt := builder.
		From(es.eventTableName).
		Select(goqu.MAX(colSequenceNumber).As(aliasMaxSeq)).
		Where(goqu.Ex{colAggregateID: event.AggregateID})

	selectStmt := builder.
		From(cteContext).
		Select(
			goqu.L(castText, event.EventID),
			goqu.L(castText, event.AggregateID),
			goqu.L(castBigint, int64(event.SequenceNumber)),
			goqu.L(castTimestamp, event.OccurredAt),
			goqu.L(castText, event.PrincipalID),
			goqu.L(castJsonb, string(event.PayloadJSON)),
		).
		Where(goqu.COALESCE(goqu.C(aliasMaxSeq), 0).Eq(goqu.V(expectedMaxSequenceNumber)))

	insertStmt := builder.
		Insert(es.eventTableName).
		Cols(colEventID, colAggregateID, colSequenceNumber, colOccurredAt, colPrincipalID, colPayload).
		FromQuery(selectStmt).
		With(cteContext, cteStmt)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", joinErr(aggregate.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (es *AggregateStore[S]) buildUpsertStateQuery(
	aggregateID string,
	stateJSON []byte,
	updatedAt time.Time,
) (sqlQueryString, error) {

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(es.stateTableName).
		Cols(colAggregateID, colState, colUpdatedAt).
		FromQuery(goqu.Dialect(dialectPostgres).Select(
			goqu.L(castText, aggregateID),
			goqu.L(castJsonb, string(stateJSON)),
			goqu.L(castTimestamp, updatedAt),
		)).
		OnConflict(goqu.DoUpdate(colAggregateID, goqu.Record{
			colState:     goqu.L(castJsonb, string(stateJSON)),
			colUpdatedAt: goqu.L(castTimestamp, updatedAt),
		}))

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", joinErr(aggregate.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (es *AggregateStore[S]) buildDeleteStateQuery(aggregateID string) (sqlQueryString, error) {
	deleteStmt := goqu.Dialect(dialectPostgres).
		Delete(es.stateTableName).
		Where(goqu.Ex{colAggregateID: aggregateID})

	sqlQuery, _, toSQLErr := deleteStmt.ToSQL()
	if toSQLErr != nil {
		return "", joinErr(aggregate.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (es *AggregateStore[S]) buildSelectStateQuery(aggregateID string) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(es.stateTableName).
		Select(colAggregateID, colState, colUpdatedAt).
		Where(goqu.Ex{colAggregateID: aggregateID})

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", joinErr(aggregate.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (es *AggregateStore[S]) buildStateListQuery(filter aggregate.StateFilter) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(es.stateTableName).
		Select(colAggregateID, colState, colUpdatedAt).
		Order(goqu.I(colAggregateID).Asc())

	selectStmt = es.addStateWhereClause(filter, selectStmt)

	if filter.Limit() > 0 {
		selectStmt = selectStmt.Limit(filter.Limit())
	}

	if filter.Offset() > 0 {
		selectStmt = selectStmt.Offset(filter.Offset())
	}

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", joinErr(aggregate.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (es *AggregateStore[S]) addStateWhereClause(
	filter aggregate.StateFilter,
	selectStmt *goqu.SelectDataset,
) *goqu.SelectDataset {

	expressions := make([]goqu.Expression, 0)

	predicateExpressions := make([]goqu.Expression, 0)
	for _, predicate := range filter.Predicates() {
		predicateExpressions = append(
			predicateExpressions,
			goqu.L(fmt.Sprintf(`%s @> '{%q: %q}'`, colState, predicate.Key(), predicate.Val())),
		)
	}

	if len(predicateExpressions) > 0 {
		var predicatesExpressionList exp.ExpressionList

		if filter.AllPredicatesMustMatch() {
			predicatesExpressionList = goqu.And(predicateExpressions...)
		} else {
			predicatesExpressionList = goqu.Or(predicateExpressions...)
		}

		expressions = append(expressions, predicatesExpressionList)
	}

	if overlap, ok := filter.Overlap(); ok {
		expressions = append(expressions, es.buildOverlapExpression(overlap))
	}

	if len(expressions) == 0 {
		return selectStmt
	}

	return selectStmt.Where(goqu.And(expressions...))
}

// buildOverlapExpression renders the date-range overlap as the disjunction of
// three cases: document start within the query range, document end within the
// query range, or the document's interval fully enclosing the query range.
// This is equivalent to start <= query.until AND end >= query.from.
func (es *AggregateStore[S]) buildOverlapExpression(overlap aggregate.DateRangeOverlap) goqu.Expression {
	startCol := fmt.Sprintf(`(%s->>'%s')::timestamp with time zone`, colState, overlap.StartKey())
	endCol := fmt.Sprintf(`(%s->>'%s')::timestamp with time zone`, colState, overlap.EndKey())

	startWithinRange := goqu.And(
		goqu.L(startCol).Gte(goqu.L(castTimestamp, overlap.From())),
		goqu.L(startCol).Lte(goqu.L(castTimestamp, overlap.Until())),
	)

	endWithinRange := goqu.And(
		goqu.L(endCol).Gte(goqu.L(castTimestamp, overlap.From())),
		goqu.L(endCol).Lte(goqu.L(castTimestamp, overlap.Until())),
	)

	enclosesRange := goqu.And(
		goqu.L(startCol).Lte(goqu.L(castTimestamp, overlap.From())),
		goqu.L(endCol).Gte(goqu.L(castTimestamp, overlap.Until())),
	)

	return goqu.Or(startWithinRange, endWithinRange, enclosesRange)
}
