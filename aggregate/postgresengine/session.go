package postgresengine

import (
	"context"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
	"github.com/quotedesk/eventsourced-aggregates-go/aggregate/postgresengine/internal/adapters"
)

// Session is an explicit caller-owned transaction handle.
//
// A session begun on one store can be passed into the *InSession operations of
// any aggregate store backed by the same database, composing multiple applies
// - possibly across different aggregate types - into one atomic business
// transaction. The caller owns the outcome: none of the session's appends or
// state changes are visible to other readers until Commit, and none of them
// persist after Rollback.
//
// A session is not safe for concurrent use by multiple goroutines.
type Session struct {
	tx   adapters.DBTx
	done bool
}

// BeginSession starts a caller-owned repeatable-read transaction on the
// store's database. The caller must finish it with Commit or Rollback.
func (es *AggregateStore[S]) BeginSession(ctx context.Context) (*Session, error) {
	tx, beginErr := es.db.Begin(ctx)
	if beginErr != nil {
		es.observability.logError(ctx, logMsgBeginTxFailed, beginErr)
		return nil, mapConcurrencyError(beginErr)
	}

	return &Session{tx: tx}, nil
}

// Commit makes all of the session's writes durable and visible atomically.
// A write conflict detected at commit time surfaces as
// aggregate.ErrConcurrencyConflict; the whole composition should be retried.
func (s *Session) Commit(ctx context.Context) error {
	if s.done {
		return aggregate.ErrSessionClosed
	}

	s.done = true

	return mapConcurrencyError(s.tx.Commit(ctx))
}

// Rollback discards all of the session's writes. Calling Rollback on an
// already-finished session is a no-op, so it is safe to defer.
func (s *Session) Rollback(ctx context.Context) error {
	if s.done {
		return nil
	}

	s.done = true

	return s.tx.Rollback(ctx)
}

// transaction hands the open transaction to a participating store operation.
func (s *Session) transaction() (adapters.DBTx, error) {
	if s == nil || s.tx == nil || s.done {
		return nil, aggregate.ErrSessionClosed
	}

	return s.tx, nil
}
