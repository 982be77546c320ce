package postgresengine

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateUniqueViolation      = "23505"
)

var joinErr = errors.Join

// mapConcurrencyError translates driver-level write conflicts into
// aggregate.ErrConcurrencyConflict so callers see a single retryable error
// type. Serialization failures (40001) come from repeatable-read conflict
// detection; unique violations (23505) come from the (aggregate_id,
// sequence_number) index backstopping the guarded insert when two
// transactions raced past the guard.
func mapConcurrencyError(err error) error {
	if err == nil {
		return nil
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		if pgxErr.SQLState() == sqlStateSerializationFailure || pgxErr.SQLState() == sqlStateUniqueViolation {
			return joinErr(aggregate.ErrConcurrencyConflict, err)
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		if code == sqlStateSerializationFailure || code == sqlStateUniqueViolation {
			return joinErr(aggregate.ErrConcurrencyConflict, err)
		}
	}

	return err
}
