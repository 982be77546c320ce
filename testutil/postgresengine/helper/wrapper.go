package helper

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
	"github.com/quotedesk/eventsourced-aggregates-go/aggregate/postgresengine"
	"github.com/quotedesk/eventsourced-aggregates-go/testutil/postgresengine/config"
)

// Adapter type constants
const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"
)

// Wrapper bundles an aggregate store with raw database access for test
// arrangement and cleanup, independent of the adapter in use.
type Wrapper[S any] struct {
	store   *postgresengine.AggregateStore[S]
	exec    func(ctx context.Context, sqlQuery string) error
	closeFn func()
}

// Store returns the wrapped aggregate store.
func (w *Wrapper[S]) Store() *postgresengine.AggregateStore[S] {
	return w.store
}

// Close releases the underlying database connection(s).
func (w *Wrapper[S]) Close() {
	w.closeFn()
}

// Exec runs raw SQL against the underlying connection, failing the test on error.
func (w *Wrapper[S]) Exec(t testing.TB, sqlQuery string) {
	t.Helper()
	assert.NoError(t, w.exec(context.Background(), sqlQuery), "error executing raw SQL in test setup")
}

// CreateWrapperWithTestConfig creates a store for the given schema and reducer
// on the adapter selected by the ADAPTER_TYPE environment variable.
func CreateWrapperWithTestConfig[S any](
	t testing.TB,
	schema *aggregate.PayloadSchema,
	reducer aggregate.Reducer[S],
	options ...postgresengine.Option,
) *Wrapper[S] {

	t.Helper()

	adapterTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	switch adapterTypeFromEnv {
	case typePGXPool, "":
		connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
		assert.NoError(t, err, "error connecting to DB pool in test setup")

		store, err := postgresengine.NewAggregateStoreFromPGXPool(connPool, schema, reducer, options...)
		assert.NoError(t, err, "error creating aggregate store")

		return &Wrapper[S]{
			store: store,
			exec: func(ctx context.Context, sqlQuery string) error {
				_, execErr := connPool.Exec(ctx, sqlQuery)
				return execErr
			},
			closeFn: connPool.Close,
		}

	case typeSQLDB:
		db := config.PostgresSQLDBTestConfig()

		store, err := postgresengine.NewAggregateStoreFromSQLDB(db, schema, reducer, options...)
		assert.NoError(t, err, "error creating aggregate store")

		return &Wrapper[S]{
			store: store,
			exec: func(ctx context.Context, sqlQuery string) error {
				_, execErr := db.ExecContext(ctx, sqlQuery)
				return execErr
			},
			closeFn: func() {
				_ = db.Close() // makes no sense to handle this
			},
		}

	case typeSQLXDB:
		db := config.PostgresSQLXTestConfig()

		store, err := postgresengine.NewAggregateStoreFromSQLX(db, schema, reducer, options...)
		assert.NoError(t, err, "error creating aggregate store")

		return &Wrapper[S]{
			store: store,
			exec: func(ctx context.Context, sqlQuery string) error {
				_, execErr := db.ExecContext(ctx, sqlQuery)
				return execErr
			},
			closeFn: func() {
				_ = db.Close() // makes no sense to handle this
			},
		}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported adapter type from env: %s", adapterTypeFromEnv))
	}
}

// TryCreateStoreWithOptions creates a store with the given options and returns
// the error, for testing option validation.
func TryCreateStoreWithOptions[S any](
	t testing.TB,
	schema *aggregate.PayloadSchema,
	reducer aggregate.Reducer[S],
	options ...postgresengine.Option,
) error {

	t.Helper()

	connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
	assert.NoError(t, err, "error connecting to DB pool in test setup")
	defer connPool.Close()

	_, err = postgresengine.NewAggregateStoreFromPGXPool(connPool, schema, reducer, options...)

	return err
}
