// Package adapters provides database adapter implementations for the PostgreSQL aggregate store.
//
// This package implements the adapter pattern to support multiple PostgreSQL database libraries:
// pgx.Pool, sql.DB, and sqlx.DB. All adapters provide equivalent functionality through
// a common DBAdapter interface, including repeatable-read transactions for the
// load-reduce-append-persist cycle, allowing the aggregate store to work seamlessly
// with any supported database connection type.
package adapters
