// Package helper provides test wrappers and arrange helpers for the Postgres
// aggregate store integration tests. The wrapper abstracts over the supported
// database adapters, selected with the ADAPTER_TYPE environment variable
// (pgx.pool, sql.db or sqlx.db; pgx.pool is the default).
package helper
