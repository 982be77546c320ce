// Package config provides Postgres connection configurations for the
// integration tests, one per supported database adapter.
package config
