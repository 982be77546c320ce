package postgresengine

import (
	"time"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
)

// storeConfig collects the non-generic configuration applied by options.
type storeConfig struct {
	eventTableName string
	stateTableName string
	clock          func() time.Time
	observability  observabilityConfig
}

// Option defines a functional option for configuring an AggregateStore.
type Option func(*storeConfig) error

// WithEventTableName sets the append-only event log table for the store.
// Each aggregate type gets its own event table.
func WithEventTableName(tableName string) Option {
	return func(config *storeConfig) error {
		if tableName == "" {
			return aggregate.ErrEmptyEventTableName
		}

		config.eventTableName = tableName

		return nil
	}
}

// WithStateTableName sets the materialized state table for the store.
// Each aggregate type gets its own state table.
func WithStateTableName(tableName string) Option {
	return func(config *storeConfig) error {
		if tableName == "" {
			return aggregate.ErrEmptyStateTableName
		}

		config.stateTableName = tableName

		return nil
	}
}

// WithClock overrides the clock used to stamp event timestamps. Intended for
// tests that need deterministic occurred-at values.
func WithClock(clock func() time.Time) Option {
	return func(config *storeConfig) error {
		if clock != nil {
			config.clock = clock
		}

		return nil
	}
}

// WithLogger sets the logger for the store.
//
// Debug level: SQL queries with execution timing (development use)
// Info level: applied events, durations, concurrency conflicts (production-safe)
// Warn level: non-critical issues like rollback/cleanup failures
// Error level: critical failures that cause operation failures.
func WithLogger(logger aggregate.Logger) Option {
	return func(config *storeConfig) error {
		config.observability.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger with automatic trace
// correlation. When both loggers are configured, the contextual one wins.
func WithContextualLogger(logger aggregate.ContextualLogger) Option {
	return func(config *storeConfig) error {
		config.observability.contextualLogger = logger
		return nil
	}
}

// WithMetricsCollector sets the metrics collector for the store.
func WithMetricsCollector(collector aggregate.MetricsCollector) Option {
	return func(config *storeConfig) error {
		config.observability.metricsCollector = collector
		return nil
	}
}

// WithTracingCollector sets the tracing collector for the store.
func WithTracingCollector(collector aggregate.TracingCollector) Option {
	return func(config *storeConfig) error {
		config.observability.tracingCollector = collector
		return nil
	}
}
