package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
)

const (
	logMsgBeginTxFailed          = "failed to begin transaction"
	logMsgCommitTxFailed         = "failed to commit transaction"
	logMsgRollbackFailed         = "failed to roll back transaction"
	logMsgBuildSelectQueryFailed = "failed to build select query"
	logMsgBuildInsertQueryFailed = "failed to build insert query"
	logMsgBuildUpsertQueryFailed = "failed to build state upsert query"
	logMsgDBQueryFailed          = "database query execution failed"
	logMsgDBExecFailed           = "database execution failed"
	logMsgCloseRowsFailed        = "failed to close database rows"
	logMsgScanRowFailed          = "failed to scan database row"
	logMsgBuildEventDocFailed    = "failed to build event document from database row"
	logMsgRowsAffectedFailed     = "failed to get rows affected count"
	logMsgConcurrencyConflict    = "concurrency conflict detected"
	logMsgEventApplied           = "event applied"
	logMsgSQLExecuted            = "executed sql for: "
	logMsgOperation              = "aggregate store operation: "

	logAttrError            = "error"
	logAttrQuery            = "query"
	logAttrEventType        = "event_type"
	logAttrAggregateID      = "aggregate_id"
	logAttrSequence         = "sequence_number"
	logAttrExpectedSequence = "expected_sequence"
	logAttrRowsAffected     = "rows_affected"
	logAttrDurationMS       = "duration_ms"
	logAttrEventCount       = "event_count"

	logActionQueryEvents  = "query events"
	logActionQueryState   = "query state"
	logActionAppend       = "append"
	logActionPersistState = "persist state"

	operationApply = "apply_event"

	metricOperationDuration    = "aggregatestore_operation_duration_seconds"
	metricConcurrencyConflicts = "aggregatestore_concurrency_conflicts_total"
	metricValidationFailures   = "aggregatestore_validation_failures_total"

	spanNameApply = "aggregatestore.apply_event"

	spanAttrOperation   = "operation"
	spanAttrAggregateID = "aggregate_id"
	spanAttrSequence    = "sequence_number"
	spanAttrErrorType   = "error_type"

	statusSuccess = "success"
	statusError   = "error"
)

// observabilityConfig bundles the optional logging, metrics, and tracing hooks.
// Every method is nil-safe so an unconfigured store stays silent.
type observabilityConfig struct {
	logger           aggregate.Logger
	contextualLogger aggregate.ContextualLogger
	metricsCollector aggregate.MetricsCollector
	tracingCollector aggregate.TracingCollector
}

// logQueryWithDuration logs SQL queries with execution time at debug level if a logger is configured.
func (o observabilityConfig) logQueryWithDuration(
	ctx context.Context,
	sqlQuery string,
	action string,
	duration time.Duration,
) {

	switch {
	case o.contextualLogger != nil:
		o.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
	case o.logger != nil:
		o.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (o observabilityConfig) logOperation(ctx context.Context, action string, args ...any) {
	switch {
	case o.contextualLogger != nil:
		o.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	case o.logger != nil:
		o.logger.Info(logMsgOperation+action, args...)
	}
}

// logWarn logs non-critical issues at warn level if a logger is configured.
func (o observabilityConfig) logWarn(ctx context.Context, msg string, args ...any) {
	switch {
	case o.contextualLogger != nil:
		o.contextualLogger.WarnContext(ctx, msg, args...)
	case o.logger != nil:
		o.logger.Warn(msg, args...)
	}
}

// logError logs error information at the error level if a logger is configured.
func (o observabilityConfig) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	switch {
	case o.contextualLogger != nil:
		o.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	case o.logger != nil:
		o.logger.Error(msg, allArgs...)
	}
}

// recordApplied logs and measures a successfully applied event.
func (o observabilityConfig) recordApplied(
	ctx context.Context,
	event aggregate.EventDocument,
	eventCount int,
	duration time.Duration,
) {

	o.logOperation(ctx, logMsgEventApplied,
		logAttrAggregateID, event.AggregateID,
		logAttrEventType, event.PayloadType(),
		logAttrSequence, event.SequenceNumber,
		logAttrEventCount, eventCount,
		logAttrDurationMS, toMilliseconds(duration),
	)

	o.recordDuration(ctx, metricOperationDuration, duration, map[string]string{
		spanAttrOperation: operationApply,
		"status":          statusSuccess,
	})
}

// recordConflictIfAny counts a concurrency conflict if the error is one.
func (o observabilityConfig) recordConflictIfAny(ctx context.Context, operation string, err error) {
	if err == nil || !errors.Is(err, aggregate.ErrConcurrencyConflict) {
		return
	}

	o.incrementCounter(ctx, metricConcurrencyConflicts, map[string]string{
		spanAttrOperation: operation,
		"conflict_type":   "concurrency",
	})
}

// recordValidationFailure counts a payload schema validation failure.
func (o observabilityConfig) recordValidationFailure(operation string) {
	if o.metricsCollector == nil {
		return
	}

	o.metricsCollector.IncrementCounter(metricValidationFailures, map[string]string{
		spanAttrOperation: operation,
	})
}

func (o observabilityConfig) recordDuration(
	ctx context.Context,
	metric string,
	duration time.Duration,
	labels map[string]string,
) {

	if o.metricsCollector == nil {
		return
	}

	if contextual, ok := o.metricsCollector.(aggregate.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	o.metricsCollector.RecordDuration(metric, duration, labels)
}

func (o observabilityConfig) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if o.metricsCollector == nil {
		return
	}

	if contextual, ok := o.metricsCollector.(aggregate.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	o.metricsCollector.IncrementCounter(metric, labels)
}

// startApplySpan starts a tracing span for the apply cycle if tracing is configured.
func (o observabilityConfig) startApplySpan(ctx context.Context, aggregateID string) (context.Context, aggregate.SpanContext) {
	if o.tracingCollector == nil {
		return ctx, nil
	}

	return o.tracingCollector.StartSpan(ctx, spanNameApply, map[string]string{
		spanAttrOperation:   operationApply,
		spanAttrAggregateID: aggregateID,
	})
}

// finishSpanSuccess finishes the apply span for a successful operation.
func (o observabilityConfig) finishSpanSuccess(span aggregate.SpanContext, sequenceNumber aggregate.SequenceNumberUint) {
	if o.tracingCollector == nil || span == nil {
		return
	}

	span.SetStatus(statusSuccess)
	span.AddAttribute(spanAttrSequence, fmt.Sprintf("%d", sequenceNumber))

	o.tracingCollector.FinishSpan(span, statusSuccess, map[string]string{
		spanAttrSequence: fmt.Sprintf("%d", sequenceNumber),
	})
}

// finishSpanError finishes the apply span with error details.
func (o observabilityConfig) finishSpanError(span aggregate.SpanContext, err error) {
	if o.tracingCollector == nil || span == nil {
		return
	}

	errorType := errorTypeForSpan(err)

	span.SetStatus(statusError)
	span.AddAttribute(spanAttrErrorType, errorType)

	o.tracingCollector.FinishSpan(span, statusError, map[string]string{
		spanAttrErrorType: errorType,
	})
}

func errorTypeForSpan(err error) string {
	switch {
	case errors.Is(err, aggregate.ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, aggregate.ErrValidationFailed):
		return "validation_failed"
	case errors.Is(err, aggregate.ErrNotInitialised):
		return "not_initialised"
	default:
		return "other"
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
