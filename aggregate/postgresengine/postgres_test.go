package postgresengine_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
	"github.com/quotedesk/eventsourced-aggregates-go/testutil/counter"
	"github.com/quotedesk/eventsourced-aggregates-go/testutil/postgresengine/helper"
)

func Test_ApplyEvent_RoundTrip(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper := helper.CreateWrapperWithTestConfig(t, counter.Schema(), counter.Reduce)
	defer wrapper.Close()
	helper.CreateTables(t, wrapper)
	store := wrapper.Store()

	// arrange
	counterID := helper.GivenUniqueID(t)

	// act
	_, initErr := store.ApplyEvent(ctxWithTimeout, counterID, counter.InitialisedPayloadJSON(0), aggregate.SystemPrincipal())
	_, incErr := store.ApplyEvent(ctxWithTimeout, counterID, counter.IncrementedPayloadJSON(5), aggregate.SystemPrincipal())
	applied, decErr := store.ApplyEvent(ctxWithTimeout, counterID, counter.DecrementedPayloadJSON(2), aggregate.SystemPrincipal())

	// assert
	assert.NoError(t, initErr, "error applying the creation event")
	assert.NoError(t, incErr, "error applying the increment event")
	assert.NoError(t, decErr, "error applying the decrement event")
	assert.Equal(t, int64(3), applied.After.Value)

	events, queryErr := store.GetEventDocuments(ctxWithTimeout, counterID)
	assert.NoError(t, queryErr, "error querying the event log")
	assert.Len(t, events, 3)

	for idx, event := range events {
		assert.Equal(t, aggregate.SequenceNumberUint(idx+1), event.SequenceNumber)
	}

	document, getErr := store.GetStateDocument(ctxWithTimeout, counterID)
	assert.NoError(t, getErr, "error reading the state document")
	assert.NotNil(t, document)
	assert.JSONEq(t, `{"value": 3}`, string(document.StateJSON))
}

func Test_ApplyEvent_FoldsEventsInStrictOrder(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper := helper.CreateWrapperWithTestConfig(t, counter.Schema(), counter.Reduce)
	defer wrapper.Close()
	helper.CreateTables(t, wrapper)
	store := wrapper.Store()

	// arrange
	counterID := helper.GivenUniqueID(t)
	helper.GivenCounterInitialised(t, ctxWithTimeout, store, counterID, 0)
	helper.GivenCounterIncremented(t, ctxWithTimeout, store, counterID, 5)

	// act
	_, mulErr := store.ApplyEvent(ctxWithTimeout, counterID, counter.MultipliedPayloadJSON(5), aggregate.SystemPrincipal())
	applied, incErr := store.ApplyEvent(ctxWithTimeout, counterID, counter.IncrementedPayloadJSON(5), aggregate.SystemPrincipal())

	// assert
	assert.NoError(t, mulErr, "error applying the multiply event")
	assert.NoError(t, incErr, "error applying the increment event")
	assert.Equal(t, int64(30), applied.After.Value, "expected (0+5)*5+5, a left-to-right fold")
}

func Test_ApplyEvent_With_InvalidPayload_AppendsNothing(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper := helper.CreateWrapperWithTestConfig(t, counter.Schema(), counter.Reduce)
	defer wrapper.Close()
	helper.CreateTables(t, wrapper)
	store := wrapper.Store()

	// arrange
	counterID := helper.GivenUniqueID(t)
	helper.GivenCounterInitialised(t, ctxWithTimeout, store, counterID, 0)

	// act: increment payload missing the required amount field
	_, applyErr := store.ApplyEvent(
		ctxWithTimeout,
		counterID,
		[]byte(`{"type": "COUNTER_INCREMENTED"}`),
		aggregate.SystemPrincipal(),
	)

	// assert
	assert.Error(t, applyErr)
	assert.ErrorIs(t, applyErr, aggregate.ErrValidationFailed)

	var validationErr *aggregate.ValidationError
	assert.ErrorAs(t, applyErr, &validationErr)

	events, queryErr := store.GetEventDocuments(ctxWithTimeout, counterID)
	assert.NoError(t, queryErr, "error querying the event log")
	assert.Len(t, events, 1, "the rejected event must not have been appended")
}

func Test_ApplyEvent_With_NonCreationEvent_On_UnknownAggregate(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper := helper.CreateWrapperWithTestConfig(t, counter.Schema(), counter.Reduce)
	defer wrapper.Close()
	helper.CreateTables(t, wrapper)
	store := wrapper.Store()

	// arrange
	counterID := helper.GivenUniqueID(t)

	// act
	_, applyErr := store.ApplyEvent(ctxWithTimeout, counterID, counter.IncrementedPayloadJSON(1), aggregate.SystemPrincipal())

	// assert
	assert.Error(t, applyErr)
	assert.ErrorIs(t, applyErr, aggregate.ErrNotInitialised)

	events, queryErr := store.GetEventDocuments(ctxWithTimeout, counterID)
	assert.NoError(t, queryErr, "error querying the event log")
	assert.Empty(t, events, "zero events must exist for the rejected aggregate")

	document, getErr := store.GetStateDocument(ctxWithTimeout, counterID)
	assert.NoError(t, getErr, "error reading the state document")
	assert.Nil(t, document)
}

func Test_ApplyEvent_DeletionRemovesProjection_ButKeepsTheLog(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper := helper.CreateWrapperWithTestConfig(t, counter.Schema(), counter.Reduce)
	defer wrapper.Close()
	helper.CreateTables(t, wrapper)
	store := wrapper.Store()

	// arrange
	counterID := helper.GivenUniqueID(t)
	helper.GivenCounterInitialised(t, ctxWithTimeout, store, counterID, 7)

	// act
	applied, destroyErr := store.ApplyEvent(ctxWithTimeout, counterID, counter.DestroyedPayloadJSON(), aggregate.SystemPrincipal())

	// assert
	assert.NoError(t, destroyErr, "error applying the deletion event")
	assert.NotNil(t, applied.Before)
	assert.Nil(t, applied.After)

	document, getErr := store.GetStateDocument(ctxWithTimeout, counterID)
	assert.NoError(t, getErr, "error reading the state document")
	assert.Nil(t, document, "the projection must be removed")

	events, queryErr := store.GetEventDocuments(ctxWithTimeout, counterID)
	assert.NoError(t, queryErr, "error querying the event log")
	assert.Len(t, events, 2, "the log must be retained including the deletion event")

	// act: resurrection attempt
	_, resurrectErr := store.ApplyEvent(ctxWithTimeout, counterID, counter.IncrementedPayloadJSON(1), aggregate.SystemPrincipal())

	// assert
	assert.ErrorIs(t, resurrectErr, aggregate.ErrNotInitialised)

	events, queryErr = store.GetEventDocuments(ctxWithTimeout, counterID)
	assert.NoError(t, queryErr, "error querying the event log")
	assert.Len(t, events, 2, "the resurrection attempt must not have been appended")
}

func Test_ApplyEventInSession_IsInvisible_UntilCommit(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper := helper.CreateWrapperWithTestConfig(t, counter.Schema(), counter.Reduce)
	defer wrapper.Close()
	helper.CreateTables(t, wrapper)
	store := wrapper.Store()

	// arrange
	firstID := helper.GivenUniqueID(t)
	secondID := helper.GivenUniqueID(t)

	session, beginErr := store.BeginSession(ctxWithTimeout)
	assert.NoError(t, beginErr, "error beginning the session")
	defer func() { _ = session.Rollback(ctxWithTimeout) }()

	// act
	_, firstErr := store.ApplyEventInSession(
		ctxWithTimeout, session, firstID, counter.InitialisedPayloadJSON(1), aggregate.SystemPrincipal())
	_, secondErr := store.ApplyEventInSession(
		ctxWithTimeout, session, secondID, counter.InitialisedPayloadJSON(2), aggregate.SystemPrincipal())

	// assert: a separate reader sees neither aggregate before commit
	assert.NoError(t, firstErr, "error applying the first event in session")
	assert.NoError(t, secondErr, "error applying the second event in session")

	outsideDocument, outsideErr := store.GetStateDocument(ctxWithTimeout, firstID)
	assert.NoError(t, outsideErr, "error reading the state document outside the session")
	assert.Nil(t, outsideDocument, "uncommitted state must be invisible to a separate reader")

	outsideEvents, outsideQueryErr := store.GetEventDocuments(ctxWithTimeout, secondID)
	assert.NoError(t, outsideQueryErr, "error querying the event log outside the session")
	assert.Empty(t, outsideEvents, "uncommitted events must be invisible to a separate reader")

	// while the session itself observes its own writes
	insideDocument, insideErr := store.GetStateDocumentInSession(ctxWithTimeout, session, firstID)
	assert.NoError(t, insideErr, "error reading the state document inside the session")
	assert.NotNil(t, insideDocument)

	// act
	commitErr := session.Commit(ctxWithTimeout)

	// assert: both aggregates became visible atomically
	assert.NoError(t, commitErr, "error committing the session")

	firstDocument, firstGetErr := store.GetStateDocument(ctxWithTimeout, firstID)
	assert.NoError(t, firstGetErr, "error reading the first state document")
	assert.NotNil(t, firstDocument)

	secondDocument, secondGetErr := store.GetStateDocument(ctxWithTimeout, secondID)
	assert.NoError(t, secondGetErr, "error reading the second state document")
	assert.NotNil(t, secondDocument)
}

func Test_ApplyEventInSession_RollbackDiscardsEverything(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper := helper.CreateWrapperWithTestConfig(t, counter.Schema(), counter.Reduce)
	defer wrapper.Close()
	helper.CreateTables(t, wrapper)
	store := wrapper.Store()

	// arrange
	counterID := helper.GivenUniqueID(t)

	session, beginErr := store.BeginSession(ctxWithTimeout)
	assert.NoError(t, beginErr, "error beginning the session")

	_, applyErr := store.ApplyEventInSession(
		ctxWithTimeout, session, counterID, counter.InitialisedPayloadJSON(1), aggregate.SystemPrincipal())
	assert.NoError(t, applyErr, "error applying the event in session")

	// act
	rollbackErr := session.Rollback(ctxWithTimeout)

	// assert
	assert.NoError(t, rollbackErr, "error rolling back the session")

	events, queryErr := store.GetEventDocuments(ctxWithTimeout, counterID)
	assert.NoError(t, queryErr, "error querying the event log")
	assert.Empty(t, events, "rolled back events must not persist")

	document, getErr := store.GetStateDocument(ctxWithTimeout, counterID)
	assert.NoError(t, getErr, "error reading the state document")
	assert.Nil(t, document, "rolled back state must not persist")
}

func Test_ApplyEvent_Concurrent_OnlyInvariantPreservingCallsCommit(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	wrapper := helper.CreateWrapperWithTestConfig(t, counter.Schema(), counter.Reduce)
	defer wrapper.Close()
	helper.CreateTables(t, wrapper)
	store := wrapper.Store()

	const initialValue = int64(3)
	const numGoroutines = 10

	// arrange
	counterID := helper.GivenUniqueID(t)
	helper.GivenCounterInitialised(t, ctxWithTimeout, store, counterID, initialValue)

	var successCount, invariantAbortCount atomic.Int64
	var wg sync.WaitGroup

	// act
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			retryErr := aggregate.RetryWithExponentialBackoff(
				ctxWithTimeout,
				func(ctx context.Context) error {
					_, err := store.ApplyEvent(ctx, counterID, counter.DecrementedPayloadJSON(1), aggregate.SystemPrincipal())
					return err
				},
				aggregate.WithMaxAttempts(30),
				aggregate.WithBaseDelay(5*time.Millisecond),
			)

			switch {
			case retryErr == nil:
				successCount.Add(1)
			case errors.Is(retryErr, counter.ErrValueWouldGoNegative):
				invariantAbortCount.Add(1)
			default:
				assert.Fail(t, "unexpected error", retryErr.Error())
			}
		}()
	}

	wg.Wait()

	// assert: exactly initialValue decrements committed, the rest aborted
	assert.Equal(t, initialValue, successCount.Load())
	assert.Equal(t, int64(numGoroutines)-initialValue, invariantAbortCount.Load())

	document, getErr := store.GetStateDocument(ctxWithTimeout, counterID)
	assert.NoError(t, getErr, "error reading the state document")
	assert.NotNil(t, document)
	assert.JSONEq(t, `{"value": 0}`, string(document.StateJSON))

	events, queryErr := store.GetEventDocuments(ctxWithTimeout, counterID)
	assert.NoError(t, queryErr, "error querying the event log")
	assert.Len(t, events, int(initialValue)+1, "only the committed calls may have appended events")

	for idx, event := range events {
		assert.Equal(t, aggregate.SequenceNumberUint(idx+1), event.SequenceNumber, "sequences must be gapless")
	}
}

func Test_Replay_ReproducesTheProjection(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper := helper.CreateWrapperWithTestConfig(t, counter.Schema(), counter.Reduce)
	defer wrapper.Close()
	helper.CreateTables(t, wrapper)
	store := wrapper.Store()

	// arrange
	counterID := helper.GivenUniqueID(t)
	helper.GivenCounterInitialised(t, ctxWithTimeout, store, counterID, 0)
	helper.GivenCounterIncremented(t, ctxWithTimeout, store, counterID, 5)
	helper.GivenCounterIncremented(t, ctxWithTimeout, store, counterID, 7)

	original, getErr := store.GetStateDocument(ctxWithTimeout, counterID)
	assert.NoError(t, getErr, "error reading the state document")
	assert.NotNil(t, original)

	// corrupt the projection behind the store's back
	wrapper.Exec(t, `UPDATE aggregate_state SET state = '{"value": -999}' WHERE aggregate_id = '`+counterID+`'`)

	// act
	replayErr := store.Replay(ctxWithTimeout, counterID)

	// assert
	assert.NoError(t, replayErr, "error replaying the aggregate")

	repaired, repairedErr := store.GetStateDocument(ctxWithTimeout, counterID)
	assert.NoError(t, repairedErr, "error reading the repaired state document")
	assert.NotNil(t, repaired)
	assert.JSONEq(t, string(original.StateJSON), string(repaired.StateJSON))
}

func Test_Replay_For_DeletedAggregate_KeepsProjectionAbsent(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper := helper.CreateWrapperWithTestConfig(t, counter.Schema(), counter.Reduce)
	defer wrapper.Close()
	helper.CreateTables(t, wrapper)
	store := wrapper.Store()

	// arrange
	counterID := helper.GivenUniqueID(t)
	helper.GivenCounterInitialised(t, ctxWithTimeout, store, counterID, 1)
	helper.GivenCounterDestroyed(t, ctxWithTimeout, store, counterID)

	// act
	replayErr := store.Replay(ctxWithTimeout, counterID)

	// assert
	assert.NoError(t, replayErr, "error replaying the aggregate")

	document, getErr := store.GetStateDocument(ctxWithTimeout, counterID)
	assert.NoError(t, getErr, "error reading the state document")
	assert.Nil(t, document)
}

func Test_QueryStateDocuments_PaginatesDeterministically(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper := helper.CreateWrapperWithTestConfig(t, counter.Schema(), counter.Reduce)
	defer wrapper.Close()
	helper.CreateTables(t, wrapper)
	helper.CleanUp(t, wrapper)
	store := wrapper.Store()

	// arrange
	for i := int64(0); i < 5; i++ {
		counterID := helper.GivenUniqueID(t)
		helper.GivenCounterInitialised(t, ctxWithTimeout, store, counterID, i)
	}

	// act
	firstPage, firstErr := store.QueryStateDocuments(ctxWithTimeout,
		aggregate.BuildStateFilter().MatchingAnyDocument().WithLimit(3).Finalize())
	secondPage, secondErr := store.QueryStateDocuments(ctxWithTimeout,
		aggregate.BuildStateFilter().MatchingAnyDocument().WithLimit(3).WithOffset(3).Finalize())

	// assert
	assert.NoError(t, firstErr, "error querying the first page")
	assert.NoError(t, secondErr, "error querying the second page")
	assert.Len(t, firstPage, 3)
	assert.Len(t, secondPage, 2)

	seen := make(map[string]bool)
	for _, document := range append(firstPage, secondPage...) {
		assert.False(t, seen[document.AggregateID], "pages must not overlap")
		seen[document.AggregateID] = true
	}
}
