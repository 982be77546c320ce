package aggregate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
)

func Test_Retry_SucceedsAfterConflicts(t *testing.T) {
	// arrange
	attempts := 0

	fn := func(_ context.Context) error {
		attempts++
		if attempts < 3 {
			return aggregate.ErrConcurrencyConflict
		}

		return nil
	}

	// act
	err := aggregate.RetryWithExponentialBackoff(
		context.Background(), fn,
		aggregate.WithBaseDelay(time.Millisecond))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func Test_Retry_DoesNotRetryPermanentErrors(t *testing.T) {
	// arrange
	permanentErr := errors.New("not transient")
	attempts := 0

	fn := func(_ context.Context) error {
		attempts++
		return permanentErr
	}

	// act
	err := aggregate.RetryWithExponentialBackoff(context.Background(), fn)

	// assert
	assert.ErrorIs(t, err, permanentErr)
	assert.Equal(t, 1, attempts)
}

func Test_Retry_GivesUpAfterMaxAttempts(t *testing.T) {
	// arrange
	attempts := 0

	fn := func(_ context.Context) error {
		attempts++
		return aggregate.ErrConcurrencyConflict
	}

	// act
	err := aggregate.RetryWithExponentialBackoff(
		context.Background(), fn,
		aggregate.WithMaxAttempts(4),
		aggregate.WithBaseDelay(time.Millisecond))

	// assert
	assert.ErrorIs(t, err, aggregate.ErrConcurrencyConflict)
	assert.Equal(t, 4, attempts)
}

func Test_Retry_RespectsContextCancellation(t *testing.T) {
	// arrange
	ctx, cancel := context.WithCancel(context.Background())

	fn := func(_ context.Context) error {
		cancel()
		return aggregate.ErrConcurrencyConflict
	}

	// act
	err := aggregate.RetryWithExponentialBackoff(ctx, fn,
		aggregate.WithBaseDelay(time.Second))

	// assert
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_Retry_RejectsInvalidOptions(t *testing.T) {
	noop := func(_ context.Context) error { return nil }

	assert.ErrorIs(t,
		aggregate.RetryWithExponentialBackoff(context.Background(), noop, aggregate.WithMaxAttempts(0)),
		aggregate.ErrInvalidMaxAttempts)
	assert.ErrorIs(t,
		aggregate.RetryWithExponentialBackoff(context.Background(), noop, aggregate.WithBaseDelay(-time.Second)),
		aggregate.ErrNegativeBaseDelay)
	assert.ErrorIs(t,
		aggregate.RetryWithExponentialBackoff(context.Background(), noop, aggregate.WithJitterFactor(1.5)),
		aggregate.ErrInvalidJitterFactor)
}
