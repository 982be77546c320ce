package aggregate_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
)

type calcState struct {
	Value int
}

func buildTestEvent(t *testing.T, payloadJSON string) aggregate.EventDocument {
	t.Helper()

	event, err := aggregate.BuildEventDocument(
		"event-1", "aggregate-1", 1, time.Unix(0, 0).UTC(), "", []byte(payloadJSON))
	assert.NoError(t, err, "error in arranging test data")

	return event
}

func Test_CombineReducers_FoldsLeftToRight(t *testing.T) {
	// arrange
	addFive := func(state *calcState, _ aggregate.EventDocument) (*calcState, error) {
		if state == nil {
			state = &calcState{}
		}

		return &calcState{Value: state.Value + 5}, nil
	}

	timesThree := func(state *calcState, _ aggregate.EventDocument) (*calcState, error) {
		return &calcState{Value: state.Value * 3}, nil
	}

	combined := aggregate.CombineReducers(addFive, timesThree)

	// act
	result, err := combined(nil, buildTestEvent(t, `{"type": "ANYTHING"}`))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 15, result.Value, "expected (0+5)*3, not 0+5*3")
}

func Test_CombineReducers_StopsOnFirstError(t *testing.T) {
	// arrange
	reducerErr := errors.New("boom")

	failing := func(_ *calcState, _ aggregate.EventDocument) (*calcState, error) {
		return nil, reducerErr
	}

	var secondCalled bool
	second := func(state *calcState, _ aggregate.EventDocument) (*calcState, error) {
		secondCalled = true
		return state, nil
	}

	combined := aggregate.CombineReducers(failing, second)

	// act
	_, err := combined(&calcState{Value: 1}, buildTestEvent(t, `{"type": "ANYTHING"}`))

	// assert
	assert.ErrorIs(t, err, reducerErr)
	assert.False(t, secondCalled, "the second reducer must not run after a failure")
}

func Test_Coalesce(t *testing.T) {
	existing := "existing"
	replacement := "replacement"

	assert.Equal(t, "existing", aggregate.Coalesce(nil, existing))
	assert.Equal(t, "replacement", aggregate.Coalesce(&replacement, existing))

	zero := int64(0)
	assert.Equal(t, int64(0), aggregate.Coalesce(&zero, int64(7)), "an explicit zero value must win over the existing one")
}
