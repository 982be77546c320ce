package reservation_test

import (
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
	"github.com/quotedesk/eventsourced-aggregates-go/domain/reservation"
)

var fakeClock = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func buildEvent(t *testing.T, sequence aggregate.SequenceNumberUint, principalID string, payload any) aggregate.EventDocument {
	t.Helper()

	payloadJSON, err := jsoniter.ConfigFastest.Marshal(payload)
	assert.NoError(t, err, "error in arranging test data")

	event, err := aggregate.BuildEventDocument(
		"event-1", "RSV-TEST", sequence, fakeClock.Add(time.Duration(sequence)*time.Minute), principalID, payloadJSON)
	assert.NoError(t, err, "error in arranging test data")

	return event
}

func givenCreatedState(t *testing.T) *reservation.State {
	t.Helper()

	quoteID := "QTE-PARENT"
	state, err := reservation.Reduce(nil, buildEvent(t, 1, "user-1", reservation.CreateReservationPayload{
		Type:        reservation.CreateReservationEventType,
		TenantID:    "tenant-1",
		InventoryID: "INV-ITEM",
		QuoteID:     &quoteID,
		Quantity:    4,
		StartsAt:    fakeClock.AddDate(0, 0, 7),
		EndsAt:      fakeClock.AddDate(0, 0, 14),
	}))
	assert.NoError(t, err, "error in arranging test data")

	return state
}

func Test_Reduce_CreateReservation(t *testing.T) {
	// act
	state := givenCreatedState(t)

	// assert
	assert.Equal(t, "RSV-TEST", state.ID)
	assert.Equal(t, "tenant-1", state.TenantID)
	assert.Equal(t, "INV-ITEM", state.InventoryID)
	assert.Equal(t, "QTE-PARENT", state.QuoteID)
	assert.Equal(t, int64(4), state.Quantity)
	assert.True(t, state.StartsAt.Before(state.EndsAt))
	assert.Equal(t, "user-1", state.CreatedBy)
}

func Test_Reduce_UpdateReservation_MergesPartialFields(t *testing.T) {
	// arrange
	state := givenCreatedState(t)
	quantity := int64(2)
	endsAt := fakeClock.AddDate(0, 0, 21)

	// act
	next, err := reservation.Reduce(state, buildEvent(t, 2, "user-2", reservation.UpdateReservationPayload{
		Type:     reservation.UpdateReservationEventType,
		Quantity: &quantity,
		EndsAt:   &endsAt,
	}))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, int64(2), next.Quantity)
	assert.True(t, next.EndsAt.Equal(endsAt))
	assert.True(t, next.StartsAt.Equal(state.StartsAt), "unspecified fields must keep their current values")
	assert.Equal(t, "INV-ITEM", next.InventoryID)
	assert.Equal(t, "user-2", next.UpdatedBy)
}

func Test_Reduce_DeleteReservation(t *testing.T) {
	// arrange
	state := givenCreatedState(t)

	// act
	next, err := reservation.Reduce(state, buildEvent(t, 2, "user-2", reservation.DeleteReservationPayload{
		Type: reservation.DeleteReservationEventType,
	}))

	// assert
	assert.NoError(t, err)
	assert.Nil(t, next)
}

func Test_Reduce_NonCreationEvent_OnNilState(t *testing.T) {
	// act
	_, err := reservation.Reduce(nil, buildEvent(t, 1, "user-1", reservation.UpdateReservationPayload{
		Type: reservation.UpdateReservationEventType,
	}))

	// assert
	assert.ErrorIs(t, err, aggregate.ErrNotInitialised)
}

func Test_Schema_RejectsInvalidPayloads(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
	}{
		{name: "zero quantity", payload: `{"type": "CREATE_RESERVATION", "tenantId": "t-1", "inventoryId": "i-1", "quantity": 0, "startsAt": "2024-03-08T09:00:00Z", "endsAt": "2024-03-15T09:00:00Z"}`},
		{name: "missing date range", payload: `{"type": "CREATE_RESERVATION", "tenantId": "t-1", "inventoryId": "i-1", "quantity": 1}`},
		{name: "empty inventory id", payload: `{"type": "CREATE_RESERVATION", "tenantId": "t-1", "inventoryId": "", "quantity": 1, "startsAt": "2024-03-08T09:00:00Z", "endsAt": "2024-03-15T09:00:00Z"}`},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.ErrorIs(t, reservation.Schema().Validate([]byte(testCase.payload)), aggregate.ErrValidationFailed)
		})
	}
}
