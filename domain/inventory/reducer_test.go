package inventory_test

import (
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
	"github.com/quotedesk/eventsourced-aggregates-go/domain/inventory"
)

var fakeClock = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func buildEvent(t *testing.T, sequence aggregate.SequenceNumberUint, principalID string, payload any) aggregate.EventDocument {
	t.Helper()

	payloadJSON, err := jsoniter.ConfigFastest.Marshal(payload)
	assert.NoError(t, err, "error in arranging test data")

	event, err := aggregate.BuildEventDocument(
		"event-1", "INV-TEST", sequence, fakeClock.Add(time.Duration(sequence)*time.Minute), principalID, payloadJSON)
	assert.NoError(t, err, "error in arranging test data")

	return event
}

func givenCreatedState(t *testing.T) *inventory.State {
	t.Helper()

	quantity := int64(10)
	state, err := inventory.Reduce(nil, buildEvent(t, 1, "user-1", inventory.CreateInventoryPayload{
		Type:           inventory.CreateInventoryEventType,
		TenantID:       "tenant-1",
		SKU:            "SKU-001",
		Name:           "Widget",
		QuantityOnHand: &quantity,
	}))
	assert.NoError(t, err, "error in arranging test data")

	return state
}

func Test_Reduce_CreateInventory(t *testing.T) {
	// act
	state := givenCreatedState(t)

	// assert
	assert.Equal(t, "INV-TEST", state.ID)
	assert.Equal(t, "tenant-1", state.TenantID)
	assert.Equal(t, "SKU-001", state.SKU)
	assert.Equal(t, "Widget", state.Name)
	assert.Empty(t, state.Description, "unsupplied optional fields default to zero values")
	assert.Equal(t, int64(10), state.QuantityOnHand)
	assert.Equal(t, "user-1", state.CreatedBy)
	assert.Equal(t, "user-1", state.UpdatedBy)
	assert.Equal(t, state.CreatedAt, state.UpdatedAt)
}

func Test_Reduce_InventoryReceived(t *testing.T) {
	// arrange
	state := givenCreatedState(t)

	// act
	next, err := inventory.Reduce(state, buildEvent(t, 2, "user-2", inventory.InventoryReceivedPayload{
		Type:     inventory.InventoryReceivedEventType,
		Quantity: 5,
	}))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, int64(15), next.QuantityOnHand)
	assert.Equal(t, "user-2", next.UpdatedBy)
	assert.Equal(t, "user-1", next.CreatedBy, "creation stamps must not change")
	assert.True(t, next.UpdatedAt.After(next.CreatedAt))
}

func Test_Reduce_InventoryReceived_RejectsNegativeResult(t *testing.T) {
	// arrange
	state := givenCreatedState(t)

	// act
	next, err := inventory.Reduce(state, buildEvent(t, 2, "user-2", inventory.InventoryReceivedPayload{
		Type:     inventory.InventoryReceivedEventType,
		Quantity: -11,
	}))

	// assert
	assert.ErrorIs(t, err, inventory.ErrQuantityWouldGoNegative)
	assert.Nil(t, next)
	assert.Equal(t, int64(10), state.QuantityOnHand, "the prior state must be untouched")
}

func Test_Reduce_UpdateInventory_MergesPartialFields(t *testing.T) {
	// arrange
	state := givenCreatedState(t)
	newName := "Premium Widget"

	// act
	next, err := inventory.Reduce(state, buildEvent(t, 2, "user-2", inventory.UpdateInventoryPayload{
		Type: inventory.UpdateInventoryEventType,
		Name: &newName,
	}))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "Premium Widget", next.Name)
	assert.Equal(t, "SKU-001", next.SKU, "unspecified fields must keep their current values")
	assert.Equal(t, "user-2", next.UpdatedBy)
}

func Test_Reduce_UpdateInventorySerialisedID(t *testing.T) {
	// arrange
	state := givenCreatedState(t)

	// act
	next, err := inventory.Reduce(state, buildEvent(t, 2, "user-2", inventory.UpdateInventorySerialisedIDPayload{
		Type:         inventory.UpdateInventorySerialisedIDEventType,
		SerialisedID: "SER-42",
	}))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "SER-42", next.SerialisedID)
}

func Test_Reduce_DeleteInventory(t *testing.T) {
	// arrange
	state := givenCreatedState(t)

	// act
	next, err := inventory.Reduce(state, buildEvent(t, 2, "user-2", inventory.DeleteInventoryPayload{
		Type: inventory.DeleteInventoryEventType,
	}))

	// assert
	assert.NoError(t, err)
	assert.Nil(t, next)
}

func Test_Reduce_NonCreationEvent_OnNilState(t *testing.T) {
	// act
	_, err := inventory.Reduce(nil, buildEvent(t, 1, "user-1", inventory.InventoryReceivedPayload{
		Type:     inventory.InventoryReceivedEventType,
		Quantity: 5,
	}))

	// assert
	assert.ErrorIs(t, err, aggregate.ErrNotInitialised)
}

func Test_Reduce_UnknownEventType_PassesStateThrough(t *testing.T) {
	// arrange
	state := givenCreatedState(t)

	// act
	next, err := inventory.Reduce(state, buildEvent(t, 2, "user-2", map[string]string{"type": "SOMETHING_ELSE"}))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, state, next)
}

func Test_Schema_RejectsUnknownDiscriminant(t *testing.T) {
	err := inventory.Schema().Validate([]byte(`{"type": "INVENTORY_EXPLODED"}`))

	assert.ErrorIs(t, err, aggregate.ErrValidationFailed)
}

func Test_Schema_AcceptsAllEventVariants(t *testing.T) {
	payloads := []string{
		`{"type": "CREATE_INVENTORY", "tenantId": "t-1", "sku": "SKU-001", "name": "Widget"}`,
		`{"type": "INVENTORY_RECEIVED", "quantity": -3}`,
		`{"type": "UPDATE_INVENTORY", "name": "Premium Widget"}`,
		`{"type": "UPDATE_INVENTORY_SERIALISED_ID", "serialisedId": "SER-42"}`,
		`{"type": "DELETE_INVENTORY"}`,
	}

	for _, payload := range payloads {
		assert.NoError(t, inventory.Schema().Validate([]byte(payload)), payload)
	}
}
