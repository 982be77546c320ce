package reservation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quotedesk/eventsourced-aggregates-go/aggregate"
	"github.com/quotedesk/eventsourced-aggregates-go/aggregate/postgresengine"
	"github.com/quotedesk/eventsourced-aggregates-go/domain/inventory"
	"github.com/quotedesk/eventsourced-aggregates-go/domain/reservation"
	"github.com/quotedesk/eventsourced-aggregates-go/identifier"
	"github.com/quotedesk/eventsourced-aggregates-go/testutil/postgresengine/helper"
)

const (
	inventoryEventTable   = "inventory_events"
	inventoryStateTable   = "inventory_state"
	reservationEventTable = "reservation_events"
	reservationStateTable = "reservation_state"
)

type fixture struct {
	inventoryModel   inventory.Model
	reservationModel reservation.Model
	principal        aggregate.Principal
}

func setupFixture(t *testing.T) fixture {
	t.Helper()

	inventoryWrapper := helper.CreateWrapperWithTestConfig(
		t, inventory.Schema(), inventory.Reduce,
		postgresengine.WithEventTableName(inventoryEventTable),
		postgresengine.WithStateTableName(inventoryStateTable))
	t.Cleanup(inventoryWrapper.Close)

	reservationWrapper := helper.CreateWrapperWithTestConfig(
		t, reservation.Schema(), reservation.Reduce,
		postgresengine.WithEventTableName(reservationEventTable),
		postgresengine.WithStateTableName(reservationStateTable))
	t.Cleanup(reservationWrapper.Close)

	helper.CreateTablesWithNames(t, inventoryWrapper, inventoryEventTable, inventoryStateTable)
	helper.CreateTablesWithNames(t, reservationWrapper, reservationEventTable, reservationStateTable)
	helper.CleanUpWithNames(t, inventoryWrapper, inventoryEventTable, inventoryStateTable)
	helper.CleanUpWithNames(t, reservationWrapper, reservationEventTable, reservationStateTable)

	inventoryIDs, err := identifier.NewGenerator(inventory.IDPrefix, identifier.DefaultCodec())
	assert.NoError(t, err, "error in arranging test data")

	reservationIDs, err := identifier.NewGenerator(reservation.IDPrefix, identifier.DefaultCodec())
	assert.NoError(t, err, "error in arranging test data")

	inventoryModel := inventory.NewModel(inventoryWrapper.Store(), inventoryIDs)

	return fixture{
		inventoryModel:   inventoryModel,
		reservationModel: reservation.NewModel(reservationWrapper.Store(), reservationIDs, inventoryModel),
		principal:        aggregate.Principal{ID: "user-1"},
	}
}

func (f fixture) givenInventoryItem(t *testing.T, quantity int64) *inventory.State {
	t.Helper()

	item, err := f.inventoryModel.Create(t.Context(), "tenant-1", inventory.CreateInput{
		SKU:            "SKU-001",
		Name:           "Widget",
		QuantityOnHand: &quantity,
	}, f.principal)
	assert.NoError(t, err, "error in arranging test data")

	return item
}

func Test_Reserve_DecrementsInventoryAtomically(t *testing.T) {
	// setup
	f := setupFixture(t)
	ctx := t.Context()

	// arrange
	item := f.givenInventoryItem(t, 10)

	// act
	reserved, err := f.reservationModel.Reserve(ctx, "tenant-1", reservation.CreateInput{
		InventoryID: item.ID,
		Quantity:    4,
		StartsAt:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:      time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC),
	}, f.principal)

	// assert
	assert.NoError(t, err)
	assert.NotNil(t, reserved)
	assert.Equal(t, item.ID, reserved.InventoryID)
	assert.Equal(t, int64(4), reserved.Quantity)

	itemAfter, err := f.inventoryModel.Get(ctx, "tenant-1", item.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(6), itemAfter.QuantityOnHand)
}

func Test_Reserve_WithInsufficientQuantity_WritesNothing(t *testing.T) {
	// setup
	f := setupFixture(t)
	ctx := t.Context()

	// arrange
	item := f.givenInventoryItem(t, 3)

	// act
	reserved, err := f.reservationModel.Reserve(ctx, "tenant-1", reservation.CreateInput{
		InventoryID: item.ID,
		Quantity:    4,
		StartsAt:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:      time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC),
	}, f.principal)

	// assert
	assert.ErrorIs(t, err, inventory.ErrQuantityWouldGoNegative)
	assert.Nil(t, reserved)

	itemAfter, err := f.inventoryModel.Get(ctx, "tenant-1", item.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), itemAfter.QuantityOnHand, "the failed reservation must not change availability")

	reservations, err := f.reservationModel.ListForInventory(ctx, "tenant-1", item.ID, 10, 0)
	assert.NoError(t, err)
	assert.Empty(t, reservations, "the reservation must not exist either")
}

func Test_Release_ReturnsTheQuantityToInventory(t *testing.T) {
	// setup
	f := setupFixture(t)
	ctx := t.Context()

	// arrange
	item := f.givenInventoryItem(t, 10)

	reserved, err := f.reservationModel.Reserve(ctx, "tenant-1", reservation.CreateInput{
		InventoryID: item.ID,
		Quantity:    4,
		StartsAt:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:      time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC),
	}, f.principal)
	assert.NoError(t, err, "error in arranging test data")

	// act
	err = f.reservationModel.Release(ctx, "tenant-1", reserved.ID, f.principal)

	// assert
	assert.NoError(t, err)

	itemAfter, err := f.inventoryModel.Get(ctx, "tenant-1", item.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(10), itemAfter.QuantityOnHand)

	released, err := f.reservationModel.Get(ctx, "tenant-1", reserved.ID)
	assert.NoError(t, err)
	assert.Nil(t, released)
}

func Test_Release_ForForeignTenant_DoesNotLeakExistence(t *testing.T) {
	// setup
	f := setupFixture(t)
	ctx := t.Context()

	// arrange
	item := f.givenInventoryItem(t, 10)

	reserved, err := f.reservationModel.Reserve(ctx, "tenant-1", reservation.CreateInput{
		InventoryID: item.ID,
		Quantity:    4,
		StartsAt:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:      time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC),
	}, f.principal)
	assert.NoError(t, err, "error in arranging test data")

	// act + assert
	assert.ErrorIs(t,
		f.reservationModel.Release(ctx, "tenant-2", reserved.ID, f.principal),
		reservation.ErrNotFound)

	foreignGet, err := f.reservationModel.Get(ctx, "tenant-2", reserved.ID)
	assert.NoError(t, err)
	assert.Nil(t, foreignGet)
}

func Test_List_FiltersByDateRangeOverlap(t *testing.T) {
	// setup
	f := setupFixture(t)
	ctx := t.Context()

	// arrange
	item := f.givenInventoryItem(t, 100)

	day := func(d int) time.Time {
		return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
	}

	reserve := func(startsAt, endsAt time.Time) *reservation.State {
		reserved, err := f.reservationModel.Reserve(ctx, "tenant-1", reservation.CreateInput{
			InventoryID: item.ID,
			Quantity:    1,
			StartsAt:    startsAt,
			EndsAt:      endsAt,
		}, f.principal)
		assert.NoError(t, err, "error in arranging test data")

		return reserved
	}

	startsWithin := reserve(day(12), day(25))
	endsWithin := reserve(day(1), day(15))
	encloses := reserve(day(1), day(30))
	before := reserve(day(1), day(5))
	after := reserve(day(25), day(30))

	// act, the queried range is [10, 20]
	overlapping, err := f.reservationModel.List(ctx, "tenant-1", day(10), day(20), 10, 0)

	// assert
	assert.NoError(t, err)

	overlappingIDs := make([]string, 0, len(overlapping))
	for _, state := range overlapping {
		overlappingIDs = append(overlappingIDs, state.ID)
	}

	assert.ElementsMatch(t,
		[]string{startsWithin.ID, endsWithin.ID, encloses.ID},
		overlappingIDs)
	assert.NotContains(t, overlappingIDs, before.ID)
	assert.NotContains(t, overlappingIDs, after.ID)
}

func Test_ListForInventory_OnlyReturnsTheItemsReservations(t *testing.T) {
	// setup
	f := setupFixture(t)
	ctx := t.Context()

	// arrange
	firstItem := f.givenInventoryItem(t, 10)
	secondItem := f.givenInventoryItem(t, 10)

	reserved, err := f.reservationModel.Reserve(ctx, "tenant-1", reservation.CreateInput{
		InventoryID: firstItem.ID,
		Quantity:    1,
		StartsAt:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:      time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC),
	}, f.principal)
	assert.NoError(t, err, "error in arranging test data")

	// act
	firstItemReservations, err := f.reservationModel.ListForInventory(ctx, "tenant-1", firstItem.ID, 10, 0)
	assert.NoError(t, err)

	secondItemReservations, err := f.reservationModel.ListForInventory(ctx, "tenant-1", secondItem.ID, 10, 0)
	assert.NoError(t, err)

	// assert
	assert.Len(t, firstItemReservations, 1)
	assert.Equal(t, reserved.ID, firstItemReservations[0].ID)
	assert.Empty(t, secondItemReservations)
}
