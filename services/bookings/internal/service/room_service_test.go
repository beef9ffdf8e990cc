package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/hotel-frontdesk/pkg/apperr"
	"github.com/diagnosis/hotel-frontdesk/pkg/events"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/domain"
)

func price(v float64) *float64 { return &v }

func numbers(rooms []domain.Room) []string {
	out := make([]string, len(rooms))
	for i, rm := range rooms {
		out[i] = rm.Number
	}
	return out
}

func TestRoomService_CreateUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	rm, err := f.rooms.Create(ctx, 7, &domain.CreateRoomRequest{Number: " 101 ", Type: "double", Price: price(120)})
	require.NoError(t, err)
	assert.Equal(t, "101", rm.Number)
	assert.Equal(t, []string{events.RoomCreated}, f.events.subjects)

	_, err = f.rooms.Create(ctx, 7, &domain.CreateRoomRequest{Number: "101", Type: "single", Price: price(80)})
	requireAppErr(t, err, apperr.Conflict, domain.MsgRoomNumberTaken)

	_, err = f.rooms.Create(ctx, 7, &domain.CreateRoomRequest{Number: "102", Type: "single", Price: price(-1)})
	requireAppErr(t, err, apperr.Validation, domain.MsgPriceNegative)

	_, err = f.rooms.Create(ctx, 7, &domain.CreateRoomRequest{Number: "102", Type: "single"})
	requireAppErr(t, err, apperr.Validation, domain.MsgAllFieldsRequired)

	updated, err := f.rooms.Update(ctx, 7, rm.ID, &domain.UpdateRoomRequest{Price: price(150)})
	require.NoError(t, err)
	assert.Equal(t, 150.0, updated.Price)
	assert.Equal(t, domain.RoomAvailable, updated.Status)

	_, err = f.rooms.Update(ctx, 7, rm.ID, &domain.UpdateRoomRequest{})
	requireAppErr(t, err, apperr.Validation, domain.MsgNothingToUpdate)

	_, err = f.rooms.Update(ctx, 7, 4242, &domain.UpdateRoomRequest{Price: price(1)})
	requireAppErr(t, err, apperr.NotFound, domain.MsgRoomNotFound)
}

func TestRoomService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	past := f.store.addRoom("101")
	f.store.addBooking(past.ID, stayOf("2024-05-01", "2024-05-03"))
	upcoming := f.store.addRoom("102")
	f.store.addBooking(upcoming.ID, stayOf("2024-07-01", "2024-07-03"))

	require.NoError(t, f.rooms.Delete(ctx, 7, past.ID))
	_, err := f.rooms.Get(ctx, past.ID)
	requireAppErr(t, err, apperr.NotFound, domain.MsgRoomNotFound)

	err = f.rooms.Delete(ctx, 7, upcoming.ID)
	requireAppErr(t, err, apperr.Conflict, domain.MsgRoomHasBookings)

	err = f.rooms.Delete(ctx, 7, past.ID)
	requireAppErr(t, err, apperr.NotFound, domain.MsgRoomNotFound)

	assert.Equal(t, []string{events.RoomDeleted}, f.events.subjects)

	// the number is free again
	_, err = f.rooms.Create(ctx, 7, &domain.CreateRoomRequest{Number: "101", Type: "single", Price: price(90)})
	require.NoError(t, err)
}

func TestRoomService_Available(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	r101 := f.store.addRoom("101")
	f.store.addRoom("102")
	f.store.addBooking(r101.ID, stayOf("2024-06-01", "2024-06-03"))

	rooms, err := f.rooms.Available(ctx, "2024-06-02", "2024-06-04")
	require.NoError(t, err)
	assert.Equal(t, []string{"102"}, numbers(rooms))

	rooms, err = f.rooms.Available(ctx, "2024-06-03", "2024-06-05")
	require.NoError(t, err)
	assert.Equal(t, []string{"101", "102"}, numbers(rooms))

	_, err = f.rooms.Available(ctx, "2024-06-03", "")
	requireAppErr(t, err, apperr.Validation, domain.MsgBothDatesRequired)

	_, err = f.rooms.Available(ctx, "2024-06-05", "2024-06-03")
	requireAppErr(t, err, apperr.Validation, domain.MsgCheckOutBeforeIn)

	_, err = f.rooms.Available(ctx, "yesterday", "2024-06-03")
	requireAppErr(t, err, apperr.Validation, domain.MsgInvalidDate)
}

func TestRoomService_Stats(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	r101 := f.store.addRoom("101")
	r102 := f.store.addRoom("102")
	f.store.addRoom("103")

	// leaves the morning of the 10th; not part of the night of the 10th
	f.store.addBooking(r101.ID, stayOf("2024-06-08", "2024-06-10"))
	// night of the 10th
	f.store.addBooking(r102.ID, stayOf("2024-06-10", "2024-06-11"))

	stats, err := f.rooms.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStats{Total: 3, Occupied: 1, Available: 2}, *stats)

	stats, err = f.rooms.Stats(ctx, "2024-06-09")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStats{Total: 3, Occupied: 1, Available: 2}, *stats)

	t.Run("served from cache until a write invalidates it", func(t *testing.T) {
		f.store.addBooking(r101.ID, stayOf("2024-06-10", "2024-06-12"))

		cached, err := f.rooms.Stats(ctx, "2024-06-10")
		require.NoError(t, err)
		assert.Equal(t, 1, cached.Occupied)

		_, err = f.rooms.Create(ctx, 7, &domain.CreateRoomRequest{Number: "104", Type: "suite", Price: price(300)})
		require.NoError(t, err)

		fresh, err := f.rooms.Stats(ctx, "2024-06-10")
		require.NoError(t, err)
		assert.Equal(t, domain.RoomStats{Total: 4, Occupied: 2, Available: 2}, *fresh)
	})

	_, err = f.rooms.Stats(ctx, "not-a-date")
	requireAppErr(t, err, apperr.Validation, domain.MsgInvalidDate)
}

func TestRoomService_StatsIgnoresFiguresLoadedBeforeAWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.store.addRoom("101")
	f.store.addRoom("102")

	// a booking commits after the occupancy load and before the cache write
	f.store.afterList = func() {
		_, err := f.bookings.Create(ctx, 7, bookingReq("101", "2024-06-10", "2024-06-11"))
		assert.NoError(t, err)
	}

	stale, err := f.rooms.Stats(ctx, "2024-06-10")
	require.NoError(t, err)
	assert.Equal(t, 0, stale.Occupied, "loaded before the booking committed")

	fresh, err := f.rooms.Stats(ctx, "2024-06-10")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStats{Total: 2, Occupied: 1, Available: 1}, *fresh)
}

func TestRoomService_Occupied(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	r101 := f.store.addRoom("101")
	r102 := f.store.addRoom("102")
	r103 := f.store.addRoom("103")

	f.store.addBooking(r101.ID, stayOf("2024-06-09", "2024-06-11"))
	f.store.addBooking(r102.ID, stayOf("2024-06-12", "2024-06-14"))
	// gone by 08:00
	f.store.addBooking(r103.ID, stayOf("2024-06-08", "2024-06-10"))

	rooms, err := f.rooms.Occupied(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"101"}, numbers(rooms))
	assert.Equal(t, domain.RoomOccupied, rooms[0].Status)

	rooms, err = f.rooms.Occupied(ctx, "2024-06-12")
	require.NoError(t, err)
	assert.Equal(t, []string{"102"}, numbers(rooms))
	// status always reflects today
	assert.Equal(t, domain.RoomAvailable, rooms[0].Status)
}

func TestRoomService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	r101 := f.store.addRoom("101")
	f.store.addRoom("102")
	f.store.addBooking(r101.ID, stayOf("2024-06-09", "2024-06-11"))

	rooms, err := f.rooms.List(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, domain.RoomOccupied, rooms[0].Status)
	assert.Equal(t, domain.RoomAvailable, rooms[1].Status)

	guests, err := f.rooms.ListGuests(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, guests, 1)
}
