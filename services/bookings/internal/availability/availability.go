// Package availability decides whether a room can take a stay, using the
// bookings already recorded for it. Room status is never consulted.
package availability

import (
	"context"
	"fmt"

	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/domain"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/stay"
)

// NoExclusion is passed as excludeID when no booking should be skipped.
const NoExclusion int64 = 0

// ReservationFinder returns one booking on roomID whose [CheckIn, CheckOut)
// overlaps w, skipping excludeID, or nil when there is none.
type ReservationFinder interface {
	FindOverlapping(ctx context.Context, roomID int64, w stay.Window, excludeID int64) (*domain.Booking, error)
}

type Checker struct {
	finder ReservationFinder
}

func NewChecker(finder ReservationFinder) *Checker {
	return &Checker{finder: finder}
}

// FindConflict returns the first booking that overlaps w on roomID.
func (c *Checker) FindConflict(ctx context.Context, roomID int64, w stay.Window, excludeID int64) (*domain.Booking, error) {
	b, err := c.finder.FindOverlapping(ctx, roomID, w, excludeID)
	if err != nil {
		return nil, fmt.Errorf("find overlapping booking: %w", err)
	}
	return b, nil
}

// IsAvailable is true exactly when FindConflict finds nothing.
func (c *Checker) IsAvailable(ctx context.Context, roomID int64, w stay.Window) (bool, error) {
	b, err := c.FindConflict(ctx, roomID, w, NoExclusion)
	if err != nil {
		return false, err
	}
	return b == nil, nil
}

// FirstConflict applies the same rule to bookings already in memory. Bookings
// for other rooms must be filtered out by the caller.
func FirstConflict(bookings []domain.Booking, w stay.Window, excludeID int64) *domain.Booking {
	for i := range bookings {
		b := &bookings[i]
		if excludeID != NoExclusion && b.ID == excludeID {
			continue
		}
		if w.Overlaps(stay.Window{Start: b.CheckIn, End: b.CheckOut}) {
			return b
		}
	}
	return nil
}

// BusyRooms returns the set of room IDs with at least one booking overlapping w.
func BusyRooms(bookings []domain.Booking, w stay.Window) map[int64]bool {
	busy := make(map[int64]bool)
	for _, b := range bookings {
		if w.Overlaps(stay.Window{Start: b.CheckIn, End: b.CheckOut}) {
			busy[b.RoomID] = true
		}
	}
	return busy
}
