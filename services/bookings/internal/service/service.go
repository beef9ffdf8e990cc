package service

import (
	"context"
	"time"

	"github.com/diagnosis/hotel-frontdesk/pkg/apperr"
	"github.com/diagnosis/hotel-frontdesk/pkg/logger"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/availability"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/domain"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/repository"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/stay"
)

// Uploader stores identity-proof images outside the database. created
// reports whether UploadImage wrote a new object.
type Uploader interface {
	UploadImage(ctx context.Context, raw string) (url string, created bool, err error)
	Remove(ctx context.Context, url string) error
}

// StatsCache holds per-day occupancy figures between writes. Invalidate
// moves the cache to a new generation; entries from older generations are
// never returned.
type StatsCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, day time.Time) (*domain.RoomStats, bool, error)
	Set(ctx context.Context, gen int64, day time.Time, stats *domain.RoomStats) error
	Invalidate(ctx context.Context) error
}

func invalidateStats(ctx context.Context, cache StatsCache) {
	if err := cache.Invalidate(ctx); err != nil {
		logger.WarnContext(ctx, "Failed to invalidate room stats cache", "error", err)
	}
}

// markOccupied sets Status on rooms from the bookings overlapping today's
// occupied window.
func markOccupied(ctx context.Context, bookings repository.BookingRepository, now time.Time, loc *time.Location, rooms ...*domain.Room) error {
	if len(rooms) == 0 {
		return nil
	}
	w := stay.OccupiedDayWindow(now, loc)
	today, err := bookings.ListOverlapping(ctx, w)
	if err != nil {
		return err
	}
	applyStatus(availability.BusyRooms(today, w), rooms...)
	return nil
}

func applyStatus(busy map[int64]bool, rooms ...*domain.Room) {
	for _, rm := range rooms {
		if busy[rm.ID] {
			rm.Status = domain.RoomOccupied
		} else {
			rm.Status = domain.RoomAvailable
		}
	}
}

func roomPtrs(rooms []domain.Room) []*domain.Room {
	out := make([]*domain.Room, len(rooms))
	for i := range rooms {
		out[i] = &rooms[i]
	}
	return out
}

// parseDay reads an optional calendar date; empty means today in loc.
func parseDay(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return now.In(loc), nil
	}
	day, err := stay.ParseDate(raw, loc)
	if err != nil {
		return time.Time{}, apperr.NewValidation(domain.MsgInvalidDate)
	}
	return day, nil
}
