package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/hotel-frontdesk/pkg/apperr"
	"github.com/diagnosis/hotel-frontdesk/pkg/events"
	"github.com/diagnosis/hotel-frontdesk/pkg/logger"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/availability"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/domain"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/repository"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/stay"
)

type RoomService interface {
	Create(ctx context.Context, actorID int64, req *domain.CreateRoomRequest) (*domain.Room, error)
	Get(ctx context.Context, id int64) (*domain.Room, error)
	List(ctx context.Context) ([]domain.Room, error)
	Update(ctx context.Context, actorID, id int64, req *domain.UpdateRoomRequest) (*domain.Room, error)
	Delete(ctx context.Context, actorID, id int64) error
	Available(ctx context.Context, checkIn, checkOut string) ([]domain.Room, error)
	Stats(ctx context.Context, date string) (*domain.RoomStats, error)
	Occupied(ctx context.Context, date string) ([]domain.Room, error)
	ListGuests(ctx context.Context, limit, offset int) ([]domain.Guest, error)
}

type roomService struct {
	roomRepo    repository.RoomRepository
	bookingRepo repository.BookingRepository
	guestRepo   repository.GuestRepository
	stats       StatsCache
	eventBus    events.Publisher
	loc         *time.Location
	now         func() time.Time
}

func NewRoomService(
	roomRepo repository.RoomRepository,
	bookingRepo repository.BookingRepository,
	guestRepo repository.GuestRepository,
	stats StatsCache,
	eventBus events.Publisher,
	loc *time.Location,
) RoomService {
	return &roomService{
		roomRepo:    roomRepo,
		bookingRepo: bookingRepo,
		guestRepo:   guestRepo,
		stats:       stats,
		eventBus:    eventBus,
		loc:         loc,
		now:         time.Now,
	}
}

func (s *roomService) Create(ctx context.Context, actorID int64, req *domain.CreateRoomRequest) (*domain.Room, error) {
	req.Normalize()
	if msg := req.Validate(); msg != "" {
		return nil, apperr.NewValidation(msg)
	}

	room, err := s.roomRepo.Create(ctx, req)
	if errors.Is(err, repository.ErrDuplicateNumber) {
		return nil, apperr.NewConflict(domain.MsgRoomNumberTaken)
	}
	if err != nil {
		return nil, apperr.NewInternal(fmt.Errorf("create room: %w", err))
	}

	invalidateStats(ctx, s.stats)
	s.publish(ctx, events.RoomCreated, room, actorID)
	return room, nil
}

func (s *roomService) Get(ctx context.Context, id int64) (*domain.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NewInternal(fmt.Errorf("get room %d: %w", id, err))
	}
	if room == nil {
		return nil, apperr.NewNotFound(domain.MsgRoomNotFound)
	}
	if err := markOccupied(ctx, s.bookingRepo, s.now(), s.loc, room); err != nil {
		return nil, apperr.NewInternal(err)
	}
	return room, nil
}

func (s *roomService) List(ctx context.Context) ([]domain.Room, error) {
	rooms, err := s.roomRepo.List(ctx)
	if err != nil {
		return nil, apperr.NewInternal(fmt.Errorf("list rooms: %w", err))
	}
	if err := markOccupied(ctx, s.bookingRepo, s.now(), s.loc, roomPtrs(rooms)...); err != nil {
		return nil, apperr.NewInternal(err)
	}
	return rooms, nil
}

func (s *roomService) Update(ctx context.Context, actorID, id int64, req *domain.UpdateRoomRequest) (*domain.Room, error) {
	req.Normalize()
	if msg := req.Validate(); msg != "" {
		return nil, apperr.NewValidation(msg)
	}

	room, err := s.roomRepo.Update(ctx, id, req)
	if errors.Is(err, repository.ErrDuplicateNumber) {
		return nil, apperr.NewConflict(domain.MsgRoomNumberTaken)
	}
	if err != nil {
		return nil, apperr.NewInternal(fmt.Errorf("update room %d: %w", id, err))
	}
	if room == nil {
		return nil, apperr.NewNotFound(domain.MsgRoomNotFound)
	}
	if err := markOccupied(ctx, s.bookingRepo, s.now(), s.loc, room); err != nil {
		logger.WarnContext(ctx, "Failed to resolve room status", "error", err, "room_id", room.ID)
	}

	s.publish(ctx, events.RoomUpdated, room, actorID)
	return room, nil
}

func (s *roomService) Delete(ctx context.Context, actorID, id int64) error {
	err := s.roomRepo.Delete(ctx, id, s.now())
	switch {
	case errors.Is(err, repository.ErrRoomNotFound):
		return apperr.NewNotFound(domain.MsgRoomNotFound)
	case errors.Is(err, repository.ErrRoomInUse):
		return apperr.NewConflict(domain.MsgRoomHasBookings)
	case err != nil:
		return apperr.NewInternal(fmt.Errorf("delete room %d: %w", id, err))
	}

	invalidateStats(ctx, s.stats)
	s.publish(ctx, events.RoomDeleted, &domain.Room{ID: id}, actorID)
	return nil
}

// Available lists rooms with no booking overlapping the normalized stay.
func (s *roomService) Available(ctx context.Context, checkIn, checkOut string) ([]domain.Room, error) {
	checkIn, checkOut = strings.TrimSpace(checkIn), strings.TrimSpace(checkOut)
	if checkIn == "" || checkOut == "" {
		return nil, apperr.NewValidation(domain.MsgBothDatesRequired)
	}
	in, err := stay.ParseDate(checkIn, s.loc)
	if err != nil {
		return nil, apperr.NewValidation(domain.MsgInvalidDate)
	}
	out, err := stay.ParseDate(checkOut, s.loc)
	if err != nil {
		return nil, apperr.NewValidation(domain.MsgInvalidDate)
	}
	w, err := stay.StayWindow(in, out, s.loc)
	if err != nil {
		return nil, apperr.NewValidation(domain.MsgCheckOutBeforeIn)
	}

	rooms, busy, err := s.roomsAndBusy(ctx, w)
	if err != nil {
		return nil, err
	}

	free := make([]domain.Room, 0, len(rooms))
	for _, rm := range rooms {
		if !busy[rm.ID] {
			free = append(free, rm)
		}
	}
	if err := markOccupied(ctx, s.bookingRepo, s.now(), s.loc, roomPtrs(free)...); err != nil {
		return nil, apperr.NewInternal(err)
	}
	return free, nil
}

// Stats counts rooms with a booking overlapping the night that starts on date.
func (s *roomService) Stats(ctx context.Context, date string) (*domain.RoomStats, error) {
	day, err := parseDay(strings.TrimSpace(date), s.now(), s.loc)
	if err != nil {
		return nil, err
	}

	gen, err := s.stats.Generation(ctx)
	cacheable := err == nil
	if err != nil {
		logger.WarnContext(ctx, "Room stats cache generation read failed", "error", err)
	} else if cached, ok, err := s.stats.Get(ctx, gen, day); err != nil {
		logger.WarnContext(ctx, "Room stats cache read failed", "error", err)
	} else if ok {
		return cached, nil
	}

	rooms, busy, err := s.roomsAndBusy(ctx, stay.StatsDayWindow(day, s.loc))
	if err != nil {
		return nil, err
	}

	stats := &domain.RoomStats{Total: len(rooms)}
	for _, rm := range rooms {
		if busy[rm.ID] {
			stats.Occupied++
		}
	}
	stats.Available = stats.Total - stats.Occupied

	if cacheable {
		if err := s.stats.Set(ctx, gen, day, stats); err != nil {
			logger.WarnContext(ctx, "Room stats cache write failed", "error", err)
		}
	}
	return stats, nil
}

// Occupied lists rooms with a guest in them at some point on date, from 08:00 to midnight.
func (s *roomService) Occupied(ctx context.Context, date string) ([]domain.Room, error) {
	day, err := parseDay(strings.TrimSpace(date), s.now(), s.loc)
	if err != nil {
		return nil, err
	}

	rooms, busy, err := s.roomsAndBusy(ctx, stay.OccupiedDayWindow(day, s.loc))
	if err != nil {
		return nil, err
	}

	occupied := make([]domain.Room, 0, len(busy))
	for _, rm := range rooms {
		if busy[rm.ID] {
			occupied = append(occupied, rm)
		}
	}
	if err := markOccupied(ctx, s.bookingRepo, s.now(), s.loc, roomPtrs(occupied)...); err != nil {
		return nil, apperr.NewInternal(err)
	}
	return occupied, nil
}

func (s *roomService) ListGuests(ctx context.Context, limit, offset int) ([]domain.Guest, error) {
	guests, err := s.guestRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, apperr.NewInternal(fmt.Errorf("list guests: %w", err))
	}
	return guests, nil
}

// roomsAndBusy loads live rooms and the IDs of rooms booked during w concurrently.
func (s *roomService) roomsAndBusy(ctx context.Context, w stay.Window) ([]domain.Room, map[int64]bool, error) {
	var (
		rooms    []domain.Room
		bookings []domain.Booking
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rooms, err = s.roomRepo.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		bookings, err = s.bookingRepo.ListOverlapping(gctx, w)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, apperr.NewInternal(fmt.Errorf("load occupancy: %w", err))
	}
	return rooms, availability.BusyRooms(bookings, w), nil
}

func (s *roomService) publish(ctx context.Context, subject string, room *domain.Room, actorID int64) {
	event := events.RoomChangedEvent{
		RoomID:    room.ID,
		Number:    room.Number,
		ChangedBy: actorID,
		ChangedAt: s.now(),
	}
	if err := s.eventBus.Publish(ctx, subject, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish room event", "error", err, "subject", subject, "room_id", room.ID)
	}
}
