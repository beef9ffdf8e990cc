package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/hotel-frontdesk/pkg/apperr"
	"github.com/diagnosis/hotel-frontdesk/pkg/events"
	"github.com/diagnosis/hotel-frontdesk/pkg/logger"
	"github.com/diagnosis/hotel-frontdesk/pkg/metrics"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/availability"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/domain"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/repository"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/storage"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/stay"
)

type BookingService interface {
	Create(ctx context.Context, actorID int64, req *domain.CreateBookingRequest) (*domain.Booking, error)
	Extend(ctx context.Context, actorID, id int64, req *domain.ExtendBookingRequest) (*domain.Booking, error)
	Get(ctx context.Context, id int64) (*domain.Booking, error)
	List(ctx context.Context) ([]domain.Booking, error)
}

type bookingService struct {
	bookingRepo repository.BookingRepository
	roomRepo    repository.RoomRepository
	checker     *availability.Checker
	uploader    Uploader
	stats       StatsCache
	eventBus    events.Publisher
	loc         *time.Location
	now         func() time.Time
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	roomRepo repository.RoomRepository,
	uploader Uploader,
	stats StatsCache,
	eventBus events.Publisher,
	loc *time.Location,
) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		roomRepo:    roomRepo,
		checker:     availability.NewChecker(bookingRepo),
		uploader:    uploader,
		stats:       stats,
		eventBus:    eventBus,
		loc:         loc,
		now:         time.Now,
	}
}

func roomBooked() error {
	return apperr.New(apperr.Conflict, apperr.CodeRoomUnavailable, domain.MsgRoomBooked)
}

func roomBookedForExtension() error {
	return apperr.New(apperr.Conflict, apperr.CodeRoomUnavailable, domain.MsgRoomBookedExtension)
}

func (s *bookingService) Create(ctx context.Context, actorID int64, req *domain.CreateBookingRequest) (*domain.Booking, error) {
	req.Normalize()
	if !req.HasRequiredFields() {
		return nil, apperr.New(apperr.Validation, apperr.CodeMissingFields, domain.MsgAllFieldsRequired)
	}

	room, err := s.roomRepo.GetByNumber(ctx, req.RoomNumber)
	if err != nil {
		return nil, apperr.NewInternal(fmt.Errorf("find room %q: %w", req.RoomNumber, err))
	}
	if room == nil {
		return nil, apperr.NewNotFound(domain.MsgRoomNotFound)
	}

	checkIn, err := stay.ParseDate(req.CheckInDate, s.loc)
	if err != nil {
		return nil, apperr.NewValidation(domain.MsgInvalidDate)
	}
	checkOut, err := stay.ParseDate(req.CheckOutDate, s.loc)
	if err != nil {
		return nil, apperr.NewValidation(domain.MsgInvalidDate)
	}
	window, err := stay.StayWindow(checkIn, checkOut, s.loc)
	if err != nil {
		return nil, apperr.NewValidation(domain.MsgCheckOutBeforeIn)
	}

	conflict, err := s.checker.FindConflict(ctx, room.ID, window, availability.NoExclusion)
	if err != nil {
		return nil, apperr.NewInternal(err)
	}
	if conflict != nil {
		metrics.IncBookingConflict("create")
		return nil, roomBooked()
	}

	idProofURL, uploaded, err := s.uploader.UploadImage(ctx, req.IDProof)
	if err != nil {
		return nil, uploadError(err)
	}

	guest := &domain.Guest{Name: req.GuestName, Phone: req.Phone, IDProofURL: idProofURL}
	booking := &domain.Booking{RoomID: room.ID, CheckIn: window.Start, CheckOut: window.End}

	if err := s.bookingRepo.CreateWithGuest(ctx, guest, booking); err != nil {
		if uploaded {
			s.discardUpload(ctx, idProofURL)
		}
		switch {
		case errors.Is(err, repository.ErrOverlap):
			metrics.IncBookingConflict("create")
			return nil, roomBooked()
		case errors.Is(err, repository.ErrRoomNotFound):
			return nil, apperr.NewNotFound(domain.MsgRoomNotFound)
		}
		return nil, apperr.NewInternal(fmt.Errorf("create booking: %w", err))
	}

	if err := markOccupied(ctx, s.bookingRepo, s.now(), s.loc, room); err != nil {
		logger.WarnContext(ctx, "Failed to resolve room status", "error", err, "room_id", room.ID)
	}
	booking.Guest = guest
	booking.Room = room

	invalidateStats(ctx, s.stats)
	metrics.IncBookingCreated()
	logger.InfoContext(ctx, "Booking created",
		"booking_id", booking.ID,
		"room_id", room.ID,
		"check_in", booking.CheckIn,
		"check_out", booking.CheckOut,
	)

	event := events.BookingCreatedEvent{
		BookingID:  booking.ID,
		RoomID:     room.ID,
		RoomNumber: room.Number,
		GuestID:    guest.ID,
		GuestName:  guest.Name,
		CheckIn:    booking.CheckIn,
		CheckOut:   booking.CheckOut,
		CreatedBy:  actorID,
		CreatedAt:  booking.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.BookingCreated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking created event", "error", err, "booking_id", booking.ID)
	}

	return booking, nil
}

func uploadError(err error) error {
	for _, invalid := range []error{storage.ErrEmptyImage, storage.ErrImageTooLarge, storage.ErrUnsupportedImage, storage.ErrMalformedImage, storage.ErrForeignURL} {
		if errors.Is(err, invalid) {
			return apperr.NewValidation("Invalid ID proof: " + invalid.Error())
		}
	}
	return apperr.NewInternal(fmt.Errorf("upload id proof: %w", err))
}

func (s *bookingService) discardUpload(ctx context.Context, url string) {
	if err := s.uploader.Remove(context.WithoutCancel(ctx), url); err != nil {
		logger.WarnContext(ctx, "Failed to remove orphaned ID proof", "error", err)
	}
}

func (s *bookingService) Extend(ctx context.Context, actorID, id int64, req *domain.ExtendBookingRequest) (*domain.Booking, error) {
	if req == nil || strings.TrimSpace(req.NewCheckOutDate) == "" {
		return nil, apperr.NewValidation(domain.MsgNewCheckOutRequired)
	}

	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NewInternal(fmt.Errorf("get booking %d: %w", id, err))
	}
	if booking == nil {
		return nil, apperr.NewNotFound(domain.MsgBookingNotFound)
	}

	date, err := stay.ParseDate(req.NewCheckOutDate, s.loc)
	if err != nil {
		return nil, apperr.NewValidation(domain.MsgInvalidDate)
	}
	newCheckOut := stay.NormalizeCheckOut(date, s.loc)
	if !newCheckOut.After(booking.CheckOut) {
		return nil, apperr.NewValidation(domain.MsgCheckOutNotLater)
	}

	added := stay.Window{Start: booking.CheckOut, End: newCheckOut}
	conflict, err := s.checker.FindConflict(ctx, booking.RoomID, added, booking.ID)
	if err != nil {
		return nil, apperr.NewInternal(err)
	}
	if conflict != nil {
		metrics.IncBookingConflict("extend")
		return nil, roomBookedForExtension()
	}

	updated, err := s.bookingRepo.ExtendCheckOut(ctx, id, newCheckOut)
	switch {
	case errors.Is(err, repository.ErrOverlap):
		metrics.IncBookingConflict("extend")
		return nil, roomBookedForExtension()
	case errors.Is(err, repository.ErrCheckOutNotLater):
		return nil, apperr.NewValidation(domain.MsgCheckOutNotLater)
	case errors.Is(err, repository.ErrBookingNotFound):
		return nil, apperr.NewNotFound(domain.MsgBookingNotFound)
	case err != nil:
		return nil, apperr.NewInternal(fmt.Errorf("extend booking %d: %w", id, err))
	}

	updated.Guest = booking.Guest
	updated.Room = booking.Room
	if updated.Room != nil {
		if err := markOccupied(ctx, s.bookingRepo, s.now(), s.loc, updated.Room); err != nil {
			logger.WarnContext(ctx, "Failed to resolve room status", "error", err, "room_id", updated.RoomID)
		}
	}

	invalidateStats(ctx, s.stats)
	metrics.IncBookingExtended()
	logger.InfoContext(ctx, "Stay extended",
		"booking_id", id,
		"previous_check_out", booking.CheckOut,
		"new_check_out", updated.CheckOut,
	)

	event := events.BookingExtendedEvent{
		BookingID:        id,
		RoomID:           updated.RoomID,
		PreviousCheckOut: booking.CheckOut,
		NewCheckOut:      updated.CheckOut,
		ExtendedBy:       actorID,
		ExtendedAt:       updated.UpdatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.BookingExtended, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking extended event", "error", err, "booking_id", id)
	}

	return updated, nil
}

func (s *bookingService) Get(ctx context.Context, id int64) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NewInternal(fmt.Errorf("get booking %d: %w", id, err))
	}
	if booking == nil {
		return nil, apperr.NewNotFound(domain.MsgBookingNotFound)
	}
	if booking.Room != nil {
		if err := markOccupied(ctx, s.bookingRepo, s.now(), s.loc, booking.Room); err != nil {
			return nil, apperr.NewInternal(err)
		}
	}
	return booking, nil
}

func (s *bookingService) List(ctx context.Context) ([]domain.Booking, error) {
	bookings, err := s.bookingRepo.List(ctx)
	if err != nil {
		return nil, apperr.NewInternal(fmt.Errorf("list bookings: %w", err))
	}

	rooms := make([]*domain.Room, 0, len(bookings))
	for i := range bookings {
		if bookings[i].Room != nil {
			rooms = append(rooms, bookings[i].Room)
		}
	}
	if err := markOccupied(ctx, s.bookingRepo, s.now(), s.loc, rooms...); err != nil {
		return nil, apperr.NewInternal(err)
	}
	return bookings, nil
}
