// Package audit records every front-desk event published on the bus as a
// structured log line.
package audit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/diagnosis/hotel-frontdesk/pkg/events"
	"github.com/diagnosis/hotel-frontdesk/pkg/logger"
)

const queue = "notify-audit"

type Consumer struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewConsumer() *Consumer {
	return &Consumer{counts: map[string]int{}}
}

// Start joins the audit queue group for bookings, rooms and accounts.
func (c *Consumer) Start(bus events.Subscriber) error {
	for _, subject := range []string{events.AllBookings, events.AllRooms, events.AllUsers} {
		if err := bus.QueueSubscribe(subject, queue, c.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Counts returns a copy of how many events were recorded per subject.
func (c *Consumer) Counts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

func (c *Consumer) Handle(msg *events.Message) {
	ctx := logger.WithService(context.Background(), "notify")
	attrs, err := describe(msg)
	if err != nil {
		logger.WarnContext(ctx, "Undecodable event", "subject", msg.Subject, "event_id", msg.ID, "error", err)
		return
	}

	c.mu.Lock()
	c.counts[msg.Subject]++
	c.mu.Unlock()

	args := []any{"subject", msg.Subject, "event_id", msg.ID}
	for _, a := range attrs {
		args = append(args, a)
	}
	logger.InfoContext(ctx, "Audit event", args...)
}

func describe(msg *events.Message) ([]slog.Attr, error) {
	switch msg.Subject {
	case events.BookingCreated:
		var e events.BookingCreatedEvent
		if err := msg.Decode(&e); err != nil {
			return nil, err
		}
		return []slog.Attr{
			slog.Int64("booking_id", e.BookingID),
			slog.String("room", e.RoomNumber),
			slog.Int64("guest_id", e.GuestID),
			slog.Time("check_in", e.CheckIn),
			slog.Time("check_out", e.CheckOut),
			slog.Int64("actor", e.CreatedBy),
		}, nil
	case events.BookingExtended:
		var e events.BookingExtendedEvent
		if err := msg.Decode(&e); err != nil {
			return nil, err
		}
		return []slog.Attr{
			slog.Int64("booking_id", e.BookingID),
			slog.Time("previous_check_out", e.PreviousCheckOut),
			slog.Time("new_check_out", e.NewCheckOut),
			slog.Int64("actor", e.ExtendedBy),
		}, nil
	case events.RoomCreated, events.RoomUpdated, events.RoomDeleted:
		var e events.RoomChangedEvent
		if err := msg.Decode(&e); err != nil {
			return nil, err
		}
		return []slog.Attr{
			slog.Int64("room_id", e.RoomID),
			slog.String("room", e.Number),
			slog.Int64("actor", e.ChangedBy),
		}, nil
	case events.UserRegistered:
		var e events.UserRegisteredEvent
		if err := msg.Decode(&e); err != nil {
			return nil, err
		}
		return []slog.Attr{slog.Int64("user_id", e.UserID), slog.String("username", e.Username)}, nil
	case events.PasswordResetRequested, events.PasswordResetCompleted:
		var e events.PasswordResetEvent
		if err := msg.Decode(&e); err != nil {
			return nil, err
		}
		return []slog.Attr{slog.Int64("user_id", e.UserID), slog.Bool("delivered", e.Delivered)}, nil
	}

	// Unknown subjects are still recorded, just without typed fields.
	var raw map[string]any
	if err := msg.Decode(&raw); err != nil {
		return nil, err
	}
	return []slog.Attr{slog.Int("fields", len(raw))}, nil
}
