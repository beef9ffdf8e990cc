package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/hotel-frontdesk/pkg/database"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/domain"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/stay"
)

type BookingRepository interface {
	FindOverlapping(ctx context.Context, roomID int64, w stay.Window, excludeID int64) (*domain.Booking, error)
	ListOverlapping(ctx context.Context, w stay.Window) ([]domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	List(ctx context.Context) ([]domain.Booking, error)
	CreateWithGuest(ctx context.Context, guest *domain.Guest, booking *domain.Booking) error
	ExtendCheckOut(ctx context.Context, id int64, newCheckOut time.Time) (*domain.Booking, error)
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingCols = `id, guest_id, room_id, check_in, check_out, created_at, updated_at`

const bookingJoinCols = `b.id, b.guest_id, b.room_id, b.check_in, b.check_out, b.created_at, b.updated_at,
g.id, g.name, g.phone, g.id_proof_url, g.created_at,
r.id, r.number, r.type, r.price::float8, r.created_at, r.updated_at`

const bookingJoin = ` FROM bookings b
JOIN guests g ON g.id = b.guest_id
JOIN rooms r ON r.id = b.room_id`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.GuestID, &b.RoomID, &b.CheckIn, &b.CheckOut, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanResolvedBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b  domain.Booking
		g  domain.Guest
		rm domain.Room
	)
	err := row.Scan(
		&b.ID, &b.GuestID, &b.RoomID, &b.CheckIn, &b.CheckOut, &b.CreatedAt, &b.UpdatedAt,
		&g.ID, &g.Name, &g.Phone, &g.IDProofURL, &g.CreatedAt,
		&rm.ID, &rm.Number, &rm.Type, &rm.Price, &rm.CreatedAt, &rm.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rm.Status = domain.RoomAvailable
	b.Guest = &g
	b.Room = &rm
	return &b, nil
}

func findOverlapping(ctx context.Context, db DBTX, roomID int64, w stay.Window, excludeID int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings
	WHERE room_id = $1 AND check_in < $3 AND check_out > $2 AND id <> $4
	ORDER BY check_in
	LIMIT 1`

	b, err := scanBooking(db.QueryRow(ctx, q, roomID, w.Start, w.End, excludeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (r *bookingRepository) FindOverlapping(ctx context.Context, roomID int64, w stay.Window, excludeID int64) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return findOverlapping(ctx, r.pool, roomID, w, excludeID)
}

// ListOverlapping returns bookings on any room that overlap w.
func (r *bookingRepository) ListOverlapping(ctx context.Context, w stay.Window) ([]domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings
	WHERE check_in < $2 AND check_out > $1
	ORDER BY room_id, check_in`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingJoinCols + bookingJoin + ` WHERE b.id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanResolvedBooking(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (r *bookingRepository) List(ctx context.Context) ([]domain.Booking, error) {
	const q = `SELECT ` + bookingJoinCols + bookingJoin + ` ORDER BY b.check_in, b.id`
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []domain.Booking{}
	for rows.Next() {
		b, err := scanResolvedBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// CreateWithGuest inserts the guest and the booking in one transaction after
// re-checking the room's calendar under its lock. On success guest and
// booking carry their generated IDs and timestamps.
func (r *bookingRepository) CreateWithGuest(ctx context.Context, guest *domain.Guest, booking *domain.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockRoom(ctx, tx, booking.RoomID); err != nil {
			return fmt.Errorf("lock room: %w", err)
		}

		var live bool
		const roomQ = `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1 AND deleted_at IS NULL)`
		if err := tx.QueryRow(ctx, roomQ, booking.RoomID).Scan(&live); err != nil {
			return err
		}
		if !live {
			return ErrRoomNotFound
		}

		w := stay.Window{Start: booking.CheckIn, End: booking.CheckOut}
		conflict, err := findOverlapping(ctx, tx, booking.RoomID, w, 0)
		if err != nil {
			return err
		}
		if conflict != nil {
			return ErrOverlap
		}

		const guestQ = `INSERT INTO guests (name, phone, id_proof_url) VALUES ($1, $2, $3) RETURNING id, created_at`
		if err := tx.QueryRow(ctx, guestQ, guest.Name, guest.Phone, guest.IDProofURL).Scan(&guest.ID, &guest.CreatedAt); err != nil {
			return fmt.Errorf("insert guest: %w", err)
		}

		const bookingQ = `INSERT INTO bookings (guest_id, room_id, check_in, check_out)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + bookingCols
		created, err := scanBooking(tx.QueryRow(ctx, bookingQ, guest.ID, booking.RoomID, booking.CheckIn, booking.CheckOut))
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		guestRef, roomRef := booking.Guest, booking.Room
		*booking = *created
		booking.Guest, booking.Room = guestRef, roomRef
		return nil
	})
	if database.IsExclusionViolation(err) {
		return ErrOverlap
	}
	return err
}

// ExtendCheckOut moves a booking's check-out later, re-checking the added
// nights [current check-out, newCheckOut) under the room lock.
func (r *bookingRepository) ExtendCheckOut(ctx context.Context, id int64, newCheckOut time.Time) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var updated *domain.Booking
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var roomID int64
		err := tx.QueryRow(ctx, `SELECT room_id FROM bookings WHERE id = $1`, id).Scan(&roomID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrBookingNotFound
		}
		if err != nil {
			return err
		}
		if err := lockRoom(ctx, tx, roomID); err != nil {
			return fmt.Errorf("lock room: %w", err)
		}

		current, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingCols+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if !newCheckOut.After(current.CheckOut) {
			return ErrCheckOutNotLater
		}

		added := stay.Window{Start: current.CheckOut, End: newCheckOut}
		conflict, err := findOverlapping(ctx, tx, roomID, added, id)
		if err != nil {
			return err
		}
		if conflict != nil {
			return ErrOverlap
		}

		const q = `UPDATE bookings SET check_out = $2, updated_at = now() WHERE id = $1 RETURNING ` + bookingCols
		updated, err = scanBooking(tx.QueryRow(ctx, q, id, newCheckOut))
		return err
	})
	if database.IsExclusionViolation(err) {
		return nil, ErrOverlap
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}
