package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx, so queries run the same
// inside and outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	ErrOverlap          = errors.New("booking overlaps an existing stay")
	ErrRoomNotFound     = errors.New("room not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrCheckOutNotLater = errors.New("new check-out is not after the current one")
	ErrDuplicateNumber  = errors.New("room number already exists")
	ErrRoomInUse        = errors.New("room has current or upcoming bookings")
)

// lockRoom serialises writers touching the same room's calendar until the
// surrounding transaction ends.
func lockRoom(ctx context.Context, tx pgx.Tx, roomID int64) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, roomID)
	return err
}
