package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/hotel-frontdesk/pkg/database"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/domain"
)

type RoomRepository interface {
	Create(ctx context.Context, req *domain.CreateRoomRequest) (*domain.Room, error)
	GetByID(ctx context.Context, id int64) (*domain.Room, error)
	GetByNumber(ctx context.Context, number string) (*domain.Room, error)
	List(ctx context.Context) ([]domain.Room, error)
	ListByIDs(ctx context.Context, ids []int64) ([]domain.Room, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, id int64, req *domain.UpdateRoomRequest) (*domain.Room, error)
	Delete(ctx context.Context, id int64, now time.Time) error
}

type roomRepository struct {
	pool *pgxpool.Pool
}

func NewRoomRepository(pool *pgxpool.Pool) RoomRepository {
	return &roomRepository{pool: pool}
}

const roomCols = `id, number, type, price::float8, created_at, updated_at`

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var rm domain.Room
	err := row.Scan(&rm.ID, &rm.Number, &rm.Type, &rm.Price, &rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rm.Status = domain.RoomAvailable
	return &rm, nil
}

func (r *roomRepository) Create(ctx context.Context, req *domain.CreateRoomRequest) (*domain.Room, error) {
	const q = `INSERT INTO rooms (number, type, price) VALUES ($1, $2, $3) RETURNING ` + roomCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rm, err := scanRoom(r.pool.QueryRow(ctx, q, req.Number, req.Type, *req.Price))
	if database.IsUniqueViolation(err) {
		return nil, ErrDuplicateNumber
	}
	return rm, err
}

func (r *roomRepository) GetByID(ctx context.Context, id int64) (*domain.Room, error) {
	const q = `SELECT ` + roomCols + ` FROM rooms WHERE id = $1 AND deleted_at IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rm, err := scanRoom(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rm, err
}

func (r *roomRepository) GetByNumber(ctx context.Context, number string) (*domain.Room, error) {
	const q = `SELECT ` + roomCols + ` FROM rooms WHERE number = $1 AND deleted_at IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rm, err := scanRoom(r.pool.QueryRow(ctx, q, number))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rm, err
}

func (r *roomRepository) List(ctx context.Context) ([]domain.Room, error) {
	const q = `SELECT ` + roomCols + ` FROM rooms WHERE deleted_at IS NULL ORDER BY number`
	return r.query(ctx, q)
}

// ListByIDs returns live rooms among ids, ordered by number.
func (r *roomRepository) ListByIDs(ctx context.Context, ids []int64) ([]domain.Room, error) {
	if len(ids) == 0 {
		return []domain.Room{}, nil
	}
	const q = `SELECT ` + roomCols + ` FROM rooms WHERE id = ANY($1) AND deleted_at IS NULL ORDER BY number`
	return r.query(ctx, q, ids)
}

func (r *roomRepository) query(ctx context.Context, q string, args ...any) ([]domain.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := []domain.Room{}
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *rm)
	}
	return rooms, rows.Err()
}

func (r *roomRepository) Count(ctx context.Context) (int, error) {
	const q = `SELECT count(*) FROM rooms WHERE deleted_at IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int
	err := r.pool.QueryRow(ctx, q).Scan(&n)
	return n, err
}

func (r *roomRepository) Update(ctx context.Context, id int64, req *domain.UpdateRoomRequest) (*domain.Room, error) {
	const q = `UPDATE rooms SET
		number = COALESCE($2, number),
		type = COALESCE($3, type),
		price = COALESCE($4, price),
		updated_at = now()
	WHERE id = $1 AND deleted_at IS NULL
	RETURNING ` + roomCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rm, err := scanRoom(r.pool.QueryRow(ctx, q, id, req.Number, req.Type, req.Price))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case database.IsUniqueViolation(err):
		return nil, ErrDuplicateNumber
	}
	return rm, err
}

// Delete soft-deletes a room unless a booking ends after now. It holds the
// room's calendar lock so no booking can be added concurrently.
func (r *roomRepository) Delete(ctx context.Context, id int64, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockRoom(ctx, tx, id); err != nil {
			return err
		}

		var exists, busy bool
		const check = `SELECT
			EXISTS (SELECT 1 FROM rooms WHERE id = $1 AND deleted_at IS NULL),
			EXISTS (SELECT 1 FROM bookings WHERE room_id = $1 AND check_out > $2)`
		if err := tx.QueryRow(ctx, check, id, now).Scan(&exists, &busy); err != nil {
			return err
		}
		if !exists {
			return ErrRoomNotFound
		}
		if busy {
			return ErrRoomInUse
		}

		_, err := tx.Exec(ctx, `UPDATE rooms SET deleted_at = now(), updated_at = now() WHERE id = $1`, id)
		return err
	})
}
