package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/hotel-frontdesk/pkg/database"
	"github.com/diagnosis/hotel-frontdesk/services/auth/internal/domain"
)

var (
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidOTP        = errors.New("otp does not match or has expired")
)

type UserRepository interface {
	Create(ctx context.Context, username, email, passwordHash string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	UserExists(ctx context.Context, id int64) (bool, error)
	UpdateProfile(ctx context.Context, id int64, req *domain.UpdateProfileRequest) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error
	SetResetOTP(ctx context.Context, id int64, otpHash string, expiresAt time.Time) error
	ConsumeResetOTP(ctx context.Context, email, otpHash, newPasswordHash string, now time.Time) (int64, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userCols = `id, username, email, password_hash, profile_image, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.ProfileImage, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func duplicateError(err error) error {
	if !database.IsUniqueViolation(err) {
		return err
	}
	if _, constraint, _ := database.ConstraintError(err); constraint == "users_username_key" {
		return ErrDuplicateUsername
	}
	return ErrDuplicateEmail
}

func (r *userRepository) Create(ctx context.Context, username, email, passwordHash string) (*domain.User, error) {
	const q = `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, username, email, passwordHash))
	if err != nil {
		return nil, duplicateError(err)
	}
	return u, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE lower(email) = lower($1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanUser(r.pool.QueryRow(ctx, q, email))
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanUser(r.pool.QueryRow(ctx, q, id))
}

func (r *userRepository) UserExists(ctx context.Context, id int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx, q, id).Scan(&exists)
	return exists, err
}

// UpdateProfile leaves a column untouched when its field is nil or empty.
func (r *userRepository) UpdateProfile(ctx context.Context, id int64, req *domain.UpdateProfileRequest) (*domain.User, error) {
	const q = `
		UPDATE users
		SET
			username = COALESCE(NULLIF($2, ''), username),
			email = COALESCE(NULLIF($3, ''), email),
			profile_image = COALESCE(NULLIF($4, ''), profile_image),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id, req.Username, req.Email, req.ProfileImage))
	if err != nil {
		return nil, duplicateError(err)
	}
	return u, nil
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, passwordHash)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetResetOTP replaces any outstanding code for the user.
func (r *userRepository) SetResetOTP(ctx context.Context, id int64, otpHash string, expiresAt time.Time) error {
	const q = `
		UPDATE users
		SET reset_otp_hash = $2, reset_otp_expires_at = $3, updated_at = now()
		WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, otpHash, expiresAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ConsumeResetOTP swaps in the new password hash only if the code matches and
// has not expired at now, clearing the code in the same statement so it
// cannot be replayed. It returns ErrInvalidOTP for every kind of mismatch.
func (r *userRepository) ConsumeResetOTP(ctx context.Context, email, otpHash, newPasswordHash string, now time.Time) (int64, error) {
	const q = `
		UPDATE users
		SET password_hash = $3,
			reset_otp_hash = NULL,
			reset_otp_expires_at = NULL,
			updated_at = now()
		WHERE lower(email) = lower($1)
			AND reset_otp_hash = $2
			AND reset_otp_expires_at > $4
		RETURNING id`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var id int64
	err := r.pool.QueryRow(ctx, q, email, otpHash, newPasswordHash, now).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInvalidOTP
	}
	return id, err
}
