package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"zoombid/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound      = fmt.Errorf("user %w", domain.ErrNotFound)
	ErrUserAlreadyExists = errors.New("user with this email already exists")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByRole(ctx context.Context, role domain.Role) ([]*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.UserStatus) error
	SetOTPSecret(ctx context.Context, id uuid.UUID, secret *string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type userRepository struct {
	db      DBTX
	timeout time.Duration
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db DBTX, timeout time.Duration) UserRepository {
	return &userRepository{db: db, timeout: timeout}
}

const userColumns = `id, name, email, password_hash, role, status, profile_picture, otp_secret, created_at, updated_at`

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var otp sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Status,
		&user.ProfilePicture,
		&otp,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if otp.Valid {
		user.OTPSecret = &otp.String
	}
	return user, nil
}

// Create inserts a new user using parameterized queries
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO users (id, name, email, password_hash, role, status, profile_picture, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Status,
		user.ProfilePicture,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserAlreadyExists
		}
		return storeError("failed to create user", err)
	}

	return nil
}

// FindByEmail retrieves a user by email
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, storeError("failed to find user by email", err)
	}

	return user, nil
}

// FindByID retrieves a user by ID
func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, storeError("failed to find user by ID", err)
	}

	return user, nil
}

// FindByRole returns every user holding role, oldest first
func (r *userRepository) FindByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY created_at ASC`
	return r.query(ctx, query, role)
}

// List returns all users, newest first
func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	return r.query(ctx, query)
}

func (r *userRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.User, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("failed to list users", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, storeError("failed to scan user", err)
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return nil, storeError("error iterating users", err)
	}

	return users, nil
}

// UpdateStatus sets the account status of a user
func (r *userRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.UserStatus) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `UPDATE users SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return storeError("failed to update user status", err)
	}
	return expectOneRow(result, ErrUserNotFound)
}

// SetOTPSecret stores or clears the password reset code of a user
func (r *userRepository) SetOTPSecret(ctx context.Context, id uuid.UUID, secret *string) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `UPDATE users SET otp_secret = $2 WHERE id = $1`, id, secret)
	if err != nil {
		return storeError("failed to set otp secret", err)
	}
	return expectOneRow(result, ErrUserNotFound)
}

// UpdatePassword replaces the password hash and clears any reset code
func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, otp_secret = NULL WHERE id = $1`,
		id, passwordHash,
	)
	if err != nil {
		return storeError("failed to update password", err)
	}
	return expectOneRow(result, ErrUserNotFound)
}
