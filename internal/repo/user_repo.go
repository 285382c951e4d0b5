package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fraudshield/server/internal/model"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned by Create when the email is taken.
	ErrDuplicateEmail = errors.New("email already registered")
)

// NewUser carries the fields needed to create a credential record
type NewUser struct {
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         string
}

// UserRepo defines the interface for credential store operations
type UserRepo interface {
	Create(ctx context.Context, u NewUser) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

const userColumns = `id, first_name, last_name, email, password_hash, role,
       verified, two_factor_enabled, password_changed_at, created_at`

// Create inserts a new user. The unique index on email resolves concurrent
// signup races; losing the race surfaces as ErrDuplicateEmail.
func (r *userRepo) Create(ctx context.Context, u NewUser) (model.User, error) {
	query := `
		INSERT INTO users (first_name, last_name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO NOTHING
		RETURNING ` + userColumns
	user, err := r.scanUser(r.db.QueryRowContext(ctx, query,
		u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Role))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrDuplicateEmail
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *userRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := r.scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("query user by email: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := r.scanUser(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("query user by id: %w", err)
	}
	return user, nil
}

// UpdatePassword rotates the password hash and stamps password_changed_at,
// which is the moment outstanding reset tokens stop verifying.
func (r *userRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $2, password_changed_at = now()
		WHERE id = $1
	`, id.String(), passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) scanUser(row *sql.Row) (model.User, error) {
	var user model.User
	var idStr string
	err := row.Scan(
		&idStr,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Verified,
		&user.TwoFactorEnabled,
		&user.PasswordChangedAt,
		&user.CreatedAt,
	)
	if err != nil {
		return model.User{}, err
	}
	user.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.User{}, fmt.Errorf("parse user ID: %w", err)
	}
	return user, nil
}
