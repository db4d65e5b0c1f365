package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/halcyon/courier/internal/domain"
)

// UserRepository handles account data access. It is the relay's source
// of truth for the durable side of presence: the online flag and status
// column are updated here before any broadcast goes out.
type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user with credentials. New accounts start
// offline and AVAILABLE.
func (r *UserRepository) Create(ctx context.Context, user *domain.User, passwordHash string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, online, status)
		VALUES ($1, $2, $3, $4, false, $5)
	`, user.ID, user.Name, user.Email, passwordHash, domain.StatusAvailable)
	return err
}

// GetByID finds a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.scanOne(r.db.Pool.QueryRow(ctx, `
		SELECT id, name, email, online, status, created_at, updated_at
		FROM users WHERE id = $1
	`, id))
}

// GetByEmail finds a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanOne(r.db.Pool.QueryRow(ctx, `
		SELECT id, name, email, online, status, created_at, updated_at
		FROM users WHERE email = $1
	`, email))
}

// GetByName finds a user by name (the routing address)
func (r *UserRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	return r.scanOne(r.db.Pool.QueryRow(ctx, `
		SELECT id, name, email, online, status, created_at, updated_at
		FROM users WHERE name = $1
	`, name))
}

// GetPasswordHash retrieves the password hash for a user
func (r *UserRepository) GetPasswordHash(ctx context.Context, userID uuid.UUID) (string, error) {
	var hash string
	err := r.db.Pool.QueryRow(ctx, `
		SELECT password_hash FROM users WHERE id = $1
	`, userID).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrUserNotFound
	}
	return hash, err
}

// SetOnline updates the durable online flag for a user
func (r *UserRepository) SetOnline(ctx context.Context, userID uuid.UUID, online bool) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE users SET online = $2, updated_at = NOW() WHERE id = $1
	`, userID, online)
	return err
}

// SetStatus updates the availability status for a user
func (r *UserRepository) SetStatus(ctx context.Context, userID uuid.UUID, status domain.Status) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1
	`, userID, status)
	return err
}

// EmailExists checks if email is already registered
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)
	`, email).Scan(&exists)
	return exists, err
}

// NameExists checks if a name is taken
func (r *UserRepository) NameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE name = $1)
	`, name).Scan(&exists)
	return exists, err
}

func (r *UserRepository) scanOne(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID, &user.Name, &user.Email,
		&user.Online, &user.Status,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	return user, err
}
