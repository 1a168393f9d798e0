package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/slotsync/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	pool *ConnectionPool
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.ExternalHandle == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO users (id, external_handle, first_name, last_name, language_tag, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.ExternalHandle,
		user.FirstName,
		user.LastName,
		user.LanguageTag,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	return mapError(err)
}

func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrConstraintViolation
	}

	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE users
		SET external_handle = ?, first_name = ?, last_name = ?, language_tag = ?, updated_at = ?
		WHERE id = ?`,
		user.ExternalHandle,
		user.FirstName,
		user.LastName,
		user.LanguageTag,
		formatTime(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	return r.getUserBy(ctx, "id", id)
}

func (r *UserRepository) GetUserByHandle(ctx context.Context, externalHandle string) (persistence.User, error) {
	return r.getUserBy(ctx, "external_handle", externalHandle)
}

func (r *UserRepository) getUserBy(ctx context.Context, column, value string) (persistence.User, error) {
	if value == "" {
		return persistence.User{}, persistence.ErrNotFound
	}

	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, external_handle, first_name, last_name, language_tag, created_at, updated_at
		FROM users WHERE `+column+` = ?`, value)

	var user persistence.User
	var createdAt, updatedAt string
	err := row.Scan(&user.ID, &user.ExternalHandle, &user.FirstName, &user.LastName,
		&user.LanguageTag, &createdAt, &updatedAt)
	if err != nil {
		return persistence.User{}, mapError(err)
	}
	user.CreatedAt = parseTime(createdAt)
	user.UpdatedAt = parseTime(updatedAt)
	return user, nil
}

func formatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}
