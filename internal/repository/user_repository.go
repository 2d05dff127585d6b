package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"usermanager/internal/entities"
)

var (
	// ErrNotFound is returned when no user row matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when the unique email constraint rejects a write.
	ErrDuplicateEmail = errors.New("email already exists")
)

const (
	rowTimeout  = 3 * time.Second
	listTimeout = 5 * time.Second
)

// UserRepository defines the interface for user database operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) (*entities.User, error)
	FindByID(ctx context.Context, id int64) (*entities.User, error)
	FindAll(ctx context.Context) ([]*entities.User, error)
	Update(ctx context.Context, user *entities.User) (*entities.User, error)
	Delete(ctx context.Context, id int64) error
	EmailExists(ctx context.Context, email string, excludeID int64) (bool, error)
}

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, name, email, mobile, address, profile_image, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*entities.User, error) {
	var (
		user  entities.User
		image sql.NullString
	)
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Mobile,
		&user.Address,
		&image,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if image.Valid {
		user.ProfileImage = &image.String
	}
	return &user, nil
}

// Create inserts a new user and returns it with its assigned id
func (r *userRepository) Create(ctx context.Context, user *entities.User) (*entities.User, error) {
	ctx, cancel := context.WithTimeout(ctx, rowTimeout)
	defer cancel()

	query := `
		INSERT INTO users (name, email, mobile, address, profile_image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	now := time.Now().UTC()
	created, err := scanUser(r.db.QueryRowContext(ctx, query,
		user.Name, user.Email, user.Mobile, user.Address, user.ProfileImage, now, now,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("failed to create user: %w", ErrDuplicateEmail)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return created, nil
}

// FindByID finds a user by id
func (r *userRepository) FindByID(ctx context.Context, id int64) (*entities.User, error) {
	ctx, cancel := context.WithTimeout(ctx, rowTimeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// FindAll returns every user ordered by id
func (r *userRepository) FindAll(ctx context.Context) ([]*entities.User, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*entities.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

// Update overwrites every mutable field of the user and refreshes updated_at
func (r *userRepository) Update(ctx context.Context, user *entities.User) (*entities.User, error) {
	ctx, cancel := context.WithTimeout(ctx, rowTimeout)
	defer cancel()

	query := `
		UPDATE users
		SET name = $1, email = $2, mobile = $3, address = $4, profile_image = $5, updated_at = $6
		WHERE id = $7
		RETURNING ` + userColumns

	updated, err := scanUser(r.db.QueryRowContext(ctx, query,
		user.Name, user.Email, user.Mobile, user.Address, user.ProfileImage, time.Now().UTC(), user.ID,
	))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		case isUniqueViolation(err):
			return nil, fmt.Errorf("failed to update user: %w", ErrDuplicateEmail)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return updated, nil
}

// Delete removes the user row
func (r *userRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, rowTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// EmailExists reports whether another user already holds email.
// excludeID of 0 checks against every row.
func (r *userRepository) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, rowTimeout)
	defer cancel()

	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND id <> $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
