package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"chatbackend/application/ports"
	"chatbackend/domain/users"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

// UserRepository is the Postgres implementation of ports.UserRepository.
type UserRepository struct {
	db *sql.DB
}

var _ ports.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new Postgres user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *users.User) (*users.User, error) {
	query := `INSERT INTO users (username, email, password_hash)
	          VALUES ($1, $2, $3)
	          RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash).Scan(&user.ID)

	if err != nil {
		if dup := translateUniqueViolation(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*users.User, error) {
	query := `SELECT id, username, email, password_hash FROM users`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*users.User
	for rows.Next() {
		user := &users.User{}
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*users.User, error) {
	query := `SELECT id, username, email, password_hash FROM users
	          WHERE id = $1`

	return r.queryOne(ctx, query, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	query := `SELECT id, username, email, password_hash FROM users
	          WHERE email = $1`

	return r.queryOne(ctx, query, email)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	query := `SELECT id, username, email, password_hash FROM users
	          WHERE username = $1`

	return r.queryOne(ctx, query, username)
}

func (r *UserRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*users.User, error) {
	query := `SELECT id, username, email, password_hash FROM users
	          WHERE (email = $1 AND $1 <> '') OR (username = $2 AND $2 <> '')
	          LIMIT 1`

	return r.queryOne(ctx, query, email, username)
}

func (r *UserRepository) Update(ctx context.Context, user *users.User) (*users.User, error) {
	query := `UPDATE users
	          SET username = $1, email = $2, password_hash = $3
	          WHERE id = $4
	          RETURNING id, username, email, password_hash`

	updated := &users.User{}
	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.ID).
		Scan(&updated.ID, &updated.Username, &updated.Email, &updated.PasswordHash)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if dup := translateUniqueViolation(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return updated, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM users WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM users`

	var count int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

func (r *UserRepository) queryOne(ctx context.Context, query string, args ...any) (*users.User, error) {
	user := &users.User{}
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// translateUniqueViolation maps a Postgres unique constraint violation to a
// ports.DuplicateError, deriving the field from the constraint name. The
// unique constraints back up the service-level collision probe, which is a
// read-then-write and can lose a race under concurrent duplicate submissions.
func translateUniqueViolation(err error) *ports.DuplicateError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return nil
	}

	dup := &ports.DuplicateError{}
	switch {
	case strings.Contains(pgErr.ConstraintName, "email"):
		dup.Field = "email"
	case strings.Contains(pgErr.ConstraintName, "username"):
		dup.Field = "username"
	}
	return dup
}
