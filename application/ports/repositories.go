// Package ports declares the persistence interfaces consumed by application
// services. Implementations live under infrastructure/persistence.
package ports

import (
	"context"
	"fmt"

	"chatbackend/domain/users"
)

// DuplicateError reports a storage-level unique constraint violation.
// Field names the column that collided (email or username) when the
// driver exposes it, otherwise it is empty.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	if e.Field == "" {
		return "duplicate key"
	}
	return fmt.Sprintf("duplicate %s", e.Field)
}

// UserRepository owns persistence for User records.
//
// Lookup methods return (nil, nil) when no row matches; the service layer
// owns the not-found error taxonomy.
type UserRepository interface {
	Create(ctx context.Context, user *users.User) (*users.User, error)
	FindAll(ctx context.Context) ([]*users.User, error)
	FindByID(ctx context.Context, id int64) (*users.User, error)
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	FindByUsername(ctx context.Context, username string) (*users.User, error)
	// FindByEmailOrUsername returns the first record matching either value.
	// Empty arguments never match.
	FindByEmailOrUsername(ctx context.Context, email, username string) (*users.User, error)
	Update(ctx context.Context, user *users.User) (*users.User, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}
