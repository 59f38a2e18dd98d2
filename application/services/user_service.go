// Package services contains the application-level business logic. This file
// implements UserService, the record store owning user validation, uniqueness
// rules, and password hashing.
package services

import (
	"context"
	"errors"
	"fmt"

	"chatbackend/application/ports"
	"chatbackend/domain/users"
	apperrors "chatbackend/pkg/errors"
	"chatbackend/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the salt rounds used by the original deployment; changing
// it only affects newly hashed passwords.
const bcryptCost = 10

// CreateUserInput carries the fields required to create a user
type CreateUserInput struct {
	Username string `validate:"required,min=3,max=50"`
	Email    string `validate:"required,email,max=100"`
	Password string `validate:"required"`
}

// UpdateUserInput carries a partial update; nil fields are left untouched
type UpdateUserInput struct {
	Username *string `validate:"omitempty,min=3,max=50"`
	Email    *string `validate:"omitempty,email,max=100"`
	Password *string `validate:"omitempty,min=1"`
}

// UserService provides user CRUD with uniqueness enforcement. Uniqueness is
// probed with an explicit read before the write so conflicts can name the
// colliding field; the storage-level unique constraints are the backstop for
// concurrent duplicate submissions.
type UserService struct {
	repo   ports.UserRepository
	logger *zap.Logger
}

// NewUserService constructs a UserService
func NewUserService(repo ports.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

// Create validates the input, rejects email/username collisions, hashes the
// password, and persists the new user.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*users.User, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	existing, err := s.repo.FindByEmailOrUsername(ctx, input.Email, input.Username)
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to check existing users", err)
	}
	if existing != nil {
		// Email takes precedence when the probe row collides on both fields
		if existing.Email == input.Email {
			return nil, apperrors.NewConflictError("User with this email already exists")
		}
		return nil, apperrors.NewConflictError("User with this username already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password").WithCause(err)
	}

	user := &users.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, s.translateWriteError(err, "failed to create user")
	}

	s.logger.Info("user created",
		zap.Int64("user_id", created.ID),
		zap.String("username", created.Username),
	)

	return created, nil
}

// FindAll returns every user record
func (s *UserService) FindAll(ctx context.Context) ([]*users.User, error) {
	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to list users", err)
	}
	return all, nil
}

// FindByID returns the user with the given id or a not found error
func (s *UserService) FindByID(ctx context.Context, id int64) (*users.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to find user", err)
	}
	if user == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("User with ID %d", id))
	}
	return user, nil
}

// FindByEmail returns the user with the given email or a not found error
func (s *UserService) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to find user", err)
	}
	if user == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("User with email %s", email))
	}
	return user, nil
}

// FindByUsername returns the user with the given username or a not found error
func (s *UserService) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to find user", err)
	}
	if user == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("User with username %s", username))
	}
	return user, nil
}

// FindByEmailOrUsername returns the user matching the identifier as either
// email or username, or nil without an error when nothing matches.
func (s *UserService) FindByEmailOrUsername(ctx context.Context, identifier string) (*users.User, error) {
	user, err := s.repo.FindByEmailOrUsername(ctx, identifier, identifier)
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to find user", err)
	}
	return user, nil
}

// Update applies a partial update to an existing user. Changed email/username
// values are re-probed for collisions against other records; a present
// password is re-hashed.
func (s *UserService) Update(ctx context.Context, id int64, input UpdateUserInput) (*users.User, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	existing, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil || input.Username != nil {
		probeEmail := ""
		if input.Email != nil {
			probeEmail = *input.Email
		}
		probeUsername := ""
		if input.Username != nil {
			probeUsername = *input.Username
		}

		conflict, err := s.repo.FindByEmailOrUsername(ctx, probeEmail, probeUsername)
		if err != nil {
			return nil, apperrors.NewDatabaseError("failed to check existing users", err)
		}
		if conflict != nil && conflict.ID != id {
			if input.Email != nil && conflict.Email == *input.Email {
				return nil, apperrors.NewConflictError("User with this email already exists")
			}
			return nil, apperrors.NewConflictError("User with this username already exists")
		}
	}

	if input.Username != nil {
		existing.Username = *input.Username
	}
	if input.Email != nil {
		existing.Email = *input.Email
	}
	if input.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to hash password").WithCause(err)
		}
		existing.PasswordHash = string(hash)
	}

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return nil, s.translateWriteError(err, "failed to update user")
	}
	if updated == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("User with ID %d", id))
	}

	return updated, nil
}

// Delete removes a user permanently, failing with not found when absent
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return apperrors.NewDatabaseError("failed to delete user", err)
	}

	s.logger.Info("user deleted", zap.Int64("user_id", id))
	return nil
}

// VerifyPassword reports whether plain hashes to the stored bcrypt hash.
// Mismatched or malformed input yields false, never an error.
func (s *UserService) VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Count returns the total number of user records
func (s *UserService) Count(ctx context.Context) (int64, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, apperrors.NewDatabaseError("failed to count users", err)
	}
	return count, nil
}

// Exists reports whether a user with the given id exists. Only a not found
// outcome maps to false; other failures propagate.
func (s *UserService) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := s.FindByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// translateWriteError maps storage duplicate-key errors to conflicts so the
// unique constraints surface the same taxonomy as the pre-check probe.
func (s *UserService) translateWriteError(err error, message string) error {
	var dup *ports.DuplicateError
	if errors.As(err, &dup) {
		switch dup.Field {
		case "email":
			return apperrors.NewConflictError("User with this email already exists")
		case "username":
			return apperrors.NewConflictError("User with this username already exists")
		default:
			return apperrors.NewConflictError("User with this email or username already exists")
		}
	}
	return apperrors.NewDatabaseError(message, err)
}
