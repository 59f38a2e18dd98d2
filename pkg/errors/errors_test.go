package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsSetHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, NewValidationError("bad").HTTPStatus)
	assert.Equal(t, http.StatusNotFound, NewNotFoundError("User").HTTPStatus)
	assert.Equal(t, http.StatusConflict, NewConflictError("dup").HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, NewInternalError("boom").HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, NewDatabaseError("db", nil).HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, NewCacheError("cache", nil).HTTPStatus)
}

func TestNotFoundMessage(t *testing.T) {
	err := NewNotFoundError("User with ID 42")
	assert.Equal(t, "User with ID 42 not found", err.Message)
}

func TestGetAppError_Wrapped(t *testing.T) {
	appErr := NewConflictError("dup")
	wrapped := fmt.Errorf("outer: %w", appErr)

	got := GetAppError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, ErrorTypeConflict, got.Type)

	assert.Nil(t, GetAppError(errors.New("plain")))
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("x")))
	assert.False(t, IsNotFound(NewConflictError("x")))
	assert.True(t, IsConflict(NewConflictError("x")))
	assert.True(t, IsType(NewDatabaseError("x", nil), ErrorTypeDatabase))
	assert.True(t, IsType(NewCacheError("x", nil), ErrorTypeCache))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("root")
	err := NewDatabaseError("db failed", cause)
	assert.ErrorIs(t, err, cause)
}
