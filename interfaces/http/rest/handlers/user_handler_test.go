package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"chatbackend/application/services"
	"chatbackend/domain/users"
	"chatbackend/pkg/common"
	apperrors "chatbackend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubUserService returns canned results per method
type stubUserService struct {
	user   *users.User
	all    []*users.User
	count  int64
	exists bool
	err    error
}

func (s *stubUserService) Create(context.Context, services.CreateUserInput) (*users.User, error) {
	return s.user, s.err
}
func (s *stubUserService) FindAll(context.Context) ([]*users.User, error) { return s.all, s.err }
func (s *stubUserService) FindByID(context.Context, int64) (*users.User, error) {
	return s.user, s.err
}
func (s *stubUserService) FindByEmail(context.Context, string) (*users.User, error) {
	return s.user, s.err
}
func (s *stubUserService) FindByUsername(context.Context, string) (*users.User, error) {
	return s.user, s.err
}
func (s *stubUserService) Update(context.Context, int64, services.UpdateUserInput) (*users.User, error) {
	return s.user, s.err
}
func (s *stubUserService) Delete(context.Context, int64) error    { return s.err }
func (s *stubUserService) Count(context.Context) (int64, error)   { return s.count, s.err }
func (s *stubUserService) Exists(context.Context, int64) (bool, error) {
	return s.exists, s.err
}

func newUserRouter(svc UserService) http.Handler {
	logger := zap.NewNop()
	handler := NewUserHandler(svc, apperrors.NewErrorHandler(logger, false), logger)

	r := chi.NewRouter()
	r.Post("/users", handler.Create)
	r.Get("/users", handler.List)
	r.Get("/users/count", handler.Count)
	r.Get("/users/{id}", handler.GetByID)
	r.Get("/users/{id}/exists", handler.Exists)
	r.Get("/users/email/{email}", handler.GetByEmail)
	r.Get("/users/username/{username}", handler.GetByUsername)
	r.Patch("/users/{id}", handler.Update)
	r.Delete("/users/{id}", handler.Delete)
	return r
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) common.APIResponse {
	t.Helper()
	var envelope common.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func alice() *users.User {
	return &users.User{ID: 1, Username: "alice", Email: "alice@example.com", PasswordHash: "$2a$10$hash"}
}

func TestCreateUser_Success(t *testing.T) {
	router := newUserRouter(&stubUserService{user: alice()})

	body := `{"username":"alice","email":"alice@example.com","password":"pw123456"}`
	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.True(t, envelope.Success)

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, data["id"])
	assert.Equal(t, "alice", data["username"])
	assert.Equal(t, "alice@example.com", data["email"])
	assert.NotContains(t, rec.Body.String(), "hash", "password hash must not be serialized")
}

func TestCreateUser_InvalidJSON(t *testing.T) {
	router := newUserRouter(&stubUserService{user: alice()})

	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(`{not json`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, string(apperrors.ErrorTypeValidation), envelope.Error.Type)
}

func TestCreateUser_ValidationFailure(t *testing.T) {
	router := newUserRouter(&stubUserService{user: alice()})

	body := `{"username":"ab","email":"alice@example.com","password":"pw"}`
	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Contains(t, envelope.Error.Message, "username")
}

func TestCreateUser_Conflict(t *testing.T) {
	router := newUserRouter(&stubUserService{
		err: apperrors.NewConflictError("User with this email already exists"),
	})

	body := `{"username":"alice","email":"alice@example.com","password":"pw123456"}`
	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, string(apperrors.ErrorTypeConflict), envelope.Error.Type)
	assert.Contains(t, envelope.Error.Message, "email")
}

func TestGetUser_NotFound(t *testing.T) {
	router := newUserRouter(&stubUserService{
		err: apperrors.NewNotFoundError("User with ID 99"),
	})

	req := httptest.NewRequest(http.MethodGet, "/users/99", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, string(apperrors.ErrorTypeNotFound), envelope.Error.Type)
}

func TestGetUser_NonNumericID(t *testing.T) {
	router := newUserRouter(&stubUserService{user: alice()})

	req := httptest.NewRequest(http.MethodGet, "/users/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListUsers(t *testing.T) {
	router := newUserRouter(&stubUserService{
		all: []*users.User{alice(), {ID: 2, Username: "bob", Email: "bob@example.com"}},
	})

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data, ok := envelope.Data.([]any)
	require.True(t, ok)
	assert.Len(t, data, 2)
}

func TestUserCount(t *testing.T) {
	router := newUserRouter(&stubUserService{count: 7})

	req := httptest.NewRequest(http.MethodGet, "/users/count", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 7, data["count"])
}

func TestDeleteUser_NoContent(t *testing.T) {
	router := newUserRouter(&stubUserService{})

	req := httptest.NewRequest(http.MethodDelete, "/users/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestUserExists(t *testing.T) {
	for _, exists := range []bool{true, false} {
		router := newUserRouter(&stubUserService{exists: exists})

		req := httptest.NewRequest(http.MethodGet, "/users/1/exists", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		envelope := decodeEnvelope(t, rec)
		data, ok := envelope.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, exists, data["exists"], fmt.Sprintf("exists=%v", exists))
	}
}

func TestUpdateUser_PartialBody(t *testing.T) {
	updated := alice()
	updated.Email = "new@example.com"
	router := newUserRouter(&stubUserService{user: updated})

	req := httptest.NewRequest(http.MethodPatch, "/users/1", bytes.NewBufferString(`{"email":"new@example.com"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "new@example.com", data["email"])
}
