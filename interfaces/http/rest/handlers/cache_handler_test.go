package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"chatbackend/infrastructure/cache"
	apperrors "chatbackend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCacheRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	store := cache.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })
	svc := cache.NewService(store, logger, 300)
	health := cache.NewHealthChecker(svc)
	handler := NewCacheHandler(svc, health, apperrors.NewErrorHandler(logger, false), logger)

	r := chi.NewRouter()
	r.Route("/cache", func(r chi.Router) {
		r.Get("/health", handler.DetailedHealth)
		r.Get("/health/simple", handler.SimpleHealth)
		r.Get("/health/connection", handler.ConnectionHealth)
		r.Get("/keys/generate", handler.GenerateKey)
		r.Get("/test/bulk", handler.BulkTest)
		r.Post("/set", handler.SetValue)
		r.Post("/wrap", handler.Wrap)
		r.Get("/{key}", handler.GetValue)
		r.Delete("/{key}", handler.DeleteValue)
		r.Delete("/", handler.Clear)
	})
	return r
}

func doRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCacheSetThenGet(t *testing.T) {
	router := newCacheRouter(t)

	rec := doRequest(router, http.MethodPost, "/cache/set", `{"key":"greeting","value":"hello","ttl":60}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(router, http.MethodGet, "/cache/greeting", "")
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "greeting", data["key"])
	assert.Equal(t, "hello", data["value"])
	assert.Equal(t, true, data["found"])
}

func TestCacheGet_Missing(t *testing.T) {
	router := newCacheRouter(t)

	rec := doRequest(router, http.MethodGet, "/cache/ghost", "")
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, data["found"])
}

func TestCacheSet_MissingKey(t *testing.T) {
	router := newCacheRouter(t)

	rec := doRequest(router, http.MethodPost, "/cache/set", `{"value":"orphan"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCacheDelete(t *testing.T) {
	router := newCacheRouter(t)

	doRequest(router, http.MethodPost, "/cache/set", `{"key":"doomed","value":1}`)
	rec := doRequest(router, http.MethodDelete, "/cache/doomed", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodGet, "/cache/doomed", "")
	envelope := decodeEnvelope(t, rec)
	data := envelope.Data.(map[string]any)
	assert.Equal(t, false, data["found"])
}

func TestCacheClear(t *testing.T) {
	router := newCacheRouter(t)

	doRequest(router, http.MethodPost, "/cache/set", `{"key":"a","value":1}`)
	doRequest(router, http.MethodPost, "/cache/set", `{"key":"b","value":2}`)

	rec := doRequest(router, http.MethodDelete, "/cache/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	for _, key := range []string{"a", "b"} {
		rec = doRequest(router, http.MethodGet, "/cache/"+key, "")
		envelope := decodeEnvelope(t, rec)
		data := envelope.Data.(map[string]any)
		assert.Equal(t, false, data["found"])
	}
}

func TestCacheWrap(t *testing.T) {
	router := newCacheRouter(t)

	rec := doRequest(router, http.MethodPost, "/cache/wrap", `{"key":"wrapped","data":{"n":42},"ttl":60}`)
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	data := envelope.Data.(map[string]any)
	result, ok := data["result"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 42, result["n"])

	// The computed value is now cached under the key
	rec = doRequest(router, http.MethodGet, "/cache/wrapped", "")
	envelope = decodeEnvelope(t, rec)
	data = envelope.Data.(map[string]any)
	assert.Equal(t, true, data["found"])
}

func TestCacheWrap_ComputeFailure(t *testing.T) {
	router := newCacheRouter(t)

	// A canceled request context makes the delayed compute function fail
	req := httptest.NewRequest(http.MethodPost, "/cache/wrap", bytes.NewBufferString(`{"key":"k","data":1,"ttl":60,"delay":50}`))
	ctx, cancel := context.WithCancel(req.Context())
	cancel()
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "CACHE", envelope.Error.Type)
}

func TestCacheGenerateKey(t *testing.T) {
	router := newCacheRouter(t)

	rec := doRequest(router, http.MethodGet, "/cache/keys/generate?prefix=a&parts=b,,c", "")
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	data := envelope.Data.(map[string]any)
	assert.Equal(t, "a:b:c", data["generatedKey"])
}

func TestCacheBulkTest(t *testing.T) {
	router := newCacheRouter(t)

	rec := doRequest(router, http.MethodGet, "/cache/test/bulk", "")
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	data := envelope.Data.(map[string]any)
	results, ok := data["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 3)
	for _, raw := range results {
		entry := raw.(map[string]any)
		assert.Equal(t, true, entry["match"], "key %v", entry["key"])
	}
}

func TestCacheHealthEndpoints(t *testing.T) {
	router := newCacheRouter(t)

	rec := doRequest(router, http.MethodGet, "/cache/health/simple", "")
	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope.Data.(map[string]any)
	assert.Equal(t, true, data["healthy"])

	rec = doRequest(router, http.MethodGet, "/cache/health/connection", "")
	require.Equal(t, http.StatusOK, rec.Code)
	envelope = decodeEnvelope(t, rec)
	data = envelope.Data.(map[string]any)
	assert.Equal(t, true, data["isConnected"])

	rec = doRequest(router, http.MethodGet, "/cache/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	envelope = decodeEnvelope(t, rec)
	data = envelope.Data.(map[string]any)
	assert.Equal(t, "healthy", data["status"])
}
