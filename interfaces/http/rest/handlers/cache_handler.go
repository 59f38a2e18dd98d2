package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"chatbackend/infrastructure/cache"
	"chatbackend/pkg/common"
	apperrors "chatbackend/pkg/errors"
	"chatbackend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxCacheBodyBytes = 1 << 20

// CacheHandler exposes the cache wrapper and health checker over HTTP
type CacheHandler struct {
	cache  *cache.Service
	health *cache.HealthChecker
	errors *apperrors.ErrorHandler
	logger *zap.Logger
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cacheService *cache.Service, health *cache.HealthChecker, errHandler *apperrors.ErrorHandler, logger *zap.Logger) *CacheHandler {
	return &CacheHandler{
		cache:  cacheService,
		health: health,
		errors: errHandler,
		logger: logger,
	}
}

// SetCacheRequest represents the body for POST /cache/set
type SetCacheRequest struct {
	Key   string `json:"key" validate:"required"`
	Value any    `json:"value"`
	TTL   int    `json:"ttl,omitempty" validate:"omitempty,min=1"`
}

// WrapRequest represents the body for POST /cache/wrap. Delay simulates a
// slow compute function in milliseconds.
type WrapRequest struct {
	Key   string `json:"key" validate:"required"`
	Data  any    `json:"data"`
	TTL   int    `json:"ttl,omitempty" validate:"omitempty,min=1"`
	Delay int    `json:"delay,omitempty" validate:"omitempty,min=0,max=10000"`
}

// GetValue handles GET /cache/{key}
func (h *CacheHandler) GetValue(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, found := h.cache.Get(r.Context(), key)

	common.RespondJSON(w, http.StatusOK, map[string]any{
		"key":   key,
		"value": value,
		"found": found,
	})
}

// SetValue handles POST /cache/set
func (h *CacheHandler) SetValue(w http.ResponseWriter, r *http.Request) {
	var req SetCacheRequest
	if err := common.ParseJSONBody(r, &req, maxCacheBodyBytes); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("Invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	h.cache.Set(r.Context(), req.Key, req.Value, req.TTL)

	common.RespondJSON(w, http.StatusCreated, map[string]any{
		"message": "Value set successfully",
		"key":     req.Key,
		"ttl":     req.TTL,
	})
}

// DeleteValue handles DELETE /cache/{key}
func (h *CacheHandler) DeleteValue(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	h.cache.Del(r.Context(), key)

	common.RespondJSON(w, http.StatusOK, map[string]any{
		"message": "Value deleted successfully",
		"key":     key,
	})
}

// Clear handles DELETE /cache
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.cache.Reset(r.Context())

	common.RespondJSON(w, http.StatusOK, map[string]any{
		"message": "Cache cleared successfully",
	})
}

// Wrap handles POST /cache/wrap, a compute-or-cache test endpoint
func (h *CacheHandler) Wrap(w http.ResponseWriter, r *http.Request) {
	var req WrapRequest
	if err := common.ParseJSONBody(r, &req, maxCacheBodyBytes); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("Invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	result, err := h.cache.Wrap(r.Context(), req.Key, req.TTL, func(ctx context.Context) (any, error) {
		if req.Delay > 0 {
			select {
			case <-time.After(time.Duration(req.Delay) * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return req.Data, nil
	})
	if err != nil {
		h.errors.Handle(w, r, apperrors.NewCacheError("wrap compute failed", err))
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]any{
		"message": "Wrap operation completed",
		"key":     req.Key,
		"result":  result,
		"ttl":     req.TTL,
	})
}

// GenerateKey handles GET /cache/keys/generate?prefix=a&parts=b,c
func (h *CacheHandler) GenerateKey(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	partsParam := r.URL.Query().Get("parts")

	var parts []string
	if partsParam != "" {
		parts = strings.Split(partsParam, ",")
	}

	common.RespondJSON(w, http.StatusOK, map[string]any{
		"prefix":       prefix,
		"parts":        parts,
		"generatedKey": h.cache.GenerateKey(prefix, parts...),
	})
}

// BulkTest handles GET /cache/test/bulk, round-tripping a few fixture entries
func (h *CacheHandler) BulkTest(w http.ResponseWriter, r *http.Request) {
	fixtures := []struct {
		key   string
		value any
		ttl   int
	}{
		{"test:1", "Hello World", 60},
		{"test:2", map[string]any{"message": "Object test", "number": 42}, 120},
		{"test:3", []int{1, 2, 3, 4, 5}, 180},
	}

	results := make([]map[string]any, 0, len(fixtures))
	for _, item := range fixtures {
		h.cache.Set(r.Context(), item.key, item.value, item.ttl)
		retrieved, _ := h.cache.Get(r.Context(), item.key)

		results = append(results, map[string]any{
			"key":       item.key,
			"original":  item.value,
			"retrieved": retrieved,
			"match":     jsonEqual(item.value, retrieved),
			"ttl":       item.ttl,
		})
	}

	common.RespondJSON(w, http.StatusOK, map[string]any{
		"message": "Bulk test completed",
		"results": results,
	})
}

// DetailedHealth handles GET /cache/health
func (h *CacheHandler) DetailedHealth(w http.ResponseWriter, r *http.Request) {
	status := h.health.DetailedStatus(r.Context())

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	common.RespondJSON(w, code, status)
}

// SimpleHealth handles GET /cache/health/simple
func (h *CacheHandler) SimpleHealth(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]bool{
		"healthy": h.health.IsHealthy(r.Context()),
	})
}

// ConnectionHealth handles GET /cache/health/connection
func (h *CacheHandler) ConnectionHealth(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, h.health.ConnectionStatus(r.Context()))
}

func jsonEqual(a, b any) bool {
	aJSON, errA := json.Marshal(a)
	bJSON, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aJSON) == string(bJSON)
}
