package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// HealthChecker runs write/read/delete round-trips through the cache service
// to report backend connectivity. Because the service swallows backend
// errors, an unreachable backend shows up as a failed read-back rather than
// an error.
type HealthChecker struct {
	cache *Service
}

// ConnectionStatus reports the outcome of a timed health probe
type ConnectionStatus struct {
	IsConnected  bool   `json:"isConnected"`
	ResponseTime int64  `json:"responseTime"` // milliseconds
	Error        string `json:"error,omitempty"`
}

// DetailedStatus reports a structured health probe with sub-checks
type DetailedStatus struct {
	Status    string       `json:"status"` // healthy or unhealthy
	Timestamp string       `json:"timestamp"`
	Checks    HealthChecks `json:"checks"`
	Error     string       `json:"error,omitempty"`
}

// HealthChecks holds the individual probe outcomes
type HealthChecks struct {
	Connection   bool  `json:"connection"`
	ReadWrite    bool  `json:"readWrite"`
	ResponseTime int64 `json:"responseTime"` // milliseconds
}

// NewHealthChecker creates a health checker over the given cache service
func NewHealthChecker(cache *Service) *HealthChecker {
	return &HealthChecker{cache: cache}
}

// IsHealthy writes a sentinel value, reads it back, deletes it, and reports
// whether the round-trip returned what was written. It never fails: any
// backend problem yields false.
func (h *HealthChecker) IsHealthy(ctx context.Context) bool {
	testKey := "health_check"
	testValue := "ok"

	h.cache.Set(ctx, testKey, testValue, 10)
	result, _ := h.cache.Get(ctx, testKey)
	h.cache.Del(ctx, testKey)

	return result == testValue
}

// ConnectionStatus times IsHealthy and reports connectivity plus latency
func (h *HealthChecker) ConnectionStatus(ctx context.Context) ConnectionStatus {
	start := time.Now()
	healthy := h.IsHealthy(ctx)

	return ConnectionStatus{
		IsConnected:  healthy,
		ResponseTime: time.Since(start).Milliseconds(),
	}
}

// DetailedStatus performs a structured-payload round-trip and compares
// serialized equality, reporting per-check outcomes.
func (h *HealthChecker) DetailedStatus(ctx context.Context) DetailedStatus {
	timestamp := time.Now().UTC().Format(time.RFC3339)
	start := time.Now()

	// Unique sentinel key so concurrent probes cannot interfere
	testKey := "detailed_health_check:" + uuid.NewString()
	testValue := map[string]any{
		"test":      true,
		"timestamp": timestamp,
	}

	h.cache.Set(ctx, testKey, testValue, 30)
	result, found := h.cache.Get(ctx, testKey)
	h.cache.Del(ctx, testKey)

	responseTime := time.Since(start).Milliseconds()
	readWrite := found && serializedEqual(result, testValue)

	status := DetailedStatus{
		Timestamp: timestamp,
		Checks: HealthChecks{
			Connection:   found,
			ReadWrite:    readWrite,
			ResponseTime: responseTime,
		},
	}
	if readWrite {
		status.Status = "healthy"
	} else {
		status.Status = "unhealthy"
		status.Error = "cache read/write round-trip failed"
	}

	return status
}

// serializedEqual compares two values by their JSON encoding, which tolerates
// the map/slice type differences introduced by the cache codec.
func serializedEqual(a, b any) bool {
	aJSON, errA := json.Marshal(a)
	bJSON, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(aJSON, bJSON)
}
