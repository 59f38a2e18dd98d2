// Package middleware holds the HTTP middleware chain, most notably the
// request logger that threads a correlation id through logs and responses.
package middleware

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader is the response header carrying the correlation id
const RequestIDHeader = "X-Request-ID"

// maxLoggedBodyBytes caps how much of a request body is read for logging
const maxLoggedBodyBytes = 64 * 1024

// slowRequestThreshold triggers a dedicated warning on top of the completion log
const slowRequestThreshold = time.Second

type contextKey string

const requestIDKey contextKey = "request_id"

// sensitiveFields drive redaction of headers and body fields; matching is a
// case-insensitive substring check on the field name.
var sensitiveFields = []string{
	"authorization",
	"cookie",
	"x-api-key",
	"password",
	"token",
	"secret",
	"key",
	"auth",
	"credentials",
}

const redactionMarker = "[REDACTED]"

// GetRequestID returns the correlation id attached to the request context,
// or an empty string when the logging middleware did not run.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// RequestLogger creates the request logging middleware. Every request gets a
// correlation id (context value plus X-Request-ID response header), an
// arrival log with redacted headers/body, and a completion log with status,
// latency, and a performance category. A request that panics is logged as
// aborted, with the correlation id and elapsed time, before re-panicking.
func RequestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := generateRequestID()

			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			r = r.WithContext(ctx)
			w.Header().Set(RequestIDHeader, requestID)

			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("ip", clientIP(r)),
				zap.String("user_agent", r.UserAgent()),
				zap.Int64("content_length", r.ContentLength),
				zap.Any("headers", redactedHeaders(r.Header)),
			}
			if body := loggableBody(r); body != nil {
				fields = append(fields, zap.Any("body", body))
			}
			logger.Info("incoming request", fields...)

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// Completion logging runs in a defer so an aborted request still
			// leaves a terminal record with the correlation id and latency.
			defer func() {
				duration := time.Since(start)

				if rec := recover(); rec != nil {
					logger.Error("request aborted",
						zap.String("request_id", requestID),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Any("panic", rec),
						zap.Duration("duration", duration),
					)
					// Recovery middleware further up the chain owns the response
					panic(rec)
				}

				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				completion := []zap.Field{
					zap.String("request_id", requestID),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", duration),
					zap.String("performance", categorizePerformance(duration)),
				}

				switch {
				case status >= http.StatusInternalServerError:
					logger.Error("request completed", completion...)
				case status >= http.StatusBadRequest:
					logger.Warn("request completed", completion...)
				default:
					logger.Info("request completed", completion...)
				}

				if duration > slowRequestThreshold {
					logger.Warn("slow response detected",
						zap.String("request_id", requestID),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Duration("duration", duration),
						zap.Duration("threshold", slowRequestThreshold),
					)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// generateRequestID returns 16 hex characters of randomness
func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()[:16]
	}
	return hex.EncodeToString(b)
}

// clientIP prefers proxy-set headers over the raw socket address
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.IndexByte(forwarded, ','); idx >= 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

// redactedHeaders flattens headers into a map with sensitive values masked
func redactedHeaders(headers http.Header) map[string]string {
	result := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			result[name] = redactionMarker
		} else {
			result[name] = strings.Join(values, ", ")
		}
	}
	return result
}

// loggableBody returns a redacted view of a JSON request body for mutating
// methods, or nil when there is nothing to log. The body is restored on the
// request so handlers can read it normally.
func loggableBody(r *http.Request) map[string]any {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return nil
	}
	if r.Body == nil {
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxLoggedBodyBytes))
	remainder := r.Body
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(data), remainder), remainder}

	if err != nil || len(data) == 0 {
		return nil
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil || len(parsed) == 0 {
		return nil
	}

	return redactFields(parsed)
}

// redactFields masks values whose field name matches the sensitivity list
func redactFields(data map[string]any) map[string]any {
	filtered := make(map[string]any, len(data))
	for key, value := range data {
		if isSensitive(key) {
			filtered[key] = redactionMarker
			continue
		}
		if nested, ok := value.(map[string]any); ok {
			filtered[key] = redactFields(nested)
			continue
		}
		filtered[key] = value
	}
	return filtered
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}

// categorizePerformance buckets a request duration for log filtering
func categorizePerformance(d time.Duration) string {
	switch {
	case d < 100*time.Millisecond:
		return "excellent"
	case d < 300*time.Millisecond:
		return "good"
	case d < time.Second:
		return "acceptable"
	case d < 2*time.Second:
		return "slow"
	default:
		return "very_slow"
	}
}
