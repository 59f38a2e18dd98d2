package cache

import (
	"context"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// Service wraps a Store with serialization, default TTL handling, and the
// failure-swallowing policy: backend errors are logged and callers see a
// cache miss instead of a failure.
type Service struct {
	store      Store
	logger     *zap.Logger
	defaultTTL time.Duration
}

// NewService creates a cache service. defaultTTLSeconds applies whenever a
// caller passes a ttl <= 0.
func NewService(store Store, logger *zap.Logger, defaultTTLSeconds int) *Service {
	return &Service{
		store:      store,
		logger:     logger,
		defaultTTL: time.Duration(defaultTTLSeconds) * time.Second,
	}
}

// Get returns the value stored under key, or found=false on a miss or any
// backend failure.
func (s *Service) Get(ctx context.Context, key string) (any, bool) {
	data, found, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Error("cache get error", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !found {
		s.logger.Debug("cache miss", zap.String("key", key))
		return nil, false
	}

	var value any
	if err := msgpack.Unmarshal(data, &value); err != nil {
		s.logger.Error("cache decode error", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	s.logger.Debug("cache hit", zap.String("key", key))
	return value, true
}

// Set stores value under key with a TTL in seconds (<= 0 uses the default).
// Failures are logged and swallowed.
func (s *Service) Set(ctx context.Context, key string, value any, ttlSeconds int) {
	data, err := msgpack.Marshal(value)
	if err != nil {
		s.logger.Error("cache encode error", zap.String("key", key), zap.Error(err))
		return
	}

	if err := s.store.Set(ctx, key, data, s.ttl(ttlSeconds)); err != nil {
		s.logger.Error("cache set error", zap.String("key", key), zap.Error(err))
		return
	}

	s.logger.Debug("cache set", zap.String("key", key))
}

// Del removes the entry under key. Failures are logged and swallowed.
func (s *Service) Del(ctx context.Context, key string) {
	if err := s.store.Del(ctx, key); err != nil {
		s.logger.Error("cache delete error", zap.String("key", key), zap.Error(err))
		return
	}

	s.logger.Debug("cache deleted", zap.String("key", key))
}

// Reset clears the entire cache namespace. Failures are logged and swallowed.
func (s *Service) Reset(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Error("cache reset error", zap.Error(err))
		return
	}

	s.logger.Info("cache cleared")
}

// Wrap returns the cached value under key or computes it with fn, stores the
// result, and returns it. When the backend read fails, fn is invoked directly
// and its result returned uncached, so callers always get a value as long as
// fn succeeds. There is no at-most-once guarantee for fn under concurrency.
func (s *Service) Wrap(ctx context.Context, key string, ttlSeconds int, fn func(ctx context.Context) (any, error)) (any, error) {
	data, found, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Error("cache wrap error, falling back to direct call",
			zap.String("key", key), zap.Error(err))
		return fn(ctx)
	}

	if found {
		var value any
		if decodeErr := msgpack.Unmarshal(data, &value); decodeErr != nil {
			// Corrupt entry behaves like a miss and gets overwritten below
			s.logger.Error("cache decode error", zap.String("key", key), zap.Error(decodeErr))
		} else {
			s.logger.Debug("cache hit", zap.String("key", key))
			return value, nil
		}
	}

	result, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	s.Set(ctx, key, result, ttlSeconds)
	return result, nil
}

// GenerateKey joins prefix and all non-empty parts with ':'
func (s *Service) GenerateKey(prefix string, parts ...string) string {
	segments := make([]string, 0, len(parts)+1)
	if prefix != "" {
		segments = append(segments, prefix)
	}
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return strings.Join(segments, ":")
}

func (s *Service) ttl(ttlSeconds int) time.Duration {
	if ttlSeconds <= 0 {
		return s.defaultTTL
	}
	return time.Duration(ttlSeconds) * time.Second
}
