// Package cache provides the TTL key/value store backing the research
// pipeline: cached search results, fetched page content, and final answers,
// each under its own logical namespace.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Aiden-Hyun/deepanswer/internal/metrics"
)

// Namespace identifies one of the logical cache namespaces.
type Namespace string

const (
	NamespaceSearch Namespace = "search"
	NamespacePage   Namespace = "page"
	NamespaceAnswer Namespace = "answer"
)

// ErrNotFound is returned when a key is absent or expired.
var ErrNotFound = errors.New("cache: key not found")

// Store is a Redis-backed TTL store.
type Store struct {
	client *redis.Client
	logger *zap.Logger
}

// New connects to Redis and verifies the connection.
func New(addr, password string, db int, logger *zap.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client, logger: logger}, nil
}

// NewWithClient wraps an existing client; used by tests with miniredis.
func NewWithClient(client *redis.Client, logger *zap.Logger) *Store {
	return &Store{client: client, logger: logger}
}

func redisKey(ns Namespace, key string) string {
	return fmt.Sprintf("deepanswer:%s:%s", ns, key)
}

// Get unmarshals the cached JSON value for key into dest. Returns
// ErrNotFound on a miss.
func (s *Store) Get(ctx context.Context, ns Namespace, key string, dest interface{}) error {
	raw, err := s.client.Get(ctx, redisKey(ns, key)).Result()
	if errors.Is(err, redis.Nil) {
		metrics.CacheRequests.WithLabelValues(string(ns), "miss").Inc()
		return ErrNotFound
	}
	if err != nil {
		metrics.CacheRequests.WithLabelValues(string(ns), "error").Inc()
		return fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		metrics.CacheRequests.WithLabelValues(string(ns), "error").Inc()
		return fmt.Errorf("cache decode: %w", err)
	}
	metrics.CacheRequests.WithLabelValues(string(ns), "hit").Inc()
	return nil
}

// Set marshals value as JSON and stores it with the given TTL. A zero TTL
// stores without expiry.
func (s *Store) Set(ctx context.Context, ns Namespace, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(ns, key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
