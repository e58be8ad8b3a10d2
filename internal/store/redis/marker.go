// Package redis stores the last-download marker in Redis, behind a circuit
// breaker so an unreachable server fails fast.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bhavcopy-calendar/internal/store"

	goredis "github.com/go-redis/redis/v8"
)

// Config configures the Redis marker store.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
	// Prefix namespaces the marker key, e.g. "user:42:".
	Prefix string
}

// MarkerStore implements store.MarkerStore on a single Redis string key.
type MarkerStore struct {
	client  *goredis.Client
	key     string
	breaker *CircuitBreaker
}

var _ store.MarkerStore = (*MarkerStore)(nil)

// New connects to Redis, pings it, and returns a marker store.
func New(cfg Config) (*MarkerStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return NewWithClient(client, cfg.Prefix), nil
}

// NewWithClient wraps an existing client without pinging it.
func NewWithClient(client *goredis.Client, prefix string) *MarkerStore {
	return &MarkerStore{
		client:  client,
		key:     prefix + store.MarkerKey,
		breaker: NewCircuitBreaker(5, 10*time.Second),
	}
}

// Client returns the underlying Redis client for health checks.
func (s *MarkerStore) Client() *goredis.Client { return s.client }

// Breaker exposes the circuit breaker so callers can observe transitions.
func (s *MarkerStore) Breaker() *CircuitBreaker { return s.breaker }

// Key returns the Redis key the marker is stored under.
func (s *MarkerStore) Key() string { return s.key }

func (s *MarkerStore) Get(ctx context.Context) (string, error) {
	var (
		val   string
		found bool
	)
	err := s.breaker.Execute(func() error {
		v, err := s.client.Get(ctx, s.key).Result()
		if errors.Is(err, goredis.Nil) {
			// A missing key is an answer, not a Redis failure.
			return nil
		}
		if err != nil {
			return err
		}
		val, found = v, true
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", s.key, err)
	}
	if !found {
		return "", store.ErrNoMarker
	}
	return val, nil
}

func (s *MarkerStore) Set(ctx context.Context, value string) error {
	err := s.breaker.Execute(func() error {
		return s.client.Set(ctx, s.key, value, 0).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *MarkerStore) Delete(ctx context.Context) error {
	err := s.breaker.Execute(func() error {
		return s.client.Del(ctx, s.key).Err()
	})
	if err != nil {
		return fmt.Errorf("redis del %s: %w", s.key, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *MarkerStore) Close() error {
	return s.client.Close()
}
