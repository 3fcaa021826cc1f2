package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/frotaviva/trip-compliance/internal/cache"
)

// Store adapts Client to cache.Interface, applying a per-operation
// timeout so a slow cache cannot stall a request indefinitely.
type Store struct {
	cli     *Client
	timeout time.Duration
}

func NewStore(cli *Client, opTimeout time.Duration) *Store {
	return &Store{cli: cli, timeout: opTimeout}
}

var _ cache.Interface = (*Store)(nil)

func (s *Store) withTimeout() (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Store) Get(key string) ([]byte, bool, error) {
	ctx, cancel := s.withTimeout()
	defer cancel()
	v, ok, err := s.cli.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return v, ok, nil
}

func (s *Store) Set(key string, val []byte, ttl time.Duration) error {
	ctx, cancel := s.withTimeout()
	defer cancel()
	if err := s.cli.Set(ctx, key, val, ttl); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

func (s *Store) FlushPrefix(prefix string) error {
	// flushes may scan many keys; give them more room than point ops
	timeout := s.timeout * 10
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.cli.FlushPrefix(ctx, prefix); err != nil {
		return fmt.Errorf("cache flush %q: %w", prefix, err)
	}
	return nil
}
