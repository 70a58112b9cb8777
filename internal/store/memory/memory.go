// Package memory provides a bounded in-memory store.Store implementation
// backed by github.com/hashicorp/golang-lru/v2.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/standardbeagle/figma-bridge/internal/store"
)

const (
	// DefaultMaxItems bounds the cache so an abandoned-session pileup
	// cannot grow without limit.
	DefaultMaxItems = 4096

	cleanupInterval = 5 * time.Minute
)

type item struct {
	value     []byte
	expiresAt time.Time // zero = no expiration
}

func (it *item) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && now.After(it.expiresAt)
}

// Store implements store.Store using an LRU cache with TTL support.
type Store struct {
	mu    sync.RWMutex
	cache *lru.Cache[string, *item]
	stop  chan struct{}
	once  sync.Once
}

// New creates an in-memory store holding at most maxItems entries.
func New(maxItems int) (*Store, error) {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	cache, err := lru.New[string, *item](maxItems)
	if err != nil {
		return nil, fmt.Errorf("creating LRU cache: %w", err)
	}

	s := &Store{
		cache: cache,
		stop:  make(chan struct{}),
	}
	go s.cleanupExpired()
	return s, nil
}

// Get retrieves the value for key, dropping it if expired.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	it, ok := s.cache.Get(key)
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if it.expired(time.Now()) {
		s.mu.Lock()
		s.cache.Remove(key)
		s.mu.Unlock()
		return nil, nil
	}

	out := make([]byte, len(it.value))
	copy(out, it.value)
	return out, nil
}

// Set stores value under key with an optional ttl.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	it := &item{value: make([]byte, len(value))}
	copy(it.value, value)
	if ttl > 0 {
		it.expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	s.cache.Add(key, it)
	s.mu.Unlock()
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	s.cache.Remove(key)
	s.mu.Unlock()
	return nil
}

// Close purges the cache and stops the background sweep.
func (s *Store) Close() error {
	s.once.Do(func() { close(s.stop) })
	s.mu.Lock()
	s.cache.Purge()
	s.mu.Unlock()
	return nil
}

func (s *Store) cleanupExpired() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for _, key := range s.cache.Keys() {
				if it, ok := s.cache.Peek(key); ok && it.expired(now) {
					s.cache.Remove(key)
				}
			}
			s.mu.Unlock()
		}
	}
}

var _ store.Store = (*Store)(nil)
