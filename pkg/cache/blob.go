package cache

import (
	"context"
	"time"
)

// BlobStore keeps encoded payloads, typically rendered PNGs, that may be shared
// between processes.
type BlobStore interface {
	// Get returns ErrBlobNotFound when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// MemoryBlobStore is a process-local BlobStore backed by an LRUCache.
type MemoryBlobStore struct {
	lru *LRUCache[string, []byte]
}

// NewMemoryBlobStore creates a store holding at most capacity blobs.
func NewMemoryBlobStore(capacity int, opts ...LRUOption) *MemoryBlobStore {
	return &MemoryBlobStore{lru: NewLRUCache[string, []byte](capacity, opts...)}
}

func (s *MemoryBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := s.lru.Get(key)
	if !ok {
		return nil, ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

// Set stores a copy of data. Per-call ttl is ignored; configure the TTL on the
// underlying LRU with WithTTL instead.
func (s *MemoryBlobStore) Set(ctx context.Context, key string, data []byte, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.lru.Put(key, append([]byte(nil), data...))
	return nil
}

func (s *MemoryBlobStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.lru.Remove(key)
	return nil
}
