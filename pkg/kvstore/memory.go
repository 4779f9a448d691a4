package kvstore

import (
	"fmt"
	"slices"
	"sync"
)

// Memory is an in-memory Store. The zero value is ready to use.
type Memory struct {
	mu sync.Mutex
	m  map[string][]byte
}

var _ Store = (*Memory)(nil)

func (kvs *Memory) Get(key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	kvs.mu.Lock()
	defer kvs.mu.Unlock()
	value, ok := kvs.m[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchKey, key)
	}
	return slices.Clone(value), nil
}

func (kvs *Memory) Set(key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	kvs.mu.Lock()
	defer kvs.mu.Unlock()
	if kvs.m == nil {
		kvs.m = make(map[string][]byte)
	}
	kvs.m[key] = slices.Clone(value)
	return nil
}

func (kvs *Memory) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	kvs.mu.Lock()
	defer kvs.mu.Unlock()
	delete(kvs.m, key)
	return nil
}

// Len returns the number of stored keys.
func (kvs *Memory) Len() int {
	kvs.mu.Lock()
	defer kvs.mu.Unlock()
	return len(kvs.m)
}
