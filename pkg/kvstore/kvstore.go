package kvstore

import (
	"fmt"
	"strings"
)

// Store is a small key-value store for session state.
type Store interface {
	// Get returns ErrNoSuchKey when the key has no value.
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	// Delete is a no-op for missing keys.
	Delete(key string) error
}

// validateKey accepts flat names only: keys map straight to file names.
func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
