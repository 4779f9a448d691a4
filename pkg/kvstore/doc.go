// Package kvstore holds the small amount of state a Session persists between
// runs, such as the sealed user token.
//
// FS keeps one file per key under a directory and guards every access with an
// advisory file lock (github.com/rogpeppe/go-internal/lockedfile), so that two
// processes sharing a persistent directory do not corrupt each other. Memory
// is the in-process variant used by ephemeral sessions.
//
// Keys are flat names; separators and dot segments are rejected with
// ErrInvalidKey. Missing keys return an error matching ErrNoSuchKey.
package kvstore
