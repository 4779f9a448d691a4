package storage

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Entry represents a stored object or directory.
type Entry struct {
	Name  string
	Path  string
	IsDir bool
	Size  int64
}

// Storage is a key/value blob store rooted at one location. Keys use forward
// slashes and are always relative to the root.
type Storage interface {
	// Put writes data under key, replacing any previous content.
	Put(ctx context.Context, key string, data []byte) error
	// Get returns ErrNotFound when key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes a single object.
	Delete(ctx context.Context, key string) error
	// DeleteDir recursively removes everything under dir.
	DeleteDir(ctx context.Context, dir string) error
	// Exists checks if an object or directory exists.
	Exists(ctx context.Context, key string) bool
	// List returns the entries directly under dir.
	List(ctx context.Context, dir string) ([]Entry, error)
	// Location returns where key lives: an absolute path or an s3:// URI.
	Location(key string) string
}

// Scheme identifies a storage backend in a location string.
type Scheme string

const (
	SchemeFile Scheme = "file"
	SchemeS3   Scheme = "s3"
)

// Location is a parsed storage location.
type Location struct {
	Scheme Scheme
	Path   string // filesystem path for file, bucket for s3
	Prefix string // key prefix for s3
}

func (l Location) String() string {
	switch l.Scheme {
	case SchemeS3:
		if l.Prefix == "" {
			return "s3://" + l.Path
		}
		return "s3://" + l.Path + "/" + l.Prefix
	default:
		return l.Path
	}
}

// ParseLocation accepts a plain filesystem path, a file:// URL or an
// s3://bucket/prefix URL. Filesystem paths are made absolute.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("%w: empty location", ErrInvalidLocation)
	}

	if !strings.Contains(raw, "://") {
		abs, err := filepath.Abs(raw)
		if err != nil {
			return Location{}, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
		}
		return Location{Scheme: SchemeFile, Path: abs}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}

	switch Scheme(strings.ToLower(u.Scheme)) {
	case SchemeFile:
		if u.Path == "" {
			return Location{}, fmt.Errorf("%w: file url without path", ErrInvalidLocation)
		}
		return Location{Scheme: SchemeFile, Path: filepath.Clean(filepath.FromSlash(u.Path))}, nil
	case SchemeS3:
		if u.Host == "" {
			return Location{}, fmt.Errorf("%w: s3 url without bucket", ErrInvalidLocation)
		}
		prefix := strings.Trim(u.Path, "/")
		if strings.Contains(prefix, "..") {
			return Location{}, fmt.Errorf("%w: %s", ErrInvalidPath, prefix)
		}
		return Location{Scheme: SchemeS3, Path: u.Host, Prefix: prefix}, nil
	default:
		return Location{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocation, u.Scheme)
	}
}

// cleanKey normalizes a key and rejects traversal outside the root.
func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(filepath.ToSlash(key), "/")
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %s", ErrInvalidPath, key)
		}
	}
	return key, nil
}
