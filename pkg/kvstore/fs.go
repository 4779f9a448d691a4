package kvstore

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rogpeppe/go-internal/lockedfile"
)

// FS is a file-system based Store. Each key is one file under basedir,
// read and written under an advisory file lock so that several processes
// sharing a persistent directory never observe torn values.
type FS struct {
	basedir string
}

var _ Store = (*FS)(nil)

// NewFS creates basedir (mode 0700) if needed and returns a store rooted there.
func NewFS(basedir string) (*FS, error) {
	return newFS(basedir, os.MkdirAll)
}

type osMkdirAll func(path string, perm fs.FileMode) error

func newFS(basedir string, mkdir osMkdirAll) (*FS, error) {
	if basedir == "" {
		return nil, fmt.Errorf("%w: empty base directory", ErrStoreFailed)
	}
	if err := mkdir(basedir, 0o700); err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}
	return &FS{basedir: basedir}, nil
}

// Dir returns the directory holding the store.
func (kvs *FS) Dir() string {
	return kvs.basedir
}

func (kvs *FS) filename(key string) string {
	return filepath.Join(kvs.basedir, key)
}

func (kvs *FS) Get(key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	data, err := lockedfile.Read(kvs.filename(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoSuchKey, key)
		}
		return nil, errors.Join(ErrStoreFailed, err)
	}
	return data, nil
}

func (kvs *FS) Set(key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := lockedfile.Write(kvs.filename(key), bytes.NewReader(value), 0o600); err != nil {
		return errors.Join(ErrStoreFailed, err)
	}
	return nil
}

func (kvs *FS) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	// Take the lock so a concurrent writer finishes before the file goes away.
	f, err := lockedfile.OpenFile(kvs.filename(key), os.O_RDWR, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.Join(ErrStoreFailed, err)
	}
	defer f.Close()

	if err := os.Remove(kvs.filename(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Join(ErrStoreFailed, err)
	}
	return nil
}
