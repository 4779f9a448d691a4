package imoji

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dmitrymomot/imoji/pkg/storage"
)

// StoragePolicy says where a Session keeps downloaded assets and the
// authenticated user's state. The zero value is not usable.
type StoragePolicy struct {
	cache      storage.Location
	persistent storage.Location
	ephemeral  bool
}

// TemporaryDiskStoragePolicy caches assets in a fresh directory under the OS
// temp dir and keeps authentication state in memory only. A Session removes
// the directory on Close.
func TemporaryDiskStoragePolicy() StoragePolicy {
	dir := filepath.Join(os.TempDir(), "imoji-"+uuid.NewString())
	return StoragePolicy{
		cache:     storage.Location{Scheme: storage.SchemeFile, Path: dir},
		ephemeral: true,
	}
}

// NewStoragePolicy builds a policy with explicit locations. cachePath is a
// filesystem path, a file:// URL or an s3://bucket/prefix URL. persistentPath
// must live on the local filesystem.
func NewStoragePolicy(cachePath, persistentPath string) (StoragePolicy, error) {
	const op = "storage policy"

	cache, err := storage.ParseLocation(cachePath)
	if err != nil {
		return StoragePolicy{}, newError(CodeInvalidArgument, op, err)
	}
	persistent, err := storage.ParseLocation(persistentPath)
	if err != nil {
		return StoragePolicy{}, newError(CodeInvalidArgument, op, err)
	}
	if persistent.Scheme != storage.SchemeFile {
		return StoragePolicy{}, invalidArgument(op, "persistent path %q must be on the local filesystem", persistentPath)
	}
	return StoragePolicy{cache: cache, persistent: persistent}, nil
}

// CachePath returns the cache location: a filesystem path or an s3:// URL.
func (p StoragePolicy) CachePath() string { return p.cache.String() }

// PersistentPath returns the persistent directory, empty when ephemeral.
func (p StoragePolicy) PersistentPath() string {
	if p.ephemeral {
		return ""
	}
	return p.persistent.Path
}

// IsEphemeral reports whether this is the temporary policy.
func (p StoragePolicy) IsEphemeral() bool { return p.ephemeral }

func (p StoragePolicy) valid() bool {
	return p.cache.Path != "" && (p.ephemeral || p.persistent.Path != "")
}
