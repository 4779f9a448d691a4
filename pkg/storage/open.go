package storage

import (
	"context"
	"fmt"
)

// Open creates the Storage matching a location string. S3 locations take their
// bucket and prefix from the URL and everything else from base.
func Open(ctx context.Context, location string, base S3Config, opts ...S3Option) (Storage, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}

	switch loc.Scheme {
	case SchemeFile:
		return NewLocalStorage(loc.Path)
	case SchemeS3:
		cfg := base
		cfg.Bucket = loc.Path
		cfg.Prefix = loc.Prefix
		return NewS3Storage(ctx, cfg, opts...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidLocation, location)
	}
}
