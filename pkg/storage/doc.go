// Package storage provides the blob stores behind a StoragePolicy.
//
// Two backends implement Storage: LocalStorage confines all keys to a base
// directory and writes atomically through temp files, and S3Storage keeps
// objects in a bucket under an optional key prefix. Open picks a backend from
// a location string:
//
//	/var/cache/imoji          local directory
//	file:///var/cache/imoji   local directory
//	s3://bucket/renders       S3 bucket with key prefix "renders"
//
// Keys always use forward slashes and may not contain ".." segments.
//
//	st, err := storage.Open(ctx, "s3://stickers/cache", storage.S3Config{Region: "eu-west-1"})
//	if err != nil {
//		return err
//	}
//	if err := st.Put(ctx, "render/abc.png", data); err != nil {
//		return err
//	}
//
// Lookups of missing keys return ErrNotFound, so callers can treat a cache
// miss with errors.Is.
package storage
