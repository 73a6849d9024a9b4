// Package cistash provides a deduplicating, content-addressed artifact cache
// backed by an S3-compatible object store.
//
// Caches are named collections of files. Large files are stored once under a
// shared content-addressed namespace (objects/...), small files live under
// the cache's own prefix, and a versioned JSON manifest at cache/<name>/entry
// describes the whole entry. Identical bytes are never transferred twice,
// even across unrelated uploads.
//
// Basic usage:
//
//	store, _ := s3store.Connect(ctx, s3store.Config{Bucket: "ci-cache"})
//	cache := cistash.New(store, cistash.WithMaxInFlight(8))
//
//	// Publish build outputs under a name
//	cache.Upload(ctx, "ci-main", []string{"bin/app", "bin/app.dbg"})
//
//	// Materialize them elsewhere
//	cache.Download(ctx, "ci-main", "out/")
//
//	// Housekeeping
//	cache.Delete(ctx, "ci-main")
//	cache.Expire(ctx, 30) // drop shared objects older than 30 days
package cistash
