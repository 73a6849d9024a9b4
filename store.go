package cistash

import (
	"context"
	"io"
	"time"
)

// Store is the object-store capability the engine depends on. Keys are
// '/'-separated paths in a flat namespace; back-slashes are invalid.
//
// Implementations must be safe for concurrent use: one Store handle is
// shared across all tasks of an invocation. internal/s3store provides the
// S3 implementation.
type Store interface {
	// Put writes the object at key unconditionally.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// PutIfAbsent writes the object only when key does not already exist,
	// and reports whether bytes were actually written.
	PutIfAbsent(ctx context.Context, key string, r io.Reader, size int64) (written bool, err error)

	// Get streams the object at key into w. A missing key yields ErrNotFound.
	Get(ctx context.Context, key string, w io.Writer) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// LastModified returns the object's modification time. A missing key
	// yields ErrNotFound; a present key without a readable time yields
	// ErrTimestampUnavailable.
	LastModified(ctx context.Context, key string) (time.Time, error)

	// ListContents returns the leaf object keys directly under prefix.
	ListContents(ctx context.Context, prefix string) ([]string, error)

	// ListCommonPrefixes returns the child prefixes directly under prefix.
	ListCommonPrefixes(ctx context.Context, prefix string) ([]string, error)
}
