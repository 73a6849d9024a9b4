package cistash

import (
	"bytes"
	"context"
	"errors"
	"fmt"
)

// Cache is a deduplicating, content-addressed artifact cache over a Store.
// The zero value is not usable; construct with New. One Cache may be shared
// across goroutines: all mutable state lives inside individual operations.
type Cache struct {
	store       Store
	log         Logger
	threshold   uint64
	maxInFlight int
	recursive   bool
	dryRun      bool
}

// New creates a Cache on top of the given object store.
func New(store Store, opts ...Option) *Cache {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Cache{
		store:       store,
		log:         o.Logger,
		threshold:   o.CacheThreshold,
		maxInFlight: o.MaxInFlight,
		recursive:   o.Recursive,
		dryRun:      o.DryRun,
	}
}

// readManifest fetches and decodes the manifest for a cache name. An absent
// or undecodable manifest reads as ErrNotFound: the manifest key is the sole
// source of truth for what a cache contains.
func (c *Cache) readManifest(ctx context.Context, name string) (*Manifest, error) {
	var buf bytes.Buffer
	if err := c.store.Get(ctx, entryKey(name), &buf); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("cache %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("read manifest for cache %q: %w", name, err)
	}

	m, err := decodeManifest(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("cache %q: %w: %w", name, ErrNotFound, err)
	}
	return m, nil
}
