package cistash

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Entries returns the manifest entries of the named cache.
func (c *Cache) Entries(ctx context.Context, name string) ([]FileEntry, error) {
	m, err := c.readManifest(ctx, name)
	if err != nil {
		return nil, err
	}
	return m.Files, nil
}

// Caches returns the names of all caches in the store, sorted.
func (c *Cache) Caches(ctx context.Context) ([]string, error) {
	prefixes, err := c.store.ListCommonPrefixes(ctx, "cache/")
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}

	names := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		names = append(names, strings.TrimSuffix(strings.TrimPrefix(p, "cache/"), "/"))
	}
	sort.Strings(names)
	return names, nil
}
