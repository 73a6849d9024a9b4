package cistash

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// sweep walks every object under root with an explicit work stack, so depth
// is bounded no matter how deep the key space goes. The visitor owns its own
// error handling; only a failed listing aborts, since without listing no
// further progress is possible.
func (c *Cache) sweep(ctx context.Context, root string, visit func(ctx context.Context, key string)) error {
	stack := []string{root}
	for len(stack) > 0 {
		prefix := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		keys, err := c.store.ListContents(ctx, prefix)
		if err != nil {
			return fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, key := range keys {
			visit(ctx, key)
		}

		children, err := c.store.ListCommonPrefixes(ctx, prefix)
		if err != nil {
			return fmt.Errorf("list prefixes under %s: %w", prefix, err)
		}
		stack = append(stack, children...)
	}
	return nil
}

// recursiveDelete removes every object under prefix, best-effort: a failed
// delete is logged and the sweep moves on to siblings. Re-running a partial
// sweep is safe; deleting an already-deleted object is a no-op.
func (c *Cache) recursiveDelete(ctx context.Context, prefix string) error {
	return c.sweep(ctx, prefix, func(ctx context.Context, key string) {
		if err := c.store.Delete(ctx, key); err != nil {
			c.log.Error(ctx, "delete failed, continuing", "key", key, "err", err)
			return
		}
		c.log.Debug(ctx, "deleted", "key", key)
	})
}

// Delete removes the named cache: its manifest and every inline object under
// its prefix. Shared deduplicated objects are left alone; Expire reclaims
// those by age. A missing manifest is only a warning, since the prefix may
// still hold orphaned objects worth removing.
func (c *Cache) Delete(ctx context.Context, name string) error {
	if _, err := c.readManifest(ctx, name); err != nil {
		c.log.Warn(ctx, "cache manifest missing, deleting prefix anyway", "cache", name, "err", err)
	}
	return c.recursiveDelete(ctx, cachePrefix(name))
}

// Expire deletes shared objects older than ageDays days.
func (c *Cache) Expire(ctx context.Context, ageDays int) error {
	if ageDays < 0 {
		return fmt.Errorf("%w: %d days", ErrExpiryAge, ageDays)
	}
	return c.ExpireBefore(ctx, time.Now().UTC().AddDate(0, 0, -ageDays))
}

// ExpireBefore deletes every shared object last modified before cutoff.
// An object whose timestamp cannot be read is expired anyway: unreadable
// metadata on a cache is itself a staleness signal, and this is a cache,
// not a system of record. An object that is already gone is skipped.
func (c *Cache) ExpireBefore(ctx context.Context, cutoff time.Time) error {
	return c.sweep(ctx, objectsPrefix, func(ctx context.Context, key string) {
		mod, err := c.store.LastModified(ctx, key)
		switch {
		case errors.Is(err, ErrNotFound):
			c.log.Debug(ctx, "object already gone", "key", key)
			return
		case err != nil:
			c.log.Warn(ctx, "unreadable last-modified, expiring", "key", key, "err", err)
		case !mod.Before(cutoff):
			return
		}

		if err := c.store.Delete(ctx, key); err != nil {
			c.log.Error(ctx, "expire delete failed, continuing", "key", key, "err", err)
			return
		}
		c.log.Info(ctx, "expired", "key", key, "modified", mod)
	})
}
