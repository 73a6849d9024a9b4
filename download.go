package cistash

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// Download materializes the named cache entry into dest, creating it if
// needed. Every file downloads concurrently; unlike upload there is no
// in-flight cap, since downloads are bursty and don't need to protect the
// destination store. The first failure cancels the rest and is returned.
func (c *Cache) Download(ctx context.Context, name, dest string) error {
	m, err := c.readManifest(ctx, name)
	if err != nil {
		return err
	}

	if len(m.Files) > 0 {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dest, err)
		}
	}

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	for _, entry := range m.Files {
		p.Go(func(ctx context.Context) error {
			return c.downloadFile(ctx, name, entry, dest)
		})
	}

	if err := p.Wait(); err != nil {
		return fmt.Errorf("download cache %q: %w", name, err)
	}

	c.log.Info(ctx, "cache downloaded", "cache", name, "files", len(m.Files), "dest", dest)
	return nil
}

func (c *Cache) downloadFile(ctx context.Context, name string, entry FileEntry, dest string) error {
	target := filepath.Join(dest, canonPath(entry.Path).Native())

	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	// Never write through a link left by an earlier run.
	if info, err := os.Lstat(target); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(target); err != nil {
			return fmt.Errorf("remove stale link %s: %w", target, err)
		}
	}

	if entry.Kind() == KindSymlink {
		if err := os.Symlink(entry.LinkTarget, target); err != nil {
			if runtime.GOOS == "windows" {
				c.log.Warn(ctx, "symlinks unsupported on this host, skipping", "path", target, "target", entry.LinkTarget)
				return nil
			}
			return fmt.Errorf("symlink %s: %w", target, err)
		}
		return nil
	}

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}

	key := entry.storageKey(name)
	if err := c.store.Get(ctx, key, f); err != nil {
		f.Close()
		return fmt.Errorf("fetch %s from %s: %w", target, key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", target, err)
	}

	if entry.Mode != nil {
		if err := os.Chmod(target, fs.FileMode(*entry.Mode)); err != nil {
			c.log.Warn(ctx, "could not apply mode", "path", target, "err", err)
		}
	}

	c.log.Debug(ctx, "downloaded", "path", target, "key", key)
	return nil
}
