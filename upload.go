package cistash

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// The upload scheduler runs as one coordinator loop observing tagged task
// completions. Workers deliver results over a single channel; the in-flight
// counter and pending queue are touched only from the loop, so no locking.
type workKind int

const (
	workMeta workKind = iota
	workUpload
)

type workResult struct {
	kind workKind
	meta *fileMeta
	err  error
}

// pendingUpload is one blob transfer waiting for in-flight capacity.
type pendingUpload struct {
	entry FileEntry
	local string
}

// Upload publishes the given paths as the cache entry for name. Large files
// (size above the configured threshold) are deduplicated into the shared
// object namespace via put-if-absent; small files are stored under the
// cache's own prefix; symlinks are recorded as metadata only. The manifest
// is written last, overwriting any previous entry for the same name.
//
// Any single resolution or transfer failure fails the whole upload: a cache
// entry is trustworthy in full or not at all. Objects already written stay
// behind; they are immutable, content-addressed and harmless.
func (c *Cache) Upload(ctx context.Context, name string, paths []string) error {
	paths, err := c.expandPaths(paths)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so an early exit never strands a worker; workers also bail
	// out on ctx.Done.
	results := make(chan workResult, 2*len(paths))
	outstanding := 0

	deliver := func(res workResult) {
		select {
		case results <- res:
		case <-ctx.Done():
		}
	}

	for _, path := range paths {
		outstanding++
		go func() {
			meta, err := resolveMeta(path)
			deliver(workResult{kind: workMeta, meta: meta, err: err})
		}()
	}

	manifest := Manifest{Files: []FileEntry{}}
	inFlight := 0
	var pending []pendingUpload

	spawnUpload := func(up pendingUpload) {
		inFlight++
		outstanding++
		go func() {
			deliver(workResult{kind: workUpload, err: c.uploadFile(ctx, name, up)})
		}()
	}

	for outstanding > 0 {
		var res workResult
		select {
		case res = <-results:
		case <-ctx.Done():
			return ctx.Err()
		}
		outstanding--

		switch res.kind {
		case workMeta:
			if res.err != nil {
				return fmt.Errorf("resolve metadata: %w", res.err)
			}
			meta := res.meta

			if meta.linkTarget != "" {
				manifest.Files = append(manifest.Files, newSymlinkEntry(meta.canon, meta.linkTarget))
				c.log.Debug(ctx, "recorded symlink", "path", meta.native, "target", meta.linkTarget)
				continue
			}
			if !meta.recordable() {
				c.log.Info(ctx, "skipping uncacheable path", "path", meta.native, "mode", meta.info.Mode().String())
				continue
			}

			size := uint64(meta.info.Size())
			mode := uint32(meta.info.Mode().Perm())

			var entry FileEntry
			if size > c.threshold {
				entry = newDedupEntry(meta.canon, objectPath(meta.sum), size, mode)
			} else {
				entry = newInlineEntry(meta.canon, size, mode)
			}

			// Membership is decided here, not at upload completion: the file
			// is in the entry even while its blob is still in flight.
			manifest.Files = append(manifest.Files, entry)

			up := pendingUpload{entry: entry, local: meta.native}
			if inFlight < c.maxInFlight {
				spawnUpload(up)
			} else {
				pending = append(pending, up)
			}

		case workUpload:
			inFlight--
			if res.err != nil {
				return fmt.Errorf("upload file: %w", res.err)
			}
			if len(pending) > 0 && inFlight < c.maxInFlight {
				next := pending[0]
				pending = pending[1:]
				spawnUpload(next)
			}
		}
	}

	if len(pending) != 0 {
		return fmt.Errorf("upload scheduler: %d transfers never promoted from the pending queue", len(pending))
	}

	if c.dryRun {
		c.log.Info(ctx, "dry run: manifest not written", "cache", name, "files", len(manifest.Files))
		return nil
	}

	data, err := manifest.encode()
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := c.store.Put(ctx, entryKey(name), bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("write manifest %s: %w", entryKey(name), err)
	}

	c.log.Info(ctx, "cache published", "cache", name, "files", len(manifest.Files))
	return nil
}

// uploadFile transfers one file's bytes to its storage key. The put is
// skipped entirely when the key already exists remotely, which is where
// dedup across unrelated uploads is realized.
func (c *Cache) uploadFile(ctx context.Context, name string, up pendingUpload) error {
	key := up.entry.storageKey(name)

	if c.dryRun {
		c.log.Info(ctx, "dry run: would upload", "path", up.local, "key", key,
			"deduplicated", up.entry.Kind() == KindDeduplicated)
		return nil
	}

	f, err := os.Open(up.local)
	if err != nil {
		return fmt.Errorf("open %s: %w", up.local, err)
	}
	defer f.Close()

	written, err := c.store.PutIfAbsent(ctx, key, f, int64(up.entry.Size))
	if err != nil {
		return fmt.Errorf("put %s to %s: %w", up.local, key, err)
	}
	if written {
		c.log.Info(ctx, "uploaded", "path", up.local, "key", key, "size", up.entry.Size)
	} else {
		c.log.Debug(ctx, "already stored, skipped", "path", up.local, "key", key)
	}
	return nil
}

// expandPaths eagerly expands directories when recursive mode is on.
// Without it, paths pass through untouched and directories are skipped
// later at metadata resolution.
func (c *Cache) expandPaths(paths []string) ([]string, error) {
	if !c.recursive {
		return paths, nil
	}

	var out []string
	for _, path := range paths {
		info, err := os.Lstat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if !info.IsDir() {
			out = append(out, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				out = append(out, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", path, err)
		}
	}
	return out, nil
}
