package cistash

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func manifestFrom(t *testing.T, store *fakeStore, name string) *Manifest {
	t.Helper()
	data := store.data(entryKey(name))
	require.NotNil(t, data, "manifest for %q not written", name)
	m, err := decodeManifest(data)
	require.NoError(t, err)
	return m
}

func entriesByPath(t *testing.T, m *Manifest) map[string]FileEntry {
	t.Helper()
	byPath := make(map[string]FileEntry, len(m.Files))
	for _, e := range m.Files {
		byPath[e.Path] = e
	}
	return byPath
}

func canonOf(t *testing.T, path string) string {
	t.Helper()
	p, err := toCanonical(path)
	require.NoError(t, err)
	return strings.TrimPrefix(string(p), "/")
}

func TestUploadThresholdBoundary(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	atLimit := writeTestFile(t, dir, "at", bytes.Repeat([]byte("x"), 100))
	above := writeTestFile(t, dir, "above", bytes.Repeat([]byte("y"), 101))

	store := newFakeStore()
	c := New(store, WithCacheThreshold(100), WithLogger(testLogger()))
	require.NoError(t, c.Upload(ctx, "ci", []string{atLimit, above}))

	byPath := entriesByPath(t, manifestFrom(t, store, "ci"))

	// At the boundary: inline, stored under the cache's own prefix.
	at := byPath[canonOf(t, atLimit)]
	assert.Equal(t, KindInline, at.Kind())
	assert.True(t, store.has(at.storageKey("ci")))
	assert.True(t, strings.HasPrefix(at.storageKey("ci"), "cache/ci/files/"))

	// One past the boundary: deduplicated into the shared namespace.
	over := byPath[canonOf(t, above)]
	assert.Equal(t, KindDeduplicated, over.Kind())
	assert.True(t, store.has(over.storageKey("ci")))
	assert.True(t, strings.HasPrefix(over.storageKey("ci"), "objects/"))
}

func TestUploadAdmissionControl(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	const limit = 3
	var paths []string
	for i := 0; i < 12; i++ {
		paths = append(paths, writeTestFile(t, dir, fmt.Sprintf("f%02d", i),
			bytes.Repeat([]byte{byte('a' + i)}, 64+i)))
	}

	store := newFakeStore()
	store.putDelay = 5 * time.Millisecond
	c := New(store, WithCacheThreshold(1), WithMaxInFlight(limit), WithLogger(testLogger()))
	require.NoError(t, c.Upload(ctx, "ci", paths))

	assert.LessOrEqual(t, store.maxInFlight, limit, "in-flight cap exceeded")

	m := manifestFrom(t, store, "ci")
	require.Len(t, m.Files, 12)
	for _, e := range m.Files {
		assert.True(t, store.has(e.storageKey("ci")), "missing blob for %s", e.Path)
	}
}

func TestUploadDedupAcrossCaches(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	content := bytes.Repeat([]byte("same bytes"), 300)
	f1 := writeTestFile(t, dir, "one/app.bin", content)
	f2 := writeTestFile(t, dir, "two/app.bin", content)

	store := newFakeStore()
	c := New(store, WithCacheThreshold(10), WithLogger(testLogger()))
	require.NoError(t, c.Upload(ctx, "ci-a", []string{f1}))
	require.NoError(t, c.Upload(ctx, "ci-b", []string{f2}))

	entryA := manifestFrom(t, store, "ci-a").Files[0]
	entryB := manifestFrom(t, store, "ci-b").Files[0]
	assert.Equal(t, entryA.Object, entryB.Object, "identical content must share one address")

	// Two manifest entries, exactly one object-store write.
	key := entryA.storageKey("ci-a")
	assert.Equal(t, 1, store.writes[key])
}

func TestUploadRecordsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation needs privileges here")
	}
	ctx := context.Background()
	dir := t.TempDir()
	file := writeTestFile(t, dir, "lib.so.1", []byte("elf"))
	link := filepath.Join(dir, "lib.so")
	require.NoError(t, os.Symlink("lib.so.1", link))

	store := newFakeStore()
	c := New(store, WithLogger(testLogger()))
	require.NoError(t, c.Upload(ctx, "ci", []string{file, link}))

	byPath := entriesByPath(t, manifestFrom(t, store, "ci"))
	entry := byPath[canonOf(t, link)]
	assert.Equal(t, KindSymlink, entry.Kind())
	assert.Equal(t, "lib.so.1", entry.LinkTarget)
	assert.Equal(t, uint64(len("lib.so.1")), entry.Size)
	assert.Empty(t, entry.Object)
	assert.Nil(t, entry.Mode)

	// Only the regular file and the manifest hit the store.
	assert.Len(t, store.objects, 2)
}

func TestUploadSkipsUncacheablePaths(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	file := writeTestFile(t, dir, "kept", []byte("data"))
	skipped := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(skipped, 0o755))

	store := newFakeStore()
	c := New(store, WithLogger(testLogger()))
	require.NoError(t, c.Upload(ctx, "ci", []string{file, skipped}))

	m := manifestFrom(t, store, "ci")
	require.Len(t, m.Files, 1)
	assert.Equal(t, canonOf(t, file), m.Files[0].Path)
}

func TestUploadRecursive(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := writeTestFile(t, dir, "tree/a.txt", []byte("a"))
	b := writeTestFile(t, dir, "tree/sub/b.txt", []byte("b"))

	store := newFakeStore()
	c := New(store, WithRecursive(true), WithLogger(testLogger()))
	require.NoError(t, c.Upload(ctx, "ci", []string{filepath.Join(dir, "tree")}))

	byPath := entriesByPath(t, manifestFrom(t, store, "ci"))
	require.Len(t, byPath, 2)
	assert.Contains(t, byPath, canonOf(t, a))
	assert.Contains(t, byPath, canonOf(t, b))
}

func TestUploadFailureAbortsBatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	good := writeTestFile(t, dir, "good", []byte("fine"))
	missing := filepath.Join(dir, "vanished")

	store := newFakeStore()
	c := New(store, WithLogger(testLogger()))
	err := c.Upload(ctx, "ci", []string{good, missing})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve metadata")

	// No manifest: the cache name must not appear half-published.
	assert.False(t, store.has(entryKey("ci")))
}

func TestUploadDryRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	file := writeTestFile(t, dir, "f", bytes.Repeat([]byte("z"), 2048))

	store := newFakeStore()
	c := New(store, WithCacheThreshold(10), WithDryRun(true), WithLogger(testLogger()))
	require.NoError(t, c.Upload(ctx, "ci", []string{file}))

	assert.Empty(t, store.objects, "dry run must not mutate the store")
}

func TestUploadEmptyManifest(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := New(store, WithLogger(testLogger()))
	require.NoError(t, c.Upload(ctx, "empty", nil))

	m := manifestFrom(t, store, "empty")
	assert.Empty(t, m.Files)
	assert.Contains(t, string(store.data(entryKey("empty"))), `"files":[]`)
}
