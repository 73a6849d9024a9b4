package cistash

import (
	"encoding/json"
	"fmt"
)

// Store key layout. This is the on-the-wire contract other readers of the
// bucket rely on; see also objectPath in digest.go.
const objectsPrefix = "objects/"

func cachePrefix(name string) string      { return "cache/" + name + "/" }
func entryKey(name string) string         { return cachePrefix(name) + "entry" }
func cacheFilesPrefix(name string) string { return cachePrefix(name) + "files/" }

// manifestVersions wraps a manifest in an explicit schema-version tag so
// future formats can coexist. Decoders ignore unknown sibling fields.
type manifestVersions struct {
	V1 *Manifest `json:"v1,omitempty"`
}

// Manifest describes the files belonging to one named cache entry. It is
// built once during upload, written as a single blob at entryKey(name), and
// never mutated afterwards. Entry order is discovery order and carries no
// meaning.
type Manifest struct {
	Files []FileEntry `json:"files"`
}

// Kind discriminates the three shapes a FileEntry can take.
type Kind int

const (
	// KindDeduplicated is a large file stored once under the shared
	// content-addressed namespace.
	KindDeduplicated Kind = iota
	// KindInline is a small file stored under the cache's own prefix, so a
	// whole cache can be deleted without touching shared objects.
	KindInline
	// KindSymlink is recorded as metadata only; no bytes are transferred.
	KindSymlink
)

// FileEntry is one file or symlink within a cache entry. Exactly one of
// {Object set, Object empty with no LinkTarget (inline), LinkTarget set}
// applies; the constructors below enforce that.
type FileEntry struct {
	// Path is the canonical, '/'-separated path of the file.
	Path string `json:"path"`
	// Object is the fan-out digest path for deduplicated files, without the
	// "objects/" prefix or "/bin" suffix. Empty for inline files and symlinks.
	Object string `json:"object,omitempty"`
	// Size is the byte count; for symlinks, the length of the target text.
	Size uint64 `json:"size"`
	// Mode holds permission bits when available.
	Mode *uint32 `json:"mode,omitempty"`
	// LinkTarget is the symlink target text; present only for symlinks.
	LinkTarget string `json:"link_target,omitempty"`
}

func newDedupEntry(path canonPath, object string, size uint64, mode uint32) FileEntry {
	return FileEntry{Path: string(path), Object: object, Size: size, Mode: &mode}
}

func newInlineEntry(path canonPath, size uint64, mode uint32) FileEntry {
	return FileEntry{Path: string(path), Size: size, Mode: &mode}
}

func newSymlinkEntry(path canonPath, target string) FileEntry {
	return FileEntry{Path: string(path), Size: uint64(len(target)), LinkTarget: target}
}

// Kind reports which of the three shapes this entry is.
func (e *FileEntry) Kind() Kind {
	switch {
	case e.LinkTarget != "":
		return KindSymlink
	case e.Object != "":
		return KindDeduplicated
	default:
		return KindInline
	}
}

// storageKey returns the store key holding this entry's bytes. Deduplicated
// files live in the shared object namespace, inline files under the cache's
// own prefix. Symlinks have no storage key.
func (e *FileEntry) storageKey(cacheName string) string {
	if e.Object != "" {
		return objectsPrefix + e.Object + "/bin"
	}
	return cacheFilesPrefix(cacheName) + e.Path
}

func (m *Manifest) encode() ([]byte, error) {
	return json.Marshal(manifestVersions{V1: m})
}

func decodeManifest(data []byte) (*Manifest, error) {
	var v manifestVersions
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if v.V1 == nil {
		return nil, fmt.Errorf("decode manifest: no known version tag")
	}
	return v.V1, nil
}
