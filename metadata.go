package cistash

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strings"
)

// fileMeta is the transient result of resolving one upload path. It is owned
// by the task that produced it and consumed once by the scheduler.
type fileMeta struct {
	native     string // path as given, native separators
	canon      canonPath
	info       os.FileInfo
	sum        [sha256.Size]byte
	hashed     bool
	linkTarget string
}

// recordable reports whether the path belongs in a manifest at all.
// Directories, devices and the like resolve fine but are skipped.
func (m *fileMeta) recordable() bool {
	return m.hashed || m.linkTarget != ""
}

// resolveMeta stats path without following symlinks. Symlinks get their
// target text read and are never hashed; regular files are digested; anything
// else is resolved but not recordable. A stat or read failure is an error
// scoped to this path; the scheduler decides what it means for the batch.
func resolveMeta(path string) (*fileMeta, error) {
	canon, err := toCanonical(path)
	if err != nil {
		return nil, err
	}
	// Absolute inputs drop their leading slash so inline storage keys stay
	// well-formed; the native path is still used for local reads.
	canon = canonPath(strings.TrimPrefix(string(canon), "/"))

	info, err := os.Lstat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	m := &fileMeta{native: path, canon: canon, info: info}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return nil, fmt.Errorf("read link %s: %w", path, err)
		}
		m.linkTarget = target
	case info.Mode().IsRegular():
		sum, err := digestFile(path, info.Size())
		if err != nil {
			return nil, err
		}
		m.sum = sum
		m.hashed = true
	}

	return m, nil
}
