package cistash

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// canonPath is the platform-independent form of a file path: always
// '/'-separated, valid UTF-8, no back-slashes. It is the only form persisted
// in manifests and store keys; every entry point converts through it.
type canonPath string

// toCanonical converts a host-native path to its canonical form.
func toCanonical(native string) (canonPath, error) {
	if !utf8.ValidString(native) {
		return "", fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidPath, native)
	}
	p := filepath.ToSlash(native)
	if strings.ContainsRune(p, '\\') {
		return "", fmt.Errorf("%w: %q contains a back-slash", ErrInvalidPath, native)
	}
	return canonPath(p), nil
}

// Native returns the path in the host's native representation.
func (p canonPath) Native() string {
	return filepath.FromSlash(string(p))
}
