package cistash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Read buffer bounds for hashing: one page at minimum, 1 MiB at most.
const (
	hashBufMin = 4 << 10
	hashBufMax = 1 << 20
)

// digestFile streams the file through SHA-256 in bounded chunks. The buffer
// scales with the reported size so small files don't over-allocate and huge
// files don't burn syscalls. The result is identical across platforms for
// identical byte content.
func digestFile(path string, size int64) ([sha256.Size]byte, error) {
	var sum [sha256.Size]byte

	f, err := os.Open(path)
	if err != nil {
		return sum, fmt.Errorf("open %s for hashing: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, clampBufSize(size))
	h := sha256.New()
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("hash %s: %w", path, err)
		}
	}

	copy(sum[:], h.Sum(nil))
	return sum, nil
}

func clampBufSize(size int64) int {
	switch {
	case size < hashBufMin:
		return hashBufMin
	case size > hashBufMax:
		return hashBufMax
	default:
		return int(size)
	}
}

// objectPath renders a digest as its fan-out key path: hex of bytes 0-3,
// 4-7, 8-11 and 12-31 joined by '/'. Each level narrows the candidate set,
// bounding directory fan-out in the store.
//
// This mapping is the cross-machine dedup key. It must never change:
// changing it would orphan every object already stored.
func objectPath(sum [sha256.Size]byte) string {
	return hex.EncodeToString(sum[0:4]) + "/" +
		hex.EncodeToString(sum[4:8]) + "/" +
		hex.EncodeToString(sum[8:12]) + "/" +
		hex.EncodeToString(sum[12:])
}
