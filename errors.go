package cistash

import "errors"

var (
	// ErrNotFound reports a missing cache manifest or object key.
	ErrNotFound = errors.New("cistash: not found")

	// ErrInvalidPath reports a path that cannot be represented as a store
	// key (back-slashes, invalid UTF-8).
	ErrInvalidPath = errors.New("cistash: invalid path")

	// ErrTimestampUnavailable reports object metadata without a readable
	// last-modified time.
	ErrTimestampUnavailable = errors.New("cistash: last-modified unavailable")

	// ErrExpiryAge reports an expiry age outside the timestamp domain.
	ErrExpiryAge = errors.New("cistash: invalid expiry age")
)
