package grainstore

import "errors"

// ErrConcurrencyConflict is returned by Write when CheckConcurrency is on,
// the slot claims an existing record, and the caller's ETag no longer
// matches the document's recomputed current ETag. No state is mutated.
var ErrConcurrencyConflict = errors.New("grainstore: concurrency conflict")

// IsConcurrencyConflict reports whether err is (or wraps) ErrConcurrencyConflict.
func IsConcurrencyConflict(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
