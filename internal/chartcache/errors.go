package chartcache

import "errors"

// Validation and lookup failures surfaced by the cache. All are returned
// synchronously and leave the cache unmutated.
var (
	// ErrNilData is returned when a required argument is absent or a count
	// is non-positive.
	ErrNilData = errors.New("chartcache: required data is missing")

	// ErrInvalidTickPrice is returned for a tick with a non-positive price.
	ErrInvalidTickPrice = errors.New("chartcache: tick price must be positive")

	// ErrSymbolNotFound is returned when a symbol outside the fixed catalog
	// is referenced. The catalog is closed, so hitting this is a programming
	// error in the caller.
	ErrSymbolNotFound = errors.New("chartcache: symbol not present in cache")

	// ErrInvalidTimeRange is returned when a range query has start > end.
	ErrInvalidTimeRange = errors.New("chartcache: invalid time range")

	// ErrResolutionNotFound is returned for a resolution outside the catalog.
	ErrResolutionNotFound = errors.New("chartcache: resolution not present in cache")
)
