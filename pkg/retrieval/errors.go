package retrieval

import "errors"

var (
	// ErrInvalidTable is returned for table kinds outside the allow-list,
	// before any query executes.
	ErrInvalidTable = errors.New("retrieval: table kind not allow-listed")

	// ErrNotFound covers both a missing record and an owner mismatch.
	ErrNotFound = errors.New("retrieval: record not found")

	// ErrValidation is returned for malformed input: bad pagination bounds,
	// unknown sort fields, malformed filters.
	ErrValidation = errors.New("retrieval: invalid request")
)
