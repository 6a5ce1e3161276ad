package memory

import "errors"

// Sentinel errors for the engine contract. Callers match with errors.Is;
// layers add context with fmt.Errorf("...: %w", err).
var (
	// ErrInvalidInput rejects bad significance, category, or an empty
	// query/title before any mutation happens.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned for operations on a record id that does not
	// exist in the store.
	ErrNotFound = errors.New("record not found")

	// ErrStoreUnavailable wraps failures to open or lock the underlying
	// database. The invoked operation performs no partial write.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrSourceNotFound is returned by migrate when the source path does
	// not exist.
	ErrSourceNotFound = errors.New("migration source not found")

	// ErrSchemaMismatch is returned by migrate when the source database
	// does not look like a memory store.
	ErrSchemaMismatch = errors.New("migration source schema not recognized")
)
