package storage

// Backend is the unified contract for file storage across different
// physical locations (local filesystem, object storage, or a composition
// of both). Identifiers are slash-separated paths relative to the
// backend's root.
//
// Implementations can be swapped without changing application code, which
// also enables caching layers on top of any backend and mock backends in
// tests.
type Backend interface {
	// Exists reports whether identifier refers to a stored file. Invalid
	// identifiers (e.g. escaping the root) report false rather than
	// erroring.
	Exists(identifier string) bool

	// Read returns the file content. Returns *NotFoundError if absent and
	// *NotRegularFileError if the identifier names a directory.
	Read(identifier string) ([]byte, error)

	// Write stores content under identifier, creating parent directories
	// as needed. An existing file is overwritten.
	Write(identifier string, content []byte) error

	// Delete removes the file. Reports whether a file was removed; a
	// missing file yields (false, *NotFoundError).
	Delete(identifier string) (bool, error)

	// List returns identifiers of all stored files, filtered by a glob
	// pattern when one is given. Patterns may be recursive, e.g.
	// "**/*.pdf". Results are sorted.
	List(pattern string) ([]string, error)

	// Size returns the file size in bytes.
	Size(identifier string) (int64, error)

	// Copy duplicates a file within this backend.
	Copy(sourceID, destID string) error

	// Move renames a file within this backend.
	Move(sourceID, destID string) error

	// GetPath returns the absolute path or location string for identifier.
	// It does not check that the file exists.
	GetPath(identifier string) (string, error)
}
