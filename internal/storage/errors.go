package storage

import (
	stderrors "errors"
	"fmt"
)

// NotFoundError reports a missing identifier. Location names the storage
// (or, for composed backends, the storages) that were searched, so a caller
// can tell a full miss from a tier-specific one.
type NotFoundError struct {
	Identifier string
	Location   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found in %s: %s", e.Location, e.Identifier)
}

// ValidationError reports invalid configuration or an identifier that
// violates a backend's contract, e.g. a path escaping the root directory
// or an unknown write mode. Construction-time validation fails fast with
// this type rather than deferring to the first operation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NotRegularFileError reports a path that exists but is not a regular file
// (usually a directory). Kept distinct from NotFoundError because callers
// handle the two differently.
type NotRegularFileError struct {
	Identifier string
}

func (e *NotRegularFileError) Error() string {
	return fmt.Sprintf("not a regular file: %s", e.Identifier)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return stderrors.As(err, &nf)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return stderrors.As(err, &ve)
}
