package store

import "fmt"

// NotExistingError means a store path was expected to exist but doesn't.
type NotExistingError struct{ Path string }

func (e *NotExistingError) Error() string { return fmt.Sprintf("store: %s does not exist", e.Path) }

// AlreadyExistsError means Init was called on a path that's already there.
type AlreadyExistsError struct{ Path string }

func (e *AlreadyExistsError) Error() string { return fmt.Sprintf("store: %s already exists", e.Path) }

// PackageNotVerifiedError means a re-hash of source content didn't match
// the Package's declared id.
type PackageNotVerifiedError struct{ Name string }

func (e *PackageNotVerifiedError) Error() string {
	return fmt.Sprintf("store: package %q content does not match its declared id", e.Name)
}

// PackageNotFoundByIDError means a lookup by PackageId found nothing.
type PackageNotFoundByIDError struct{ ID string }

func (e *PackageNotFoundByIDError) Error() string {
	return fmt.Sprintf("store: no package with id %s", e.ID)
}

// UnsupportedFilePathError means an object's path doesn't map to any
// known component directory.
type UnsupportedFilePathError struct{ Path string }

func (e *UnsupportedFilePathError) Error() string {
	return fmt.Sprintf("store: unsupported file path %q (must start with bin/, lib/, cfg/, etc/, or share/)", e.Path)
}

// ObjectNotRetrievableError means an object the store expected to find
// backing a blob is missing from disk.
type ObjectNotRetrievableError struct{ ID string }

func (e *ObjectNotRetrievableError) Error() string {
	return fmt.Sprintf("store: object %s could not be retrieved", e.ID)
}
