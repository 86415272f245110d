package generation

import (
	"fmt"
	"strings"

	"hua/internal/pkgfs"
)

// AlreadyPresentError means a generation directory already exists at
// the id being built.
type AlreadyPresentError struct {
	ID uint64
}

func (e *AlreadyPresentError) Error() string {
	return fmt.Sprintf("generation: id %d already present", e.ID)
}

// GraphNotResolvableError means resolve() left at least one
// requirement unresolved; Unresolved carries every such requirement.
type GraphNotResolvableError struct {
	Unresolved []pkgfs.Requirement
}

func (e *GraphNotResolvableError) Error() string {
	names := make([]string, len(e.Unresolved))
	for i, r := range e.Unresolved {
		names[i] = r.Name
	}
	return fmt.Sprintf("generation: unresolvable requirements: %s", strings.Join(names, ", "))
}

// InUseError means remove_generation targeted the current generation.
type InUseError struct {
	ID uint64
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("generation: id %d is the current generation and cannot be removed", e.ID)
}

// NotFoundError means an operation targeted a generation id with no
// record.
type NotFoundError struct {
	ID uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("generation: no generation with id %d", e.ID)
}
