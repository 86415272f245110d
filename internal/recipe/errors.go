package recipe

import "fmt"

// IncompatibleArchitectureError means the host's CPU architecture is
// not in the recipe's Archs bitset.
type IncompatibleArchitectureError struct{ Recipe string }

func (e *IncompatibleArchitectureError) Error() string {
	return fmt.Sprintf("recipe %q: incompatible architecture", e.Recipe)
}

// IncompatiblePlatformError means the host OS is not in the recipe's
// Platforms bitset.
type IncompatiblePlatformError struct{ Recipe string }

func (e *IncompatiblePlatformError) Error() string {
	return fmt.Sprintf("recipe %q: incompatible platform", e.Recipe)
}

// ResultLinkExistsError means `./result` (or whatever ResultPath was
// given) already exists, refusing to clobber a prior build's output.
type ResultLinkExistsError struct{ Path string }

func (e *ResultLinkExistsError) Error() string {
	return fmt.Sprintf("recipe: result link %s already exists", e.Path)
}

// MissingSourceFilesError means the external cache returned a source
// directory that doesn't exist or is empty.
type MissingSourceFilesError struct{ URL string }

func (e *MissingSourceFilesError) Error() string {
	return fmt.Sprintf("recipe: no source files at %s", e.URL)
}

// MissingEnvironmentError means a recipe declared an env var that
// passes through from the host (empty value in Envs) but the host
// doesn't have it set.
type MissingEnvironmentError struct{ Name string }

func (e *MissingEnvironmentError) Error() string {
	return fmt.Sprintf("recipe: environment variable %q is not set on the host", e.Name)
}

// MissingTargetDirError means the build script ran successfully but
// TargetDir doesn't exist inside build_dir afterward.
type MissingTargetDirError struct{ Path string }

func (e *MissingTargetDirError) Error() string {
	return fmt.Sprintf("recipe: target directory %s was not produced by the build script", e.Path)
}
