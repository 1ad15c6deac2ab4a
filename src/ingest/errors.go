package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrDirectoryCreationFailed means the date shard directory could not be created
	ErrDirectoryCreationFailed = errors.New("directory creation failed")

	// ErrAssetWriteFailed means the image bytes could not be persisted
	ErrAssetWriteFailed = errors.New("asset write failed")

	// ErrInvalidImageRoot means the image root is absolute or leaves the project
	ErrInvalidImageRoot = errors.New("invalid image root")

	// ErrDimensionProbeFailed is never returned by Ingest; it only tags the
	// logged degradation to plain markup
	ErrDimensionProbeFailed = errors.New("dimension probe failed")
)

// Error carries the failing path alongside the failure kind and the cause.
// errors.Is matches both Kind and the underlying error.
type Error struct {
	Kind error
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
