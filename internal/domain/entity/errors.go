package entity

import (
	"errors"
	"fmt"
)

// ErrVideoNotFound is returned when no video record exists for an id.
var ErrVideoNotFound = errors.New("video not found")

// SourceMissingError reports that the uploaded source object is absent from
// storage. It is terminal for the processing attempt: the upload either never
// landed or was removed, so retrying the same message cannot succeed.
type SourceMissingError struct {
	Path string
}

func (e *SourceMissingError) Error() string {
	return fmt.Sprintf("video file not found at %s", e.Path)
}
