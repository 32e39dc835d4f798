package port

import (
	"context"
	"fmt"
)

// Archiver packages every file in sourceDir into a single compressed archive
// named destBaseName + ".zip" and returns the archive path.
type Archiver interface {
	CreateArchive(ctx context.Context, sourceDir, destBaseName string) (string, error)
}

type ArchiveError struct {
	Err error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("create archive: %v", e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }
