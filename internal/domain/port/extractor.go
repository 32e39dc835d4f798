package port

import (
	"context"
	"fmt"
)

// FrameExtractor produces still frames from a local video file into
// outputDir, named frame_0001.jpg, frame_0002.jpg, ... It returns the
// directory containing the frames.
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, videoPath, outputDir string) (string, error)
}

// ExtractionError carries the external tool's diagnostic output.
type ExtractionError struct {
	Output string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("frame extraction failed: %v: %s", e.Err, e.Output)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
