package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/framepipe/video-processing-service/internal/domain/port"
	"go.uber.org/zap"
)

// Extractor shells out to ffmpeg to sample still frames from a video at a
// fixed rate. Frames are written as frame_0001.jpg, frame_0002.jpg, ...
type Extractor struct {
	fps    int
	logger *zap.Logger
}

func NewExtractor(fps int, logger *zap.Logger) *Extractor {
	return &Extractor{fps: fps, logger: logger}
}

func (e *Extractor) ExtractFrames(ctx context.Context, videoPath, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	framePattern := filepath.Join(outputDir, "frame_%04d.jpg")
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%d", e.fps),
		"-y",
		framePattern,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", &port.ExtractionError{Output: string(output), Err: err}
	}

	e.logger.Info("frames extracted",
		zap.String("video", videoPath),
		zap.String("output_dir", outputDir),
	)
	return outputDir, nil
}
