package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/framepipe/video-processing-service/internal/domain/entity"
	"github.com/framepipe/video-processing-service/internal/domain/port"
	"github.com/framepipe/video-processing-service/internal/infra/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Only files matching this pattern count as extracted frames; anything else
// the extractor leaves behind is ignored. The fixed-width numbering makes
// lexicographic order equal numeric order, which is the FrameURLs contract.
var framePattern = regexp.MustCompile(`^frame_\d{4}\.jpg$`)

const frameUploadConcurrency = 4

type ProcessVideoUseCase struct {
	repo      port.VideoRepository
	storage   port.BlobStorage
	extractor port.FrameExtractor
	archiver  port.Archiver
	publisher port.StatusPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	tempDir   string
}

type ProcessVideoConfig struct {
	TempDir string
}

func NewProcessVideoUseCase(
	repo port.VideoRepository,
	storage port.BlobStorage,
	extractor port.FrameExtractor,
	archiver port.Archiver,
	publisher port.StatusPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessVideoConfig,
) *ProcessVideoUseCase {
	return &ProcessVideoUseCase{
		repo:      repo,
		storage:   storage,
		extractor: extractor,
		archiver:  archiver,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger,
		tempDir:   cfg.TempDir,
	}
}

// Execute runs the full pipeline for one video: download the source, extract
// frames, upload them, build and upload the archive, mark COMPLETED. Any
// failure past the initial lookup marks the video FAILED with the error
// message and re-raises the error for the worker to interpret. Persisted
// success is all-or-nothing: FrameURLs and DownloadZipURL are only ever
// written together with the COMPLETED status.
func (uc *ProcessVideoUseCase) Execute(ctx context.Context, videoID uuid.UUID) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessVideoUseCase.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("video.id", videoID.String()))

	log := uc.logger.With(zap.String("video_id", videoID.String()))
	totalTimer := time.Now()

	video, err := uc.repo.FindByID(ctx, videoID)
	if err != nil {
		return err
	}

	metrics.ActiveJobs.Inc()
	defer metrics.ActiveJobs.Dec()

	if err := uc.runPipeline(ctx, video, log); err != nil {
		uc.fail(ctx, video, err, log)
		return err
	}

	metrics.VideosProcessedTotal.WithLabelValues("completed").Inc()
	metrics.PipelineDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())
	uc.publishStatus(ctx, video, log)

	log.Info("video processing completed",
		zap.Int("frame_count", len(video.FrameURLs)),
		zap.String("download_zip_url", video.DownloadZipURL),
	)
	return nil
}

func (uc *ProcessVideoUseCase) runPipeline(ctx context.Context, video *entity.Video, log *zap.Logger) error {
	tracer := otel.Tracer("usecase")

	exists, err := uc.storage.Exists(ctx, video.OriginalPath)
	if err != nil {
		return fmt.Errorf("check source object: %w", err)
	}
	if !exists {
		return &entity.SourceMissingError{Path: video.OriginalPath}
	}

	video.MarkProcessing()
	if err := uc.repo.Save(ctx, video); err != nil {
		return fmt.Errorf("update video to PROCESSING: %w", err)
	}

	workDir := filepath.Join(uc.tempDir, "video_"+video.ID.String())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	// Scratch release is best-effort and never masks a pipeline error: the
	// original failure stays primary, a cleanup failure is only logged.
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			log.Warn("failed to release scratch dir", zap.String("dir", workDir), zap.Error(rmErr))
		}
	}()

	// Download the source to local scratch.
	dlTimer := time.Now()
	dlCtx, dlSpan := tracer.Start(ctx, "download_source")
	data, err := uc.storage.Get(dlCtx, video.OriginalPath)
	dlSpan.End()
	if err != nil {
		return fmt.Errorf("download source: %w", err)
	}
	localVideoPath := filepath.Join(workDir, "input.mp4")
	if err := os.WriteFile(localVideoPath, data, 0o644); err != nil {
		return fmt.Errorf("write local video: %w", err)
	}
	metrics.PipelineDuration.WithLabelValues("download").Observe(time.Since(dlTimer).Seconds())

	// Extract frames.
	exTimer := time.Now()
	exCtx, exSpan := tracer.Start(ctx, "extract_frames")
	framesDir, err := uc.extractor.ExtractFrames(exCtx, localVideoPath, filepath.Join(workDir, "frames"))
	exSpan.End()
	if err != nil {
		return fmt.Errorf("extract frames: %w", err)
	}
	metrics.PipelineDuration.WithLabelValues("extract").Observe(time.Since(exTimer).Seconds())

	frames, err := listFrameFiles(framesDir)
	if err != nil {
		return err
	}

	// Upload frames; FrameURLs keeps the sorted filename order regardless of
	// upload completion order.
	upTimer := time.Now()
	upCtx, upSpan := tracer.Start(ctx, "upload_frames")
	frameURLs, err := uc.uploadFrames(upCtx, video.ID, framesDir, frames)
	upSpan.End()
	if err != nil {
		return err
	}
	metrics.PipelineDuration.WithLabelValues("upload_frames").Observe(time.Since(upTimer).Seconds())

	// Archive the frames directory and upload the archive.
	zipTimer := time.Now()
	zipCtx, zipSpan := tracer.Start(ctx, "create_archive")
	zipPath, err := uc.archiver.CreateArchive(zipCtx, framesDir, filepath.Join(workDir, "frames"))
	zipSpan.End()
	if err != nil {
		return fmt.Errorf("archive frames: %w", err)
	}

	zipData, err := os.ReadFile(zipPath)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}
	zipKey := fmt.Sprintf("processed/%s/frames_%s.zip", video.ID, video.ID)
	if err := uc.storage.Save(ctx, zipKey, zipData); err != nil {
		return fmt.Errorf("upload archive: %w", err)
	}
	metrics.PipelineDuration.WithLabelValues("archive").Observe(time.Since(zipTimer).Seconds())

	video.MarkCompleted(frameURLs, uc.storage.PublicURL(zipKey))
	if err := uc.repo.Save(ctx, video); err != nil {
		return fmt.Errorf("update video to COMPLETED: %w", err)
	}

	metrics.FramesExtractedTotal.Add(float64(len(frameURLs)))
	return nil
}

func (uc *ProcessVideoUseCase) uploadFrames(ctx context.Context, videoID uuid.UUID, framesDir string, frames []string) ([]string, error) {
	urls := make([]string, len(frames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(frameUploadConcurrency)
	for i, name := range frames {
		g.Go(func() error {
			data, err := os.ReadFile(filepath.Join(framesDir, name))
			if err != nil {
				return fmt.Errorf("read frame %s: %w", name, err)
			}
			key := fmt.Sprintf("processed/%s/%s", videoID, name)
			if err := uc.storage.Save(gctx, key, data); err != nil {
				return fmt.Errorf("upload frame %s: %w", name, err)
			}
			urls[i] = key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

func (uc *ProcessVideoUseCase) fail(ctx context.Context, video *entity.Video, cause error, log *zap.Logger) {
	log.Error("video processing failed", zap.Error(cause))

	video.MarkFailed(cause.Error())
	// Direct status write, independent of the in-memory record's consistency.
	if err := uc.repo.UpdateStatus(ctx, video.ID, entity.StatusFailed, cause.Error()); err != nil {
		log.Error("failed to record FAILED status", zap.Error(err))
	}

	metrics.VideosProcessedTotal.WithLabelValues("failed").Inc()
	uc.publishStatus(ctx, video, log)

	if uc.notifier != nil {
		if err := uc.notifier.NotifyFailure(ctx, video.ID.String(), video.OriginalPath, cause.Error()); err != nil {
			log.Warn("failure notification not sent", zap.Error(err))
		}
	}
}

func (uc *ProcessVideoUseCase) publishStatus(ctx context.Context, video *entity.Video, log *zap.Logger) {
	if uc.publisher == nil {
		return
	}
	msg := entity.StatusMessage{
		VideoID:        video.ID,
		UserID:         video.UserID,
		Status:         video.Status,
		FrameCount:     len(video.FrameURLs),
		DownloadZipURL: video.DownloadZipURL,
		ErrorMessage:   video.ErrorMessage,
	}
	data, _ := json.Marshal(msg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status event", zap.Error(err))
	}
}

func listFrameFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frames dir: %w", err)
	}

	var frames []string
	for _, e := range entries {
		if e.IsDir() || !framePattern.MatchString(e.Name()) {
			continue
		}
		frames = append(frames, e.Name())
	}
	if len(frames) == 0 {
		return nil, errors.New("no frames extracted from video")
	}
	sort.Strings(frames)
	return frames, nil
}
