package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/framepipe/video-processing-service/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VideoRepository struct {
	pool *pgxpool.Pool
}

func NewVideoRepository(pool *pgxpool.Pool) *VideoRepository {
	return &VideoRepository{pool: pool}
}

// Save upserts the record: EnqueueVideo and ProcessVideo persist after every
// mutation, and CreateUploadLink inserts the initial row through the same path.
func (r *VideoRepository) Save(ctx context.Context, video *entity.Video) error {
	query := `
		INSERT INTO videos (
			id, user_id, original_path, status, frame_urls,
			download_zip_url, error_message, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			status=EXCLUDED.status,
			frame_urls=EXCLUDED.frame_urls,
			download_zip_url=EXCLUDED.download_zip_url,
			error_message=EXCLUDED.error_message,
			updated_at=EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		video.ID, video.UserID, video.OriginalPath, string(video.Status),
		video.FrameURLs, video.DownloadZipURL, video.ErrorMessage,
		video.CreatedAt, video.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save video: %w", err)
	}
	return nil
}

func (r *VideoRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Video, error) {
	query := `
		SELECT id, user_id, original_path, status, frame_urls,
			download_zip_url, error_message, created_at, updated_at
		FROM videos WHERE id=$1`

	video, err := scanVideo(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("video %s: %w", id, entity.ErrVideoNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find video by id: %w", err)
	}
	return video, nil
}

func (r *VideoRepository) FindAllByUserID(ctx context.Context, userID string) ([]*entity.Video, error) {
	query := `
		SELECT id, user_id, original_path, status, frame_urls,
			download_zip_url, error_message, created_at, updated_at
		FROM videos WHERE user_id=$1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("find videos by user: %w", err)
	}
	defer rows.Close()

	var videos []*entity.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video row: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate video rows: %w", err)
	}
	return videos, nil
}

// UpdateStatus writes status and error directly, bypassing the full record.
func (r *VideoRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.VideoStatus, errMsg string) error {
	query := `UPDATE videos SET status=$2, error_message=$3, updated_at=now() WHERE id=$1`

	tag, err := r.pool.Exec(ctx, query, id, string(status), errMsg)
	if err != nil {
		return fmt.Errorf("update video status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("video %s: %w", id, entity.ErrVideoNotFound)
	}
	return nil
}

func scanVideo(row pgx.Row) (*entity.Video, error) {
	video := &entity.Video{}
	var status string
	err := row.Scan(
		&video.ID, &video.UserID, &video.OriginalPath, &status,
		&video.FrameURLs, &video.DownloadZipURL, &video.ErrorMessage,
		&video.CreatedAt, &video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Checked conversion: an unknown persisted status is a hard error.
	video.Status, err = entity.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return video, nil
}
