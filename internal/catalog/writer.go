package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"voxclip/internal/clipstore"
	"voxclip/internal/services"
)

// Recorder persists a video and its confirmed clips and reads them back.
type Recorder interface {
	Persist(ctx context.Context, video clipstore.Video, clips []clipstore.Clip) ([]Row, error)
	GetVideo(ctx context.Context, videoID string) (VideoRow, error)
	ListClips(ctx context.Context, videoID string) ([]ClipRow, error)
}

// Row identifies one persisted clip.
type Row struct {
	ID        string `json:"id"`
	VideoID   string `json:"video_id"`
	ClipIndex int    `json:"clip_index"`
	ClipName  string `json:"clip_name"`
}

const upsertVideoSQL = `INSERT INTO videos (
    video_id, source_url, title, description, uploader, upload_date, thumbnail,
    duration_seconds, sample_rate, clip_count, vad_aggressiveness, start_padding, end_padding,
    created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (video_id) DO UPDATE SET
    source_url = excluded.source_url,
    title = excluded.title,
    description = excluded.description,
    uploader = excluded.uploader,
    upload_date = excluded.upload_date,
    thumbnail = excluded.thumbnail,
    duration_seconds = excluded.duration_seconds,
    sample_rate = excluded.sample_rate,
    clip_count = excluded.clip_count,
    vad_aggressiveness = excluded.vad_aggressiveness,
    start_padding = excluded.start_padding,
    end_padding = excluded.end_padding,
    updated_at = excluded.updated_at`

const upsertClipSQL = `INSERT INTO clips (
    id, video_id, clip_index, clip_name, start_seconds, end_seconds, padded_start, padded_end,
    duration_seconds, transcript, transcript_language, cloud_ref, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (video_id, clip_index) DO UPDATE SET
    clip_name = excluded.clip_name,
    start_seconds = excluded.start_seconds,
    end_seconds = excluded.end_seconds,
    padded_start = excluded.padded_start,
    padded_end = excluded.padded_end,
    duration_seconds = excluded.duration_seconds,
    transcript = excluded.transcript,
    transcript_language = excluded.transcript_language,
    cloud_ref = excluded.cloud_ref,
    updated_at = excluded.updated_at
RETURNING id`

// Persist upserts video and clips in one transaction and returns the row id
// of every clip. Every clip must carry a storage reference. Any failure
// rolls the transaction back and is reported as ErrPersistence.
func (s *Store) Persist(ctx context.Context, video clipstore.Video, clips []clipstore.Clip) ([]Row, error) {
	if video.VideoID == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "persist", "video id required", nil)
	}
	for _, clip := range clips {
		if !clip.Uploaded() {
			return nil, services.Wrap(services.ErrValidation, "catalog", "persist", fmt.Sprintf("clip %s has no storage reference", clip.Name), nil)
		}
	}

	var rows []Row
	err := retryOnBusy(ctx, func() error {
		var txErr error
		rows, txErr = s.persistTx(ctx, video, clips)
		return txErr
	})
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "catalog", "persist", "video "+video.VideoID, err)
	}
	return rows, nil
}

func (s *Store) persistTx(ctx context.Context, video clipstore.Video, clips []clipstore.Clip) ([]Row, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	created := now
	if !video.CreatedAt.IsZero() {
		created = video.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(upsertVideoSQL),
		video.VideoID,
		video.SourceURL,
		video.Title,
		video.Description,
		video.Uploader,
		video.UploadDate,
		video.Thumbnail,
		video.DurationSeconds,
		video.SampleRate,
		video.ClipCount,
		video.VADAggressiveness,
		video.StartPadding,
		video.EndPadding,
		created,
		now,
	); err != nil {
		return nil, fmt.Errorf("upsert video: %w", err)
	}

	query := s.rebind(upsertClipSQL)
	rows := make([]Row, 0, len(clips))
	for _, clip := range clips {
		var id string
		err := tx.QueryRowContext(ctx, query,
			uuid.NewString(),
			video.VideoID,
			clip.Index,
			clip.Name,
			clip.Start,
			clip.End,
			clip.PaddedStart,
			clip.PaddedEnd,
			clip.Duration,
			clip.Transcript,
			clip.TranscriptLanguage,
			clip.CloudRef,
			now,
			now,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("upsert clip %d: %w", clip.Index, err)
		}
		rows = append(rows, Row{ID: id, VideoID: video.VideoID, ClipIndex: clip.Index, ClipName: clip.Name})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return rows, nil
}

// VideoRow is a persisted video.
type VideoRow struct {
	VideoID         string    `json:"video_id"`
	SourceURL       string    `json:"source_url"`
	Title           string    `json:"title"`
	DurationSeconds float64   `json:"duration_seconds"`
	ClipCount       int       `json:"clip_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ClipRow is a persisted clip.
type ClipRow struct {
	ID              string  `json:"id"`
	VideoID         string  `json:"video_id"`
	ClipIndex       int     `json:"clip_index"`
	ClipName        string  `json:"clip_name"`
	DurationSeconds float64 `json:"duration_seconds"`
	Transcript      string  `json:"transcript"`
	CloudRef        string  `json:"cloud_ref"`
}

// GetVideo returns the stored video row or ErrNotFound.
func (s *Store) GetVideo(ctx context.Context, videoID string) (VideoRow, error) {
	var (
		row              VideoRow
		created, updated string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT video_id, source_url, title, duration_seconds, clip_count, created_at, updated_at
FROM videos WHERE video_id = ?`), videoID).Scan(
		&row.VideoID, &row.SourceURL, &row.Title, &row.DurationSeconds, &row.ClipCount, &created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return VideoRow{}, services.Wrap(services.ErrNotFound, "catalog", "get video", "video "+videoID+" not cataloged", nil)
	}
	if err != nil {
		return VideoRow{}, services.Wrap(services.ErrPersistence, "catalog", "get video", "", err)
	}
	row.CreatedAt = parseTime(created)
	row.UpdatedAt = parseTime(updated)
	return row, nil
}

// ListClips returns the clip rows of a video ordered by index.
func (s *Store) ListClips(ctx context.Context, videoID string) ([]ClipRow, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, video_id, clip_index, clip_name, duration_seconds, transcript, cloud_ref
FROM clips WHERE video_id = ? ORDER BY clip_index`), videoID)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "catalog", "list clips", "", err)
	}
	defer rows.Close()

	out := make([]ClipRow, 0)
	for rows.Next() {
		var row ClipRow
		if err := rows.Scan(&row.ID, &row.VideoID, &row.ClipIndex, &row.ClipName, &row.DurationSeconds, &row.Transcript, &row.CloudRef); err != nil {
			return nil, services.Wrap(services.ErrPersistence, "catalog", "list clips", "scan", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "catalog", "list clips", "", err)
	}
	return out, nil
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
