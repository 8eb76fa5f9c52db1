package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"reelgen-backend/internal/models"
)

type VideoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *VideoRepo {
	return &VideoRepo{pool: pool}
}

const videoColumns = `id, user_email, prompt, model, task_id, status, object_name, video_url,
	file_size, error_message, created_at, updated_at`

func (r *VideoRepo) scanRow(row interface{ Scan(dest ...any) error }) (*models.Video, error) {
	v := &models.Video{}
	err := row.Scan(
		&v.ID, &v.UserEmail, &v.Prompt, &v.Model, &v.TaskID, &v.Status, &v.ObjectName,
		&v.VideoURL, &v.FileSize, &v.ErrorMessage, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *VideoRepo) Create(ctx context.Context, v *models.Video) error {
	v.ID = uuid.New()
	v.Status = models.TaskStatusPending

	query := `INSERT INTO videos (id, user_email, prompt, model, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		v.ID, v.UserEmail, v.Prompt, v.Model, v.Status,
	).Scan(&v.CreatedAt)
}

func (r *VideoRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+videoColumns+" FROM videos WHERE id = $1", id)
	return r.scanRow(row)
}

func (r *VideoRepo) GetByTaskID(ctx context.Context, taskID string) (*models.Video, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+videoColumns+" FROM videos WHERE task_id = $1", taskID)
	return r.scanRow(row)
}

func (r *VideoRepo) List(ctx context.Context, limit, offset int) ([]*models.Video, error) {
	return r.list(ctx,
		"SELECT "+videoColumns+" FROM videos ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
}

func (r *VideoRepo) ListByUserEmail(ctx context.Context, email string) ([]*models.Video, error) {
	return r.list(ctx,
		"SELECT "+videoColumns+" FROM videos WHERE user_email = $1 ORDER BY created_at DESC",
		email)
}

func (r *VideoRepo) list(ctx context.Context, query string, args ...any) ([]*models.Video, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		v, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (r *VideoRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE videos SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	return err
}

func (r *VideoRepo) SetTaskID(ctx context.Context, id uuid.UUID, taskID string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE videos SET task_id = $1, updated_at = NOW() WHERE id = $2", taskID, id)
	return err
}

func (r *VideoRepo) MarkCompleted(ctx context.Context, id uuid.UUID, objectName, videoURL string, fileSize int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE videos SET
		status = $1, object_name = $2, video_url = $3, file_size = $4,
		error_message = NULL, updated_at = NOW()
		WHERE id = $5`,
		models.TaskStatusCompleted, objectName, videoURL, fileSize, id)
	return err
}

func (r *VideoRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE videos SET status = $1, error_message = $2, updated_at = NOW() WHERE id = $3",
		models.TaskStatusFailed, errMsg, id)
	return err
}

func (r *VideoRepo) Update(ctx context.Context, id uuid.UUID, req models.UpdateVideoRequest) (*models.Video, error) {
	query := `UPDATE videos SET
		status = COALESCE($1, status),
		video_url = COALESCE($2, video_url),
		updated_at = NOW()
		WHERE id = $3 RETURNING ` + videoColumns

	row := r.pool.QueryRow(ctx, query, req.Status, req.VideoURL, id)
	return r.scanRow(row)
}
