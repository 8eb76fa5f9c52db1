package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"reelgen-backend/internal/models"
)

type AudioRepo struct {
	pool *pgxpool.Pool
}

func NewAudioRepo(pool *pgxpool.Pool) *AudioRepo {
	return &AudioRepo{pool: pool}
}

const audioColumns = `id, user_email, text_input, voice_name, language_code, audio_format,
	status, object_name, file_size, error_message, created_at, updated_at`

func (r *AudioRepo) scanRow(row interface{ Scan(dest ...any) error }) (*models.Audio, error) {
	a := &models.Audio{}
	err := row.Scan(
		&a.ID, &a.UserEmail, &a.TextInput, &a.VoiceName, &a.LanguageCode, &a.AudioFormat,
		&a.Status, &a.ObjectName, &a.FileSize, &a.ErrorMessage, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AudioRepo) Create(ctx context.Context, a *models.Audio) error {
	a.ID = uuid.New()
	a.Status = models.TaskStatusPending

	query := `INSERT INTO audios (id, user_email, text_input, voice_name, language_code, audio_format, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		a.ID, a.UserEmail, a.TextInput, a.VoiceName, a.LanguageCode, a.AudioFormat, a.Status,
	).Scan(&a.CreatedAt)
}

func (r *AudioRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Audio, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+audioColumns+" FROM audios WHERE id = $1", id)
	return r.scanRow(row)
}

func (r *AudioRepo) List(ctx context.Context, limit, offset int) ([]*models.Audio, error) {
	return r.list(ctx,
		"SELECT "+audioColumns+" FROM audios ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
}

func (r *AudioRepo) ListByUserEmail(ctx context.Context, email string) ([]*models.Audio, error) {
	return r.list(ctx,
		"SELECT "+audioColumns+" FROM audios WHERE user_email = $1 ORDER BY created_at DESC",
		email)
}

func (r *AudioRepo) list(ctx context.Context, query string, args ...any) ([]*models.Audio, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var audios []*models.Audio
	for rows.Next() {
		a, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		audios = append(audios, a)
	}
	return audios, rows.Err()
}

func (r *AudioRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE audios SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	return err
}

func (r *AudioRepo) MarkCompleted(ctx context.Context, id uuid.UUID, objectName string, fileSize int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE audios SET
		status = $1, object_name = $2, file_size = $3, error_message = NULL, updated_at = NOW()
		WHERE id = $4`,
		models.TaskStatusCompleted, objectName, fileSize, id)
	return err
}

func (r *AudioRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE audios SET status = $1, error_message = $2, updated_at = NOW() WHERE id = $3",
		models.TaskStatusFailed, errMsg, id)
	return err
}
