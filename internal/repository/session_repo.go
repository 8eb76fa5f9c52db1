package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"reelgen-backend/internal/models"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

const sessionColumns = `id, user_id, session_name, description, user_prompt, category, status,
	total_files, processed_files, output_video_path, output_video_url, task_id, prompts_json,
	error_message, created_at, updated_at`

func (r *SessionRepo) scanRow(row interface{ Scan(dest ...any) error }) (*models.VideoSession, error) {
	s := &models.VideoSession{}
	err := row.Scan(
		&s.ID, &s.UserID, &s.SessionName, &s.Description, &s.UserPrompt, &s.Category, &s.Status,
		&s.TotalFiles, &s.ProcessedFiles, &s.OutputVideoPath, &s.OutputVideoURL, &s.TaskID,
		&s.PromptsJSON, &s.ErrorMessage, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SessionRepo) Create(ctx context.Context, s *models.VideoSession) error {
	s.ID = uuid.New()
	s.Status = models.SessionStatusPending

	query := `INSERT INTO video_sessions (id, user_id, session_name, description, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		s.ID, s.UserID, s.SessionName, s.Description, s.Status,
	).Scan(&s.CreatedAt)
}

func (r *SessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.VideoSession, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+sessionColumns+" FROM video_sessions WHERE id = $1", id)
	return r.scanRow(row)
}

func (r *SessionRepo) List(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]*models.VideoSession, int, error) {
	var total int

	countQuery := "SELECT COUNT(*) FROM video_sessions"
	listQuery := "SELECT " + sessionColumns + " FROM video_sessions"
	args := []any{}

	if userID != nil {
		countQuery += " WHERE user_id = $1"
		listQuery += " WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3"
		args = append(args, *userID, limit, offset)
		if err := r.pool.QueryRow(ctx, countQuery, *userID).Scan(&total); err != nil {
			return nil, 0, err
		}
	} else {
		listQuery += " ORDER BY created_at DESC LIMIT $1 OFFSET $2"
		args = append(args, limit, offset)
		if err := r.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
			return nil, 0, err
		}
	}

	pgRows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer pgRows.Close()

	var sessions []*models.VideoSession
	for pgRows.Next() {
		s, err := r.scanRow(pgRows)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, s)
	}
	return sessions, total, pgRows.Err()
}

// UpdateMeta updates the user-editable fields of a session.
func (r *SessionRepo) UpdateMeta(ctx context.Context, id uuid.UUID, req models.UpdateSessionRequest) (*models.VideoSession, error) {
	query := `UPDATE video_sessions SET
		session_name = COALESCE($1, session_name),
		description = COALESCE($2, description),
		user_prompt = COALESCE($3, user_prompt),
		category = COALESCE($4, category),
		updated_at = NOW()
		WHERE id = $5
		RETURNING ` + sessionColumns

	row := r.pool.QueryRow(ctx, query, req.SessionName, req.Description, req.UserPrompt, req.Category, id)
	return r.scanRow(row)
}

// MarkProcessing transitions the session into PROCESSING, recording the
// effective prompt and category for this attempt and clearing stale results.
func (r *SessionRepo) MarkProcessing(ctx context.Context, id uuid.UUID, userPrompt, category string) error {
	_, err := r.pool.Exec(ctx, `UPDATE video_sessions SET
		status = $1, user_prompt = $2, category = $3,
		error_message = NULL, updated_at = NOW()
		WHERE id = $4`,
		models.SessionStatusProcessing, userPrompt, category, id)
	return err
}

// RecordExtraction persists the document-extraction stage outcome.
func (r *SessionRepo) RecordExtraction(ctx context.Context, id uuid.UUID, totalFiles, processedFiles int) error {
	_, err := r.pool.Exec(ctx, `UPDATE video_sessions SET
		total_files = $1, processed_files = $2, updated_at = NOW() WHERE id = $3`,
		totalFiles, processedFiles, id)
	return err
}

// RecordPrompts persists the content-analysis stage outcome.
func (r *SessionRepo) RecordPrompts(ctx context.Context, id uuid.UUID, promptsJSON []byte) error {
	if len(promptsJSON) == 0 {
		promptsJSON = []byte("{}")
	}
	_, err := r.pool.Exec(ctx,
		"UPDATE video_sessions SET prompts_json = $1, updated_at = NOW() WHERE id = $2",
		promptsJSON, id)
	return err
}

// MarkCompleted records the terminal success state and the output artifact.
func (r *SessionRepo) MarkCompleted(ctx context.Context, id uuid.UUID, outputPath, outputURL, taskID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE video_sessions SET
		status = $1, output_video_path = $2, output_video_url = $3, task_id = $4,
		error_message = NULL, updated_at = NOW()
		WHERE id = $5`,
		models.SessionStatusCompleted, outputPath, outputURL, taskID, id)
	return err
}

// MarkFailed records the terminal failure state with the triggering error.
func (r *SessionRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE video_sessions SET status = $1, error_message = $2, updated_at = NOW() WHERE id = $3",
		models.SessionStatusFailed, errMsg, id)
	return err
}

// MarkCompletedManually supports the explicit /complete endpoint.
func (r *SessionRepo) MarkCompletedManually(ctx context.Context, id uuid.UUID, outputPath *string) error {
	_, err := r.pool.Exec(ctx, `UPDATE video_sessions SET
		status = $1, output_video_path = COALESCE($2, output_video_path), updated_at = NOW()
		WHERE id = $3`,
		models.SessionStatusCompleted, outputPath, id)
	return err
}

func (r *SessionRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM video_sessions WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
