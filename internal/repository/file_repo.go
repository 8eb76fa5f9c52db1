package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"reelgen-backend/internal/models"
)

type FileRepo struct {
	pool *pgxpool.Pool
}

func NewFileRepo(pool *pgxpool.Pool) *FileRepo {
	return &FileRepo{pool: pool}
}

const fileColumns = `id, user_id, session_id, original_filename, object_name, size, content_type,
	category, status, public_url, download_count, created_at, updated_at`

func (r *FileRepo) scanRow(row interface{ Scan(dest ...any) error }) (*models.File, error) {
	f := &models.File{}
	err := row.Scan(
		&f.ID, &f.UserID, &f.SessionID, &f.OriginalFilename, &f.ObjectName, &f.Size,
		&f.ContentType, &f.Category, &f.Status, &f.PublicURL, &f.DownloadCount,
		&f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *FileRepo) Create(ctx context.Context, f *models.File) error {
	f.ID = uuid.New()
	f.Status = models.FileStatusActive

	query := `INSERT INTO files (id, user_id, session_id, original_filename, object_name, size,
		content_type, category, status, public_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		f.ID, f.UserID, f.SessionID, f.OriginalFilename, f.ObjectName, f.Size,
		f.ContentType, f.Category, f.Status, f.PublicURL,
	).Scan(&f.CreatedAt)
}

func (r *FileRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+fileColumns+" FROM files WHERE id = $1", id)
	return r.scanRow(row)
}

func (r *FileRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.File, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM files WHERE user_id = $1 AND status = $2",
		userID, models.FileStatusActive,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		"SELECT "+fileColumns+` FROM files WHERE user_id = $1 AND status = $2
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		userID, models.FileStatusActive, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var files []*models.File
	for rows.Next() {
		f, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		files = append(files, f)
	}
	return files, total, rows.Err()
}

func (r *FileRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*models.File, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM files WHERE session_id = $1 AND status = $2",
		sessionID, models.FileStatusActive,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		"SELECT "+fileColumns+` FROM files WHERE session_id = $1 AND status = $2
		ORDER BY created_at ASC LIMIT $3 OFFSET $4`,
		sessionID, models.FileStatusActive, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var files []*models.File
	for rows.Next() {
		f, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		files = append(files, f)
	}
	return files, total, rows.Err()
}

func (r *FileRepo) Update(ctx context.Context, id uuid.UUID, req models.UpdateFileRequest) (*models.File, error) {
	query := `UPDATE files SET
		original_filename = COALESCE($1, original_filename),
		session_id = COALESCE($2, session_id),
		updated_at = NOW()
		WHERE id = $3 RETURNING ` + fileColumns

	row := r.pool.QueryRow(ctx, query, req.OriginalFilename, req.SessionID, id)
	return r.scanRow(row)
}

// IncrementDownloadCount bumps the counter on each signed-URL issuance.
func (r *FileRepo) IncrementDownloadCount(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE files SET download_count = download_count + 1, updated_at = NOW() WHERE id = $1", id)
	return err
}

// MarkDeleting is phase one of the two-phase delete: the row survives until
// the object-store delete is confirmed.
func (r *FileRepo) MarkDeleting(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE files SET status = $1, updated_at = NOW() WHERE id = $2",
		models.FileStatusDeleting, id)
	return err
}

// DeleteRow is phase two, run only after the object is gone from storage.
func (r *FileRepo) DeleteRow(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM files WHERE id = $1", id)
	return err
}

// ListDeleting returns rows stranded mid-delete, for the reconciliation sweep.
func (r *FileRepo) ListDeleting(ctx context.Context, limit int) ([]*models.File, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+fileColumns+" FROM files WHERE status = $1 ORDER BY updated_at ASC LIMIT $2",
		models.FileStatusDeleting, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*models.File
	for rows.Next() {
		f, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
