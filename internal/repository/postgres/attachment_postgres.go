package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"apikit/internal/model"
	"apikit/internal/repository"
)

// AttachmentPostgres is a PostgreSQL implementation of repository.AttachmentRepository.
// It persists attachment metadata only; the object bytes live in blob storage.
type AttachmentPostgres struct {
	db *sql.DB
}

// NewAttachmentPostgres creates a new AttachmentPostgres repository.
func NewAttachmentPostgres(db *sql.DB) *AttachmentPostgres {
	return &AttachmentPostgres{db: db}
}

var _ repository.AttachmentRepository = (*AttachmentPostgres)(nil)

// attachmentOrderColumns whitelists the ordering fields the API exposes.
var attachmentOrderColumns = map[string]string{
	"filename":   "filename",
	"size":       "size",
	"created_at": "created_at",
}

// Create inserts a new attachment row and returns the stored record.
func (r *AttachmentPostgres) Create(ctx context.Context, a *model.Attachment) (*model.Attachment, error) {
	const q = `
		INSERT INTO attachments (id, project_id, filename, storage_path, size, content_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, project_id, filename, storage_path, size, content_type, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		a.ID,
		a.ProjectID,
		a.Filename,
		a.StoragePath,
		a.Size,
		a.ContentType,
		a.CreatedAt,
	)
	var out model.Attachment
	if err := row.Scan(
		&out.ID,
		&out.ProjectID,
		&out.Filename,
		&out.StoragePath,
		&out.Size,
		&out.ContentType,
		&out.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single attachment by its ID. sql.ErrNoRows passes
// through untouched so callers can map it to a not-found response.
func (r *AttachmentPostgres) FindByID(ctx context.Context, id string) (*model.Attachment, error) {
	const q = `
		SELECT id, project_id, filename, storage_path, size, content_type, created_at
		FROM attachments
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, q, id)
	var a model.Attachment
	if err := row.Scan(
		&a.ID,
		&a.ProjectID,
		&a.Filename,
		&a.StoragePath,
		&a.Size,
		&a.ContentType,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns attachments using LIMIT/OFFSET pagination and a total count.
// ProjectID and ContentType narrow the result when set.
func (r *AttachmentPostgres) List(ctx context.Context, q repository.AttachmentQuery) (*repository.PageResult[model.Attachment], error) {
	conds := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if q.ProjectID != "" {
		args = append(args, q.ProjectID)
		conds = append(conds, fmt.Sprintf("project_id = $%d", len(args)))
	}
	if q.ContentType != "" {
		args = append(args, q.ContentType)
		conds = append(conds, fmt.Sprintf("content_type = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	// Count total rows
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM attachments"+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	// Fetch page
	qList := fmt.Sprintf(`
		SELECT id, project_id, filename, storage_path, size, content_type, created_at
		FROM attachments%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, where, orderClause(q.OrderBy, attachmentOrderColumns, "created_at DESC, id DESC"), len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, qList, append(args, q.Page.Limit, q.Page.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Attachment, 0)
	for rows.Next() {
		var a model.Attachment
		if err := rows.Scan(
			&a.ID,
			&a.ProjectID,
			&a.Filename,
			&a.StoragePath,
			&a.Size,
			&a.ContentType,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Attachment]{
		Items: items,
		Total: total,
	}, nil
}

// PathsByProject returns the storage paths of every attachment belonging to
// a project, so the objects can be removed before the rows cascade away.
func (r *AttachmentPostgres) PathsByProject(ctx context.Context, projectID string) ([]string, error) {
	const q = `SELECT storage_path FROM attachments WHERE project_id = $1`
	rows, err := r.db.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := make([]string, 0)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}

// Delete removes an attachment by ID. It does not return an error if the row does not exist.
func (r *AttachmentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM attachments WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}
