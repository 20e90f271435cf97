package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"apikit/internal/model"
	"apikit/internal/repository"
)

// ProjectPostgres is a PostgreSQL implementation of repository.ProjectRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type ProjectPostgres struct {
	db *sql.DB
}

// NewProjectPostgres creates a new ProjectPostgres repository.
func NewProjectPostgres(db *sql.DB) *ProjectPostgres {
	return &ProjectPostgres{db: db}
}

var _ repository.ProjectRepository = (*ProjectPostgres)(nil)

// projectOrderColumns whitelists the ordering fields the API exposes.
var projectOrderColumns = map[string]string{
	"name":       "name",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// Create inserts a new project row and returns the stored record.
func (r *ProjectPostgres) Create(ctx context.Context, p *model.Project) (*model.Project, error) {
	const q = `
		INSERT INTO projects (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, description, created_at, updated_at
	`
	row := r.db.QueryRowContext(ctx, q,
		p.ID,
		p.Name,
		p.Description,
		p.CreatedAt,
		p.UpdatedAt,
	)
	var out model.Project
	if err := row.Scan(
		&out.ID,
		&out.Name,
		&out.Description,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single project by its ID. sql.ErrNoRows passes through
// untouched so callers can map it to a not-found response.
func (r *ProjectPostgres) FindByID(ctx context.Context, id string) (*model.Project, error) {
	const q = `
		SELECT id, name, description, created_at, updated_at
		FROM projects
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, q, id)
	var p model.Project
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update persists name, description and updated_at for an existing row and
// returns the stored record. A missing row surfaces as sql.ErrNoRows.
func (r *ProjectPostgres) Update(ctx context.Context, p *model.Project) (*model.Project, error) {
	const q = `
		UPDATE projects
		SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
		RETURNING id, name, description, created_at, updated_at
	`
	row := r.db.QueryRowContext(ctx, q,
		p.ID,
		p.Name,
		p.Description,
		p.UpdatedAt,
	)
	var out model.Project
	if err := row.Scan(
		&out.ID,
		&out.Name,
		&out.Description,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns projects using LIMIT/OFFSET pagination and a total count.
// NameSearch narrows by case-insensitive substring match on the name.
func (r *ProjectPostgres) List(ctx context.Context, q repository.ProjectQuery) (*repository.PageResult[model.Project], error) {
	where := ""
	args := make([]any, 0, 3)
	if q.NameSearch != "" {
		args = append(args, q.NameSearch)
		where = " WHERE name ILIKE '%' || $1 || '%'"
	}

	// Count total rows
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects"+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	// Fetch page
	qList := fmt.Sprintf(`
		SELECT id, name, description, created_at, updated_at
		FROM projects%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, where, orderClause(q.OrderBy, projectOrderColumns, "created_at DESC, id DESC"), len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, qList, append(args, q.Page.Limit, q.Page.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Project, 0)
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Project]{
		Items: items,
		Total: total,
	}, nil
}

// Delete removes a project by ID. It does not return an error if the row does not exist.
func (r *ProjectPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM projects WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}
