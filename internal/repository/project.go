package repository

import (
	"context"

	"apikit/internal/model"
)

// ProjectQuery narrows and orders a project listing. OrderBy terms arrive
// already validated by the API layer's ordering filter ("-" prefix means
// descending); implementations map them onto columns through a whitelist.
type ProjectQuery struct {
	Page       PageQuery
	NameSearch string
	OrderBy    []string
}

// ProjectRepository defines data access for projects using SQL queries only.
// No business logic here — strictly persistence operations.
type ProjectRepository interface {
	// Create inserts a new project row and returns the stored record.
	Create(ctx context.Context, p *model.Project) (*model.Project, error)

	// FindByID returns a project by its ID, or sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Project, error)

	// Update persists name/description/updated_at for an existing row and
	// returns the stored record, or sql.ErrNoRows when the row is gone.
	Update(ctx context.Context, p *model.Project) (*model.Project, error)

	// List returns a page of projects and the total row count for the
	// given query.
	List(ctx context.Context, q ProjectQuery) (*PageResult[model.Project], error)

	// Delete removes a project by ID. It returns nil if the row was
	// deleted or did not exist.
	Delete(ctx context.Context, id string) error
}
