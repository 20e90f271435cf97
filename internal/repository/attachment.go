package repository

import (
	"context"

	"apikit/internal/model"
)

// AttachmentQuery narrows and orders an attachment listing.
type AttachmentQuery struct {
	Page        PageQuery
	ProjectID   string
	ContentType string
	OrderBy     []string
}

// AttachmentRepository defines data access for attachment metadata rows.
type AttachmentRepository interface {
	// Create inserts a new attachment row and returns the stored record.
	Create(ctx context.Context, a *model.Attachment) (*model.Attachment, error)

	// FindByID returns an attachment by its ID, or sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Attachment, error)

	// List returns a page of attachments and the total row count for the
	// given query.
	List(ctx context.Context, q AttachmentQuery) (*PageResult[model.Attachment], error)

	// PathsByProject returns the storage paths of every attachment of a
	// project, for object cleanup before the rows cascade away.
	PathsByProject(ctx context.Context, projectID string) ([]string, error)

	// Delete removes an attachment by ID. It returns nil if the row was
	// deleted or did not exist.
	Delete(ctx context.Context, id string) error
}
