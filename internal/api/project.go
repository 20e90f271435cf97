package api

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"apikit/internal/model"
	"apikit/internal/repository"
	"apikit/internal/storage"
	"apikit/rest"
)

const (
	maxProjectNameLen        = 120
	maxProjectDescriptionLen = 2000
)

// CreateProjectInput is the payload for creating a project.
type CreateProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateProjectInput is the payload for updating a project. Pointer fields
// distinguish absent from empty so PATCH can leave fields untouched.
type UpdateProjectInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ProjectSerializer validates project create payloads and shapes project
// responses. The model's JSON tags already match the API representation, so
// Out is the identity.
type ProjectSerializer struct{}

func (ProjectSerializer) Decode(c *fiber.Ctx) (CreateProjectInput, error) {
	return rest.JSONDecode[CreateProjectInput](c)
}

func (ProjectSerializer) Validate(ctx context.Context, req *rest.Request, in *CreateProjectInput) error {
	in.Name = strings.TrimSpace(in.Name)

	verr := &rest.ValidationError{}
	if in.Name == "" {
		verr.Add("name", "name is required")
	} else if len(in.Name) > maxProjectNameLen {
		verr.Add("name", "name must be at most 120 characters")
	}
	if len(in.Description) > maxProjectDescriptionLen {
		verr.Add("description", "description must be at most 2000 characters")
	}
	return verr.Err()
}

func (ProjectSerializer) Out(p model.Project) any {
	return p
}

// ProjectUpdateSerializer validates project update payloads. PUT requires
// name; PATCH accepts any subset of fields.
type ProjectUpdateSerializer struct {
	ProjectSerializer
}

func (ProjectUpdateSerializer) Decode(c *fiber.Ctx) (UpdateProjectInput, error) {
	return rest.JSONDecode[UpdateProjectInput](c)
}

func (ProjectUpdateSerializer) Validate(ctx context.Context, req *rest.Request, in *UpdateProjectInput) error {
	verr := &rest.ValidationError{}
	if in.Name != nil {
		*in.Name = strings.TrimSpace(*in.Name)
		if *in.Name == "" {
			verr.Add("name", "name cannot be blank")
		} else if len(*in.Name) > maxProjectNameLen {
			verr.Add("name", "name must be at most 120 characters")
		}
	} else if !req.Partial {
		verr.Add("name", "name is required")
	}
	if in.Description != nil && len(*in.Description) > maxProjectDescriptionLen {
		verr.Add("description", "description must be at most 2000 characters")
	}
	return verr.Err()
}

// ProjectCreateCommandProcessor persists a new project.
type ProjectCreateCommandProcessor struct {
	Projects repository.ProjectRepository
}

func (p *ProjectCreateCommandProcessor) Execute(ctx context.Context, req *rest.Request, in CreateProjectInput) (model.Project, error) {
	now := time.Now().UTC()
	created, err := p.Projects.Create(ctx, &model.Project{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return model.Project{}, err
	}
	return *created, nil
}

// ProjectUpdateCommandProcessor applies a full or partial update to a
// project.
type ProjectUpdateCommandProcessor struct {
	Projects repository.ProjectRepository
}

func (p *ProjectUpdateCommandProcessor) Execute(ctx context.Context, req *rest.Request, in UpdateProjectInput) (model.Project, error) {
	current, err := p.Projects.FindByID(ctx, req.LookupValue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Project{}, rest.NotFound("project not found")
		}
		return model.Project{}, err
	}

	next := *current
	if in.Name != nil {
		next.Name = *in.Name
	}
	if in.Description != nil {
		next.Description = *in.Description
	} else if !req.Partial {
		// PUT replaces the resource; an omitted description clears it.
		next.Description = ""
	}
	next.UpdatedAt = time.Now().UTC()

	updated, err := p.Projects.Update(ctx, &next)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Project{}, rest.NotFound("project not found")
		}
		return model.Project{}, err
	}
	return *updated, nil
}

// ProjectQueryProcessor lists projects honoring the search term and ordering
// admitted by the endpoint's filter backends.
type ProjectQueryProcessor struct {
	Projects repository.ProjectRepository
}

func (p *ProjectQueryProcessor) Execute(ctx context.Context, req *rest.Request) (rest.Page[model.Project], error) {
	res, err := p.Projects.List(ctx, repository.ProjectQuery{
		Page:       repository.PageQuery{Limit: req.Page.Limit, Offset: req.Page.Offset},
		NameSearch: req.Filter(rest.SearchParam),
		OrderBy:    req.Ordering,
	})
	if err != nil {
		return rest.Page[model.Project]{}, err
	}
	return rest.Page[model.Project]{Items: res.Items, Total: res.Total}, nil
}

// ProjectDetailQueryProcessor loads one project by its ID.
type ProjectDetailQueryProcessor struct {
	Projects repository.ProjectRepository
}

func (p *ProjectDetailQueryProcessor) Execute(ctx context.Context, req *rest.Request) (model.Project, error) {
	proj, err := p.Projects.FindByID(ctx, req.LookupValue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Project{}, rest.NotFound("project not found")
		}
		return model.Project{}, err
	}
	return *proj, nil
}

// ProjectDeleteCommandProcessor deletes a project. Stored attachment objects
// are removed from object storage first; their metadata rows then cascade
// away with the project row.
type ProjectDeleteCommandProcessor struct {
	Projects    repository.ProjectRepository
	Attachments repository.AttachmentRepository
	Store       storage.Storage
}

func (p *ProjectDeleteCommandProcessor) Execute(ctx context.Context, req *rest.Request) error {
	id := req.LookupValue
	if _, err := p.Projects.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rest.NotFound("project not found")
		}
		return err
	}

	paths, err := p.Attachments.PathsByProject(ctx, id)
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := p.Store.Delete(ctx, path); err != nil {
			return err
		}
	}

	return p.Projects.Delete(ctx, id)
}

// ProjectListCreateAPI builds the collection endpoint for projects:
// GET lists with search, ordering and pagination, POST creates.
func ProjectListCreateAPI(projects repository.ProjectRepository, paginator rest.Paginator) *rest.ListCreateAPI[CreateProjectInput, model.Project] {
	return &rest.ListCreateAPI[CreateProjectInput, model.Project]{
		Serializer: ProjectSerializer{},
		Command:    &ProjectCreateCommandProcessor{Projects: projects},
		Query:      &ProjectQueryProcessor{Projects: projects},
		Filters: []rest.FilterBackend{
			rest.SearchFilter{},
			rest.OrderingFilter{Fields: []string{"name", "created_at", "updated_at"}},
		},
		Paginator: paginator,
		Location: func(p model.Project) string {
			return "/projects/" + p.ID
		},
	}
}

// ProjectDetailAPI builds the detail endpoint for projects: GET retrieves,
// PUT and PATCH update, DELETE removes the project and its attachments.
func ProjectDetailAPI(projects repository.ProjectRepository, attachments repository.AttachmentRepository, store storage.Storage) *rest.RetrieveUpdateDestroyAPI[UpdateProjectInput, model.Project] {
	return &rest.RetrieveUpdateDestroyAPI[UpdateProjectInput, model.Project]{
		Serializer: ProjectUpdateSerializer{},
		Retrieve:   &ProjectDetailQueryProcessor{Projects: projects},
		Update:     &ProjectUpdateCommandProcessor{Projects: projects},
		Destroy: &ProjectDeleteCommandProcessor{
			Projects:    projects,
			Attachments: attachments,
			Store:       store,
		},
		ValidateLookup: rest.UUIDLookup,
	}
}
