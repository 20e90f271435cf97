package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"apikit/internal/model"
	"apikit/internal/repository"
	"apikit/internal/storage"
	"apikit/rest"
)

// Error codes specific to attachment uploads.
const (
	codeFileRequired  = "FILE_REQUIRED"
	codeFileOpenError = "FILE_OPEN_ERROR"
)

// defaultPresignTTL bounds presigned download URLs when no expiry is
// configured.
const defaultPresignTTL = 15 * time.Minute

// UploadAttachmentInput carries one uploaded file from a multipart form.
type UploadAttachmentInput struct {
	File        *multipart.FileHeader
	Filename    string
	ContentType string
	Size        int64
}

// AttachmentWithURL is the detail representation of an attachment: the
// stored metadata plus a presigned download URL.
type AttachmentWithURL struct {
	model.Attachment
	DownloadURL string `json:"download_url"`
}

// AttachmentSerializer decodes multipart upload forms (field name: file)
// and shapes attachment responses.
type AttachmentSerializer struct {
	// MaxSize bounds the accepted upload size in bytes; zero means no bound.
	MaxSize int64
}

func (s AttachmentSerializer) Decode(c *fiber.Ctx) (UploadAttachmentInput, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return UploadAttachmentInput{}, rest.BadRequest(codeFileRequired, "file is required")
	}

	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}

	return UploadAttachmentInput{
		File:        fh,
		Filename:    fh.Filename,
		ContentType: ct,
		Size:        fh.Size,
	}, nil
}

func (s AttachmentSerializer) Validate(ctx context.Context, req *rest.Request, in *UploadAttachmentInput) error {
	verr := &rest.ValidationError{}
	if strings.TrimSpace(in.Filename) == "" {
		verr.Add("file", "filename is required")
	}
	if s.MaxSize > 0 && in.Size > s.MaxSize {
		verr.Add("file", fmt.Sprintf("file exceeds the maximum size of %d bytes", s.MaxSize))
	}
	return verr.Err()
}

func (s AttachmentSerializer) Out(a model.Attachment) any {
	return a
}

// AttachmentDetailSerializer shapes the detail response. The download URL
// is already resolved by the detail query processor.
type AttachmentDetailSerializer struct{}

func (AttachmentDetailSerializer) Out(a AttachmentWithURL) any {
	return a
}

// AttachmentUploadCommandProcessor streams an uploaded file to object
// storage and records its metadata. The object is removed again when the
// metadata insert fails, so storage and database stay consistent. The owning
// project comes from the route's :id parameter.
type AttachmentUploadCommandProcessor struct {
	Projects    repository.ProjectRepository
	Attachments repository.AttachmentRepository
	Store       storage.Storage
}

func (p *AttachmentUploadCommandProcessor) Execute(ctx context.Context, req *rest.Request, in UploadAttachmentInput) (model.Attachment, error) {
	projectID := req.Param("id")
	if _, err := uuid.Parse(projectID); err != nil {
		return model.Attachment{}, rest.BadRequest(rest.CodeInvalidID, "invalid id format")
	}
	if _, err := p.Projects.FindByID(ctx, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Attachment{}, rest.NotFound("project not found")
		}
		return model.Attachment{}, err
	}

	f, err := in.File.Open()
	if err != nil {
		return model.Attachment{}, rest.BadRequest(codeFileOpenError, "cannot open uploaded file")
	}
	defer f.Close()

	// Store under a generated key; the original filename lives in the
	// metadata row and on the object.
	ext := filepath.Ext(in.Filename)
	key := filepath.ToSlash(filepath.Join("attachments", uuid.New().String()+ext))

	objInfo, err := p.Store.Put(ctx, key, f, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: in.ContentType,
		Metadata: map[string]string{
			"original-filename": in.Filename,
		},
	})
	if err != nil {
		return model.Attachment{}, fmt.Errorf("upload to storage: %w", err)
	}

	att := &model.Attachment{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		Filename:    in.Filename,
		StoragePath: objInfo.Key,
		Size:        objInfo.Size,
		ContentType: objInfo.ContentType,
		CreatedAt:   time.Now().UTC(),
	}
	stored, err := p.Attachments.Create(ctx, att)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := p.Store.Delete(ctx, key); delErr != nil {
			return model.Attachment{}, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return model.Attachment{}, fmt.Errorf("db save failed: %w", err)
	}
	return *stored, nil
}

// AttachmentQueryProcessor lists a project's attachments, narrowed by the
// content_type filter when present. A missing project yields a 404 rather
// than an empty page.
type AttachmentQueryProcessor struct {
	Projects    repository.ProjectRepository
	Attachments repository.AttachmentRepository
}

func (p *AttachmentQueryProcessor) Execute(ctx context.Context, req *rest.Request) (rest.Page[model.Attachment], error) {
	projectID := req.Param("id")
	if _, err := uuid.Parse(projectID); err != nil {
		return rest.Page[model.Attachment]{}, rest.BadRequest(rest.CodeInvalidID, "invalid id format")
	}
	if _, err := p.Projects.FindByID(ctx, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rest.Page[model.Attachment]{}, rest.NotFound("project not found")
		}
		return rest.Page[model.Attachment]{}, err
	}

	res, err := p.Attachments.List(ctx, repository.AttachmentQuery{
		Page:        repository.PageQuery{Limit: req.Page.Limit, Offset: req.Page.Offset},
		ProjectID:   projectID,
		ContentType: req.Filter("content_type"),
		OrderBy:     req.Ordering,
	})
	if err != nil {
		return rest.Page[model.Attachment]{}, err
	}
	return rest.Page[model.Attachment]{Items: res.Items, Total: res.Total}, nil
}

// AttachmentDetailQueryProcessor loads one attachment and resolves a
// presigned download URL for it.
type AttachmentDetailQueryProcessor struct {
	Attachments repository.AttachmentRepository
	Store       storage.Storage
	PresignTTL  time.Duration
}

func (p *AttachmentDetailQueryProcessor) Execute(ctx context.Context, req *rest.Request) (AttachmentWithURL, error) {
	att, err := p.Attachments.FindByID(ctx, req.LookupValue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AttachmentWithURL{}, rest.NotFound("attachment not found")
		}
		return AttachmentWithURL{}, err
	}

	ttl := p.PresignTTL
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}
	u, err := p.Store.PresignGet(ctx, att.StoragePath, ttl)
	if err != nil {
		return AttachmentWithURL{}, fmt.Errorf("presign download: %w", err)
	}

	return AttachmentWithURL{Attachment: *att, DownloadURL: u}, nil
}

// AttachmentDeleteCommandProcessor removes an attachment's object from
// storage first, then its metadata row. A storage failure keeps the row so
// the object reference is not lost.
type AttachmentDeleteCommandProcessor struct {
	Attachments repository.AttachmentRepository
	Store       storage.Storage
}

func (p *AttachmentDeleteCommandProcessor) Execute(ctx context.Context, req *rest.Request) error {
	att, err := p.Attachments.FindByID(ctx, req.LookupValue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rest.NotFound("attachment not found")
		}
		return err
	}

	if err := p.Store.Delete(ctx, att.StoragePath); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	return p.Attachments.Delete(ctx, att.ID)
}

// AttachmentListCreateAPI builds the project-scoped collection endpoint,
// mounted at /projects/:id/attachments: GET lists a project's attachments,
// POST uploads a new one as multipart/form-data (field name: file).
func AttachmentListCreateAPI(projects repository.ProjectRepository, attachments repository.AttachmentRepository, store storage.Storage, paginator rest.Paginator, maxSize int64) *rest.ListCreateAPI[UploadAttachmentInput, model.Attachment] {
	return &rest.ListCreateAPI[UploadAttachmentInput, model.Attachment]{
		Serializer: AttachmentSerializer{MaxSize: maxSize},
		Command: &AttachmentUploadCommandProcessor{
			Projects:    projects,
			Attachments: attachments,
			Store:       store,
		},
		Query: &AttachmentQueryProcessor{
			Projects:    projects,
			Attachments: attachments,
		},
		Filters: []rest.FilterBackend{
			rest.QueryParamFilter{Params: []string{"content_type"}},
			rest.OrderingFilter{Fields: []string{"filename", "size", "created_at"}},
		},
		Paginator: paginator,
		Location: func(a model.Attachment) string {
			return "/attachments/" + a.ID
		},
	}
}

// AttachmentDetailAPI builds the detail endpoint mounted at
// /attachments/:id: GET returns the metadata plus a presigned download URL,
// DELETE removes the object and its row.
func AttachmentDetailAPI(attachments repository.AttachmentRepository, store storage.Storage, presignTTL time.Duration) *rest.RetrieveDestroyAPI[AttachmentWithURL] {
	return &rest.RetrieveDestroyAPI[AttachmentWithURL]{
		Serializer: AttachmentDetailSerializer{},
		Retrieve: &AttachmentDetailQueryProcessor{
			Attachments: attachments,
			Store:       store,
			PresignTTL:  presignTTL,
		},
		Destroy: &AttachmentDeleteCommandProcessor{
			Attachments: attachments,
			Store:       store,
		},
		ValidateLookup: rest.UUIDLookup,
	}
}
