package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"apikit/internal/repository"
	"apikit/internal/storage"
	"apikit/rest"
)

// Deps bundles the dependencies the route table injects into endpoints.
type Deps struct {
	DB            *sql.DB
	Projects      repository.ProjectRepository
	Attachments   repository.AttachmentRepository
	Store         storage.Storage
	Paginator     rest.Paginator
	PresignTTL    time.Duration
	MaxUploadSize int64
}

// RegisterRoutes attaches all HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())

	ProjectListCreateAPI(d.Projects, d.Paginator).Mount(app, "/projects")
	ProjectDetailAPI(d.Projects, d.Attachments, d.Store).Mount(app, "/projects/:id")

	AttachmentListCreateAPI(d.Projects, d.Attachments, d.Store, d.Paginator, d.MaxUploadSize).Mount(app, "/projects/:id/attachments")
	AttachmentDetailAPI(d.Attachments, d.Store, d.PresignTTL).Mount(app, "/attachments/:id")
	app.Get("/attachments/:id/download", DownloadAttachment(d.Attachments, d.Store))
}

// HealthCheck reports whether the database dependency is reachable.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return rest.WriteError(c, fiber.StatusServiceUnavailable, rest.CodeUnavailable, "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a trivial 200 probe for orchestrators.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// DownloadAttachment streams the stored object through the API with the
// original filename. Deployments where clients cannot reach the object
// store directly use this instead of the presigned URL.
func DownloadAttachment(attachments repository.AttachmentRepository, store storage.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return rest.BadRequest(rest.CodeInvalidID, "invalid id format")
		}

		att, err := attachments.FindByID(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return rest.NotFound("attachment not found")
			}
			return err
		}

		obj, info, err := store.Get(c.UserContext(), att.StoragePath)
		if err != nil {
			return fmt.Errorf("get object: %w", err)
		}

		// fasthttp closes the stream after the response is sent.
		c.Set(fiber.HeaderContentType, att.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", att.Filename))
		return c.SendStream(obj, int(info.Size))
	}
}
