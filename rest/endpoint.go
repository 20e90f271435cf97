package rest

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Guard decides whether the request may proceed at all, before any payload
// is decoded. Returning a *Error controls the response; any other error is
// rendered as a 403.
type Guard func(ctx context.Context, req *Request) error

// ObjectGuard decides whether the request may see the retrieved object.
// Same error contract as Guard.
type ObjectGuard[E any] func(ctx context.Context, req *Request, e E) error

// DefaultLookupParam is the route parameter detail endpoints read when no
// LookupParam is configured.
const DefaultLookupParam = "id"

// UUIDLookup validates that a lookup value is a UUID, rejecting malformed
// ids with a 400 before the processor runs.
func UUIDLookup(value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return BadRequest(CodeInvalidID, "invalid id format")
	}
	return nil
}

var tracer = otel.Tracer("apikit/rest")

func startSpan(c *fiber.Ctx, op string) (context.Context, trace.Span) {
	return tracer.Start(c.UserContext(), op,
		trace.WithAttributes(
			attribute.String("http.route", c.Route().Path),
			attribute.String("http.method", c.Method()),
		))
}

func traceErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func runGuard(ctx context.Context, g Guard, req *Request) error {
	if g == nil {
		return nil
	}
	if err := g(ctx, req); err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return err
		}
		return Forbidden("permission denied")
	}
	return nil
}

func runObjectGuard[E any](ctx context.Context, g ObjectGuard[E], req *Request, e E) error {
	if g == nil {
		return nil
	}
	if err := g(ctx, req, e); err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return err
		}
		return Forbidden("permission denied")
	}
	return nil
}

func applyFilters(c *fiber.Ctx, req *Request, backends []FilterBackend) error {
	for _, b := range backends {
		if err := b.Filter(c, req); err != nil {
			return err
		}
	}
	return nil
}

// resolveLookup extracts the detail lookup value from the matched route. A
// route mounted without the lookup token is a programming error and fails
// loudly with a 500 on first use.
func resolveLookup(req *Request, param string, validate func(string) error) error {
	if param == "" {
		param = DefaultLookupParam
	}
	value, ok := req.PathParams[param]
	if !ok {
		return fmt.Errorf("detail route has no %q parameter; fix the mount path or set LookupParam", param)
	}
	if validate != nil {
		if err := validate(value); err != nil {
			return err
		}
	}
	req.LookupParam = param
	req.LookupValue = value
	return nil
}

type listSpec[E any] struct {
	out       OutSerializer[E]
	query     QueryProcessor[E]
	filters   []FilterBackend
	paginator Paginator
	guard     Guard
}

func listHandler[E any](s listSpec[E]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := startSpan(c, "rest.list")
		defer span.End()

		req := NewRequest(c)
		if err := runGuard(ctx, s.guard, req); err != nil {
			return traceErr(span, err)
		}
		if err := applyFilters(c, req, s.filters); err != nil {
			return traceErr(span, err)
		}
		if s.paginator != nil {
			page, err := s.paginator.ParsePage(c)
			if err != nil {
				return traceErr(span, err)
			}
			req.Page = page
		}

		page, err := s.query.Execute(ctx, req)
		if err != nil {
			return traceErr(span, err)
		}

		items := make([]any, 0, len(page.Items))
		for _, e := range page.Items {
			items = append(items, s.out.Out(e))
		}

		if s.paginator == nil {
			return c.JSON(items)
		}
		return c.JSON(s.paginator.Envelope(items, page.Total, req.Page))
	}
}

type createSpec[I, E any] struct {
	ser      Serializer[I, E]
	command  CommandProcessor[I, E]
	guard    Guard
	location func(E) string
}

func createHandler[I, E any](s createSpec[I, E]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := startSpan(c, "rest.create")
		defer span.End()

		req := NewRequest(c)
		if err := runGuard(ctx, s.guard, req); err != nil {
			return traceErr(span, err)
		}

		in, err := s.ser.Decode(c)
		if err != nil {
			return traceErr(span, err)
		}
		if err := s.ser.Validate(ctx, req, &in); err != nil {
			return traceErr(span, err)
		}

		entity, err := s.command.Execute(ctx, req, in)
		if err != nil {
			return traceErr(span, err)
		}

		if s.location != nil {
			c.Set(fiber.HeaderLocation, s.location(entity))
		}
		return c.Status(fiber.StatusCreated).JSON(s.ser.Out(entity))
	}
}

type retrieveSpec[E any] struct {
	out         OutSerializer[E]
	query       DetailQueryProcessor[E]
	lookupParam string
	validate    func(string) error
	guard       Guard
	objectGuard ObjectGuard[E]
}

func retrieveHandler[E any](s retrieveSpec[E]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := startSpan(c, "rest.retrieve")
		defer span.End()

		req := NewRequest(c)
		if err := runGuard(ctx, s.guard, req); err != nil {
			return traceErr(span, err)
		}
		if err := resolveLookup(req, s.lookupParam, s.validate); err != nil {
			return traceErr(span, err)
		}

		entity, err := s.query.Execute(ctx, req)
		if err != nil {
			return traceErr(span, err)
		}
		if err := runObjectGuard(ctx, s.objectGuard, req, entity); err != nil {
			return traceErr(span, err)
		}

		return c.JSON(s.out.Out(entity))
	}
}

type updateSpec[I, E any] struct {
	ser         Serializer[I, E]
	command     CommandProcessor[I, E]
	lookupParam string
	validate    func(string) error
	guard       Guard
}

func updateHandler[I, E any](s updateSpec[I, E], partial bool) fiber.Handler {
	op := "rest.update"
	if partial {
		op = "rest.partial_update"
	}
	return func(c *fiber.Ctx) error {
		ctx, span := startSpan(c, op)
		defer span.End()

		req := NewRequest(c)
		req.Partial = partial
		if err := runGuard(ctx, s.guard, req); err != nil {
			return traceErr(span, err)
		}
		if err := resolveLookup(req, s.lookupParam, s.validate); err != nil {
			return traceErr(span, err)
		}

		in, err := s.ser.Decode(c)
		if err != nil {
			return traceErr(span, err)
		}
		if err := s.ser.Validate(ctx, req, &in); err != nil {
			return traceErr(span, err)
		}

		entity, err := s.command.Execute(ctx, req, in)
		if err != nil {
			return traceErr(span, err)
		}

		return c.JSON(s.ser.Out(entity))
	}
}

type destroySpec struct {
	destroy     DestroyProcessor
	lookupParam string
	validate    func(string) error
	guard       Guard
}

func destroyHandler(s destroySpec) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := startSpan(c, "rest.destroy")
		defer span.End()

		req := NewRequest(c)
		if err := runGuard(ctx, s.guard, req); err != nil {
			return traceErr(span, err)
		}
		if err := resolveLookup(req, s.lookupParam, s.validate); err != nil {
			return traceErr(span, err)
		}

		if err := s.destroy.Execute(ctx, req); err != nil {
			return traceErr(span, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
