package rest

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// InSerializer decodes an inbound request payload into a typed input value
// and validates it. Decode failures and validation failures both stop the
// request before any processor runs.
type InSerializer[I any] interface {
	// Decode parses the request payload (JSON body, multipart form, ...)
	// into the input type.
	Decode(c *fiber.Ctx) (I, error)
	// Validate checks the decoded input. Implementations return a
	// *ValidationError describing every failed field, or nil.
	Validate(ctx context.Context, req *Request, in *I) error
}

// OutSerializer shapes an entity into its response representation.
type OutSerializer[E any] interface {
	Out(e E) any
}

// Serializer is the full contract bound to write-capable endpoints: it
// validates inbound payloads of type I and serializes entities of type E.
// Read-only endpoints only require the OutSerializer half, so one serializer
// type can serve an entity's whole endpoint family.
type Serializer[I, E any] interface {
	InSerializer[I]
	OutSerializer[E]
}

// JSONDecode parses the request body as JSON into I. It is the Decode
// implementation most serializers delegate to.
func JSONDecode[I any](c *fiber.Ctx) (I, error) {
	var in I
	if err := c.BodyParser(&in); err != nil {
		return in, BadRequest(CodeInvalidBody, "invalid request body")
	}
	return in, nil
}

// InlineSerializer adapts plain functions to the Serializer interface for
// one-off endpoints that do not warrant a named serializer type. Nil fields
// fall back to JSON decoding, no validation, and identity output.
type InlineSerializer[I, E any] struct {
	DecodeFunc   func(c *fiber.Ctx) (I, error)
	ValidateFunc func(ctx context.Context, req *Request, in *I) error
	OutFunc      func(e E) any
}

func (s InlineSerializer[I, E]) Decode(c *fiber.Ctx) (I, error) {
	if s.DecodeFunc != nil {
		return s.DecodeFunc(c)
	}
	return JSONDecode[I](c)
}

func (s InlineSerializer[I, E]) Validate(ctx context.Context, req *Request, in *I) error {
	if s.ValidateFunc != nil {
		return s.ValidateFunc(ctx, req, in)
	}
	return nil
}

func (s InlineSerializer[I, E]) Out(e E) any {
	if s.OutFunc != nil {
		return s.OutFunc(e)
	}
	return e
}
