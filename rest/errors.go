package rest

import (
	"errors"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Machine-readable error codes used by the toolkit. Applications may pass
// their own codes to the constructors; these cover the generic cases.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeValidation       = "VALIDATION_ERROR"
	CodeInvalidBody      = "INVALID_BODY"
	CodeInvalidID        = "INVALID_ID"
	CodeInvalidLimit     = "INVALID_LIMIT"
	CodeInvalidOffset    = "INVALID_OFFSET"
	CodeInvalidOrdering  = "INVALID_ORDERING"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeConflict         = "CONFLICT"
	CodeInternal         = "INTERNAL_ERROR"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
)

// Error is an API-level error carrying the HTTP status and a machine-readable
// code alongside a safe, human-readable message. Processors and serializers
// return *Error (possibly wrapped) to control the response; anything else is
// rendered as a generic 500 without leaking internal details.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// BadRequest builds a 400 error with the given code and message.
func BadRequest(code, message string) *Error {
	return &Error{Status: fiber.StatusBadRequest, Code: code, Message: message}
}

// Unauthorized builds a 401 error.
func Unauthorized(message string) *Error {
	return &Error{Status: fiber.StatusUnauthorized, Code: CodeUnauthorized, Message: message}
}

// Forbidden builds a 403 error.
func Forbidden(message string) *Error {
	return &Error{Status: fiber.StatusForbidden, Code: CodeForbidden, Message: message}
}

// NotFound builds a 404 error.
func NotFound(message string) *Error {
	return &Error{Status: fiber.StatusNotFound, Code: CodeNotFound, Message: message}
}

// Conflict builds a 409 error with the given code and message.
func Conflict(code, message string) *Error {
	return &Error{Status: fiber.StatusConflict, Code: code, Message: message}
}

// Internal builds a 500 error. The message is still returned to the client,
// so callers must not put internal details in it.
func Internal(message string) *Error {
	return &Error{Status: fiber.StatusInternalServerError, Code: CodeInternal, Message: message}
}

// ValidationError collects per-field validation failures. A nil or empty
// ValidationError means the payload is valid; use Err to collapse that into
// a plain error value.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

// Add records a failure message for the given field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Err returns the ValidationError itself when it holds at least one field
// failure, and nil otherwise. Validate implementations typically end with
// `return verr.Err()`.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// RequestIDLocal is the fiber locals key the toolkit reads the request ID
// from when building error payloads. Request ID middleware is expected to
// store the propagated or generated ID under this key.
const RequestIDLocal = "request_id"

// errorPayload is the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(RequestIDLocal); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WriteError writes the standardized JSON error response without leaking
// internal error details. Handlers outside the toolkit (health checks,
// bespoke endpoints) can use it to stay consistent with toolkit responses.
func WriteError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

func writeValidationError(c *fiber.Ctx, verr *ValidationError) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    CodeValidation,
			Message: "validation failed",
			Fields:  verr.Fields,
		},
	}
	return c.Status(fiber.StatusBadRequest).JSON(res)
}

// StatusOf reports the HTTP status an error will be rendered with by
// ErrorHandler. Middleware that records final statuses needs it because the
// error handler only runs after the middleware chain has unwound.
func StatusOf(err error) int {
	if err == nil {
		return fiber.StatusOK
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return fiber.StatusBadRequest
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler returns a global fiber error handler that renders toolkit
// errors with their status and code, maps plain fiber errors onto the
// standard envelope, and hides everything else behind a generic 500.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return writeValidationError(c, verr)
		}

		var apiErr *Error
		if errors.As(err, &apiErr) {
			return WriteError(c, apiErr.Status, apiErr.Code, apiErr.Message)
		}

		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return WriteError(c, status, CodeBadRequest, "bad request")
		case fiber.StatusNotFound:
			return WriteError(c, status, CodeNotFound, "resource not found")
		case fiber.StatusMethodNotAllowed:
			return WriteError(c, status, CodeMethodNotAllowed, "method not allowed")
		default:
			return WriteError(c, status, CodeInternal, "internal server error")
		}
	}
}
