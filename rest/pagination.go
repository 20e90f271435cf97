package rest

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// PageRequest is a limit/offset pagination window.
type PageRequest struct {
	Limit  int
	Offset int
}

// Paginator parses the pagination window from a request and wraps a page of
// serialized items into the response envelope. Endpoints with a nil
// Paginator respond with a bare JSON array instead.
type Paginator interface {
	ParsePage(c *fiber.Ctx) (PageRequest, error)
	Envelope(items any, total int, page PageRequest) any
}

// listEnvelope is the paginated response body.
type listEnvelope struct {
	Data   any `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// LimitOffsetPaginator reads `limit` and `offset` query parameters and
// produces a {data, total, limit, offset} envelope. A requested limit above
// MaxLimit is clamped; non-numeric or out-of-range values are rejected with
// a 400.
type LimitOffsetPaginator struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultPaginator returns a paginator with the stock limits (10 per page,
// capped at 100).
func DefaultPaginator() *LimitOffsetPaginator {
	return &LimitOffsetPaginator{DefaultLimit: 10, MaxLimit: 100}
}

func (p *LimitOffsetPaginator) ParsePage(c *fiber.Ctx) (PageRequest, error) {
	def := p.DefaultLimit
	if def <= 0 {
		def = 10
	}

	limit := def
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return PageRequest{}, BadRequest(CodeInvalidLimit, "invalid limit")
		}
		limit = v
	}
	if p.MaxLimit > 0 && limit > p.MaxLimit {
		limit = p.MaxLimit
	}

	offset := 0
	if raw := c.Query("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return PageRequest{}, BadRequest(CodeInvalidOffset, "invalid offset")
		}
		offset = v
	}

	return PageRequest{Limit: limit, Offset: offset}, nil
}

func (p *LimitOffsetPaginator) Envelope(items any, total int, page PageRequest) any {
	return listEnvelope{
		Data:   items,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
}
