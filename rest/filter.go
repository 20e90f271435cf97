package rest

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// FilterBackend inspects the request's query parameters and records the
// admitted values on the Request before the query processor runs. Backends
// run in the order they are configured on the endpoint; a returned error
// stops the request.
type FilterBackend interface {
	Filter(c *fiber.Ctx, req *Request) error
}

// QueryParamFilter admits a whitelist of query parameters into
// Request.Filters. Parameters outside the whitelist are ignored, absent
// parameters simply don't filter.
type QueryParamFilter struct {
	Params []string
}

func (f QueryParamFilter) Filter(c *fiber.Ctx, req *Request) error {
	for _, name := range f.Params {
		if v := c.Query(name); v != "" {
			req.Filters.Set(name, v)
		}
	}
	return nil
}

// SearchParam is the query parameter SearchFilter reads by default.
const SearchParam = "search"

// SearchFilter admits a free-text search term into Request.Filters under
// its parameter name. How the term matches is up to the query processor.
type SearchFilter struct {
	// Param overrides the query parameter name; empty means "search".
	Param string
}

func (f SearchFilter) Filter(c *fiber.Ctx, req *Request) error {
	name := f.Param
	if name == "" {
		name = SearchParam
	}
	if v := strings.TrimSpace(c.Query(name)); v != "" {
		req.Filters.Set(name, v)
	}
	return nil
}

// OrderingParam is the query parameter OrderingFilter reads.
const OrderingParam = "ordering"

// OrderingFilter validates the `ordering` query parameter, a comma-separated
// list of field names where a "-" prefix requests descending order. Only
// whitelisted fields are accepted; anything else is rejected with a 400 so
// typos never silently change result order.
type OrderingFilter struct {
	// Fields lists the orderable field names, without "-" prefixes.
	Fields []string
	// Default is applied when the request carries no ordering parameter.
	Default []string
}

func (f OrderingFilter) Filter(c *fiber.Ctx, req *Request) error {
	raw := strings.TrimSpace(c.Query(OrderingParam))
	if raw == "" {
		req.Ordering = f.Default
		return nil
	}

	terms := strings.Split(raw, ",")
	ordering := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		field := strings.TrimPrefix(term, "-")
		if !f.allowed(field) {
			return BadRequest(CodeInvalidOrdering, "invalid ordering field: "+field)
		}
		ordering = append(ordering, term)
	}
	if len(ordering) == 0 {
		ordering = f.Default
	}
	req.Ordering = ordering
	return nil
}

func (f OrderingFilter) allowed(field string) bool {
	for _, known := range f.Fields {
		if known == field {
			return true
		}
	}
	return false
}
