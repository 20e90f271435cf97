package rest

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
)

// ActorLocal is the fiber locals key an authentication middleware can use to
// expose the acting principal. The value is copied verbatim into
// Request.Actor; the toolkit itself never inspects it.
const ActorLocal = "actor"

// Request is the transport-free view of one HTTP request handed to command
// and query processors. Endpoints build it from the fiber context, run the
// configured filter backends and paginator over it, and only then invoke the
// processor, so processors see validated, normalized inputs and never touch
// fiber directly.
type Request struct {
	// PathParams holds all route parameters of the matched route.
	PathParams map[string]string
	// QueryParams holds the raw query string parameters.
	QueryParams url.Values
	// Filters holds the query parameters admitted by the filter backends.
	Filters url.Values
	// Ordering holds the ordering terms validated by an OrderingFilter,
	// each optionally prefixed with "-" for descending order.
	Ordering []string
	// Page holds the pagination window parsed by the endpoint's paginator.
	// Zero when the endpoint is unpaginated.
	Page PageRequest
	// Actor is the authenticated principal, when middleware resolved one.
	Actor any
	// Partial is true for PATCH requests on update endpoints.
	Partial bool
	// LookupParam and LookupValue identify the object a detail endpoint
	// addresses. Empty on collection endpoints.
	LookupParam string
	LookupValue string
}

// NewRequest captures the request data processors are allowed to see.
func NewRequest(c *fiber.Ctx) *Request {
	q := make(url.Values)
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		q.Add(string(key), string(value))
	})

	r := &Request{
		PathParams:  c.AllParams(),
		QueryParams: q,
		Filters:     make(url.Values),
	}
	if v := c.Locals(ActorLocal); v != nil {
		r.Actor = v
	}
	return r
}

// Param returns the named route parameter, or "" when absent.
func (r *Request) Param(name string) string {
	return r.PathParams[name]
}

// Query returns the first value of the named raw query parameter.
func (r *Request) Query(name string) string {
	return r.QueryParams.Get(name)
}

// Filter returns the first value of a query parameter admitted by the
// filter backends. Parameters outside the configured whitelist are never
// visible here.
func (r *Request) Filter(name string) string {
	return r.Filters.Get(name)
}
