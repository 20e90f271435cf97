package rest

import "context"

// Page is the result of a collection query: one window of items plus the
// total number of rows matching the filters, for the pagination envelope.
type Page[E any] struct {
	Items []E
	Total int
}

// CommandProcessor executes a mutating operation. The input I has already
// been decoded and validated by the endpoint's serializer; the returned
// entity is serialized as the response body.
type CommandProcessor[I, E any] interface {
	Execute(ctx context.Context, req *Request, in I) (E, error)
}

// QueryProcessor answers a collection read: a filtered, paginated page of
// entities. The pagination window and admitted filters are on the Request.
type QueryProcessor[E any] interface {
	Execute(ctx context.Context, req *Request) (Page[E], error)
}

// DetailQueryProcessor answers a single-object read addressed by the
// request's lookup value. Implementations return a 404 *Error when no
// object matches.
type DetailQueryProcessor[E any] interface {
	Execute(ctx context.Context, req *Request) (E, error)
}

// DestroyProcessor executes a delete addressed by the request's lookup
// value. A nil return produces a 204 response with no body.
type DestroyProcessor interface {
	Execute(ctx context.Context, req *Request) error
}

// CommandFunc adapts a function to the CommandProcessor interface.
type CommandFunc[I, E any] func(ctx context.Context, req *Request, in I) (E, error)

func (f CommandFunc[I, E]) Execute(ctx context.Context, req *Request, in I) (E, error) {
	return f(ctx, req, in)
}

// QueryFunc adapts a function to the QueryProcessor interface.
type QueryFunc[E any] func(ctx context.Context, req *Request) (Page[E], error)

func (f QueryFunc[E]) Execute(ctx context.Context, req *Request) (Page[E], error) {
	return f(ctx, req)
}

// DetailQueryFunc adapts a function to the DetailQueryProcessor interface.
type DetailQueryFunc[E any] func(ctx context.Context, req *Request) (E, error)

func (f DetailQueryFunc[E]) Execute(ctx context.Context, req *Request) (E, error) {
	return f(ctx, req)
}

// DestroyFunc adapts a function to the DestroyProcessor interface.
type DestroyFunc func(ctx context.Context, req *Request) error

func (f DestroyFunc) Execute(ctx context.Context, req *Request) error {
	return f(ctx, req)
}
