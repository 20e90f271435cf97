// Package rest is a small convention layer for building JSON API endpoints
// on Fiber. An endpoint binds one serializer and one or two processors: a
// command processor executes a mutation and returns the affected entity, a
// query processor returns a filtered, paginated collection. The API types
// below compose those pieces into routes, so entity packages only declare
// `<Entity>Serializer`, `<Entity>CreateCommandProcessor`,
// `<Entity>QueryProcessor` and mount a `<Entity>ListCreateAPI`.
package rest

import "github.com/gofiber/fiber/v2"

// CreateAPI serves POST on a collection path: decode, validate, execute the
// command, respond 201 with the serialized entity.
type CreateAPI[I, E any] struct {
	Serializer Serializer[I, E]
	Command    CommandProcessor[I, E]
	Guard      Guard
	// Location derives the Location response header from the created
	// entity. Nil omits the header.
	Location func(E) string
}

func (a *CreateAPI[I, E]) Mount(r fiber.Router, path string) {
	r.Post(path, createHandler(createSpec[I, E]{
		ser:      a.Serializer,
		command:  a.Command,
		guard:    a.Guard,
		location: a.Location,
	}))
}

// ListAPI serves GET on a collection path: run the filter backends, parse
// the page window, execute the query, respond with the paginated envelope.
// A nil Paginator turns the response into a bare JSON array.
type ListAPI[E any] struct {
	Serializer OutSerializer[E]
	Query      QueryProcessor[E]
	Filters    []FilterBackend
	Paginator  Paginator
	Guard      Guard
}

func (a *ListAPI[E]) Mount(r fiber.Router, path string) {
	r.Get(path, listHandler(listSpec[E]{
		out:       a.Serializer,
		query:     a.Query,
		filters:   a.Filters,
		paginator: a.Paginator,
		guard:     a.Guard,
	}))
}

// ListCreateAPI serves GET and POST on one collection path.
type ListCreateAPI[I, E any] struct {
	Serializer Serializer[I, E]
	Command    CommandProcessor[I, E]
	Query      QueryProcessor[E]
	Filters    []FilterBackend
	Paginator  Paginator
	Guard      Guard
	Location   func(E) string
}

func (a *ListCreateAPI[I, E]) Mount(r fiber.Router, path string) {
	r.Get(path, listHandler(listSpec[E]{
		out:       a.Serializer,
		query:     a.Query,
		filters:   a.Filters,
		paginator: a.Paginator,
		guard:     a.Guard,
	}))
	r.Post(path, createHandler(createSpec[I, E]{
		ser:      a.Serializer,
		command:  a.Command,
		guard:    a.Guard,
		location: a.Location,
	}))
}

// RetrieveAPI serves GET on a detail path. The mount path must contain the
// lookup parameter (":id" unless LookupParam overrides it).
type RetrieveAPI[E any] struct {
	Serializer     OutSerializer[E]
	Query          DetailQueryProcessor[E]
	LookupParam    string
	ValidateLookup func(string) error
	Guard          Guard
	ObjectGuard    ObjectGuard[E]
}

func (a *RetrieveAPI[E]) Mount(r fiber.Router, path string) {
	r.Get(path, retrieveHandler(a.spec()))
}

func (a *RetrieveAPI[E]) spec() retrieveSpec[E] {
	return retrieveSpec[E]{
		out:         a.Serializer,
		query:       a.Query,
		lookupParam: a.LookupParam,
		validate:    a.ValidateLookup,
		guard:       a.Guard,
		objectGuard: a.ObjectGuard,
	}
}

// UpdateAPI serves PUT and PATCH on a detail path. PATCH marks the request
// partial, which serializers honor by relaxing required-field checks.
type UpdateAPI[I, E any] struct {
	Serializer     Serializer[I, E]
	Command        CommandProcessor[I, E]
	LookupParam    string
	ValidateLookup func(string) error
	Guard          Guard
}

func (a *UpdateAPI[I, E]) Mount(r fiber.Router, path string) {
	s := a.spec()
	r.Put(path, updateHandler(s, false))
	r.Patch(path, updateHandler(s, true))
}

func (a *UpdateAPI[I, E]) spec() updateSpec[I, E] {
	return updateSpec[I, E]{
		ser:         a.Serializer,
		command:     a.Command,
		lookupParam: a.LookupParam,
		validate:    a.ValidateLookup,
		guard:       a.Guard,
	}
}

// DestroyAPI serves DELETE on a detail path, responding 204 on success.
type DestroyAPI struct {
	Destroy        DestroyProcessor
	LookupParam    string
	ValidateLookup func(string) error
	Guard          Guard
}

func (a *DestroyAPI) Mount(r fiber.Router, path string) {
	r.Delete(path, destroyHandler(a.spec()))
}

func (a *DestroyAPI) spec() destroySpec {
	return destroySpec{
		destroy:     a.Destroy,
		lookupParam: a.LookupParam,
		validate:    a.ValidateLookup,
		guard:       a.Guard,
	}
}

// RetrieveUpdateAPI serves GET, PUT and PATCH on one detail path.
type RetrieveUpdateAPI[I, E any] struct {
	Serializer     Serializer[I, E]
	Retrieve       DetailQueryProcessor[E]
	Update         CommandProcessor[I, E]
	LookupParam    string
	ValidateLookup func(string) error
	Guard          Guard
	ObjectGuard    ObjectGuard[E]
}

func (a *RetrieveUpdateAPI[I, E]) Mount(r fiber.Router, path string) {
	retrieve := RetrieveAPI[E]{
		Serializer:     a.Serializer,
		Query:          a.Retrieve,
		LookupParam:    a.LookupParam,
		ValidateLookup: a.ValidateLookup,
		Guard:          a.Guard,
		ObjectGuard:    a.ObjectGuard,
	}
	update := UpdateAPI[I, E]{
		Serializer:     a.Serializer,
		Command:        a.Update,
		LookupParam:    a.LookupParam,
		ValidateLookup: a.ValidateLookup,
		Guard:          a.Guard,
	}
	r.Get(path, retrieveHandler(retrieve.spec()))
	s := update.spec()
	r.Put(path, updateHandler(s, false))
	r.Patch(path, updateHandler(s, true))
}

// RetrieveDestroyAPI serves GET and DELETE on one detail path.
type RetrieveDestroyAPI[E any] struct {
	Serializer     OutSerializer[E]
	Retrieve       DetailQueryProcessor[E]
	Destroy        DestroyProcessor
	LookupParam    string
	ValidateLookup func(string) error
	Guard          Guard
	ObjectGuard    ObjectGuard[E]
}

func (a *RetrieveDestroyAPI[E]) Mount(r fiber.Router, path string) {
	retrieve := RetrieveAPI[E]{
		Serializer:     a.Serializer,
		Query:          a.Retrieve,
		LookupParam:    a.LookupParam,
		ValidateLookup: a.ValidateLookup,
		Guard:          a.Guard,
		ObjectGuard:    a.ObjectGuard,
	}
	destroy := DestroyAPI{
		Destroy:        a.Destroy,
		LookupParam:    a.LookupParam,
		ValidateLookup: a.ValidateLookup,
		Guard:          a.Guard,
	}
	r.Get(path, retrieveHandler(retrieve.spec()))
	r.Delete(path, destroyHandler(destroy.spec()))
}

// RetrieveUpdateDestroyAPI serves GET, PUT, PATCH and DELETE on one detail
// path, the full single-object endpoint.
type RetrieveUpdateDestroyAPI[I, E any] struct {
	Serializer     Serializer[I, E]
	Retrieve       DetailQueryProcessor[E]
	Update         CommandProcessor[I, E]
	Destroy        DestroyProcessor
	LookupParam    string
	ValidateLookup func(string) error
	Guard          Guard
	ObjectGuard    ObjectGuard[E]
}

func (a *RetrieveUpdateDestroyAPI[I, E]) Mount(r fiber.Router, path string) {
	ru := RetrieveUpdateAPI[I, E]{
		Serializer:     a.Serializer,
		Retrieve:       a.Retrieve,
		Update:         a.Update,
		LookupParam:    a.LookupParam,
		ValidateLookup: a.ValidateLookup,
		Guard:          a.Guard,
		ObjectGuard:    a.ObjectGuard,
	}
	ru.Mount(r, path)
	destroy := DestroyAPI{
		Destroy:        a.Destroy,
		LookupParam:    a.LookupParam,
		ValidateLookup: a.ValidateLookup,
		Guard:          a.Guard,
	}
	r.Delete(path, destroyHandler(destroy.spec()))
}
