package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type widgetInput struct {
	Name string `json:"name"`
}

type widgetUpdate struct {
	Name *string `json:"name"`
}

type widgetList struct {
	Data   []widget `json:"data"`
	Total  int      `json:"total"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}

// widgetStore is a tiny in-memory backend for endpoint tests.
type widgetStore struct {
	items map[string]widget
}

func newWidgetStore(names ...string) *widgetStore {
	s := &widgetStore{items: make(map[string]widget)}
	for _, name := range names {
		id := uuid.NewString()
		s.items[id] = widget{ID: id, Name: name}
	}
	return s
}

func (s *widgetStore) sorted() []widget {
	out := make([]widget, 0, len(s.items))
	for _, w := range s.items {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *widgetStore) serializer() Serializer[widgetInput, widget] {
	return InlineSerializer[widgetInput, widget]{
		ValidateFunc: func(ctx context.Context, req *Request, in *widgetInput) error {
			var verr ValidationError
			if strings.TrimSpace(in.Name) == "" {
				verr.Add("name", "name is required")
			}
			return verr.Err()
		},
	}
}

func (s *widgetStore) create(ctx context.Context, req *Request, in widgetInput) (widget, error) {
	w := widget{ID: uuid.NewString(), Name: in.Name}
	s.items[w.ID] = w
	return w, nil
}

func (s *widgetStore) list(ctx context.Context, req *Request) (Page[widget], error) {
	all := s.sorted()
	if term := req.Filter(SearchParam); term != "" {
		filtered := all[:0:0]
		for _, w := range all {
			if strings.Contains(w.Name, term) {
				filtered = append(filtered, w)
			}
		}
		all = filtered
	}
	total := len(all)

	if req.Page.Limit > 0 {
		if req.Page.Offset < len(all) {
			all = all[req.Page.Offset:]
		} else {
			all = nil
		}
		if len(all) > req.Page.Limit {
			all = all[:req.Page.Limit]
		}
	}
	return Page[widget]{Items: all, Total: total}, nil
}

func (s *widgetStore) retrieve(ctx context.Context, req *Request) (widget, error) {
	w, ok := s.items[req.LookupValue]
	if !ok {
		return widget{}, NotFound("widget not found")
	}
	return w, nil
}

func (s *widgetStore) destroy(ctx context.Context, req *Request) error {
	if _, ok := s.items[req.LookupValue]; !ok {
		return NotFound("widget not found")
	}
	delete(s.items, req.LookupValue)
	return nil
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
}

func jsonRequest(method, target string, payload string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func TestListCreateAPI(t *testing.T) {
	store := newWidgetStore("alpha", "beta", "gamma")
	api := &ListCreateAPI[widgetInput, widget]{
		Serializer: store.serializer(),
		Command:    CommandFunc[widgetInput, widget](store.create),
		Query:      QueryFunc[widget](store.list),
		Filters:    []FilterBackend{SearchFilter{}},
		Paginator:  &LimitOffsetPaginator{DefaultLimit: 2, MaxLimit: 5},
		Location:   func(w widget) string { return "/widgets/" + w.ID },
	}

	app := newTestApp()
	api.Mount(app, "/widgets")

	t.Run("list returns paginated envelope", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/widgets", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body widgetList
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Len(t, body.Data, 2)
		assert.Equal(t, 3, body.Total)
		assert.Equal(t, 2, body.Limit)
		assert.Equal(t, 0, body.Offset)
	})

	t.Run("list honors offset", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/widgets?offset=2", nil))
		require.NoError(t, err)

		var body widgetList
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Len(t, body.Data, 1)
		assert.Equal(t, "gamma", body.Data[0].Name)
		assert.Equal(t, 2, body.Offset)
	})

	t.Run("list applies search filter", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/widgets?search=bet", nil))
		require.NoError(t, err)

		var body widgetList
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Data, 1)
		assert.Equal(t, "beta", body.Data[0].Name)
		assert.Equal(t, 1, body.Total)
	})

	t.Run("list rejects invalid limit", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/widgets?limit=nope", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeErrorPayload(t, resp)
		assert.Equal(t, CodeInvalidLimit, body.Error.Code)
	})

	t.Run("create returns 201 with location", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(http.MethodPost, "/widgets", `{"name":"delta"}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var created widget
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
		assert.Equal(t, "delta", created.Name)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "/widgets/"+created.ID, resp.Header.Get(fiber.HeaderLocation))
	})

	t.Run("create rejects invalid payload", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(http.MethodPost, "/widgets", `{"name":"  "}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeErrorPayload(t, resp)
		assert.Equal(t, CodeValidation, body.Error.Code)
		assert.Contains(t, body.Error.Fields["name"], "name is required")
	})

	t.Run("create rejects malformed body", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(http.MethodPost, "/widgets", `{"name":`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeErrorPayload(t, resp)
		assert.Equal(t, CodeInvalidBody, body.Error.Code)
	})
}

func TestListAPI_WithoutPaginator(t *testing.T) {
	store := newWidgetStore("alpha", "beta")
	api := &ListAPI[widget]{
		Serializer: store.serializer(),
		Query:      QueryFunc[widget](store.list),
	}

	app := newTestApp()
	api.Mount(app, "/widgets")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/widgets", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Bare array, no envelope.
	var body []widget
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body, 2)
}

func TestRetrieveUpdateDestroyAPI(t *testing.T) {
	store := newWidgetStore("alpha")
	existing := store.sorted()[0]

	updateSer := InlineSerializer[widgetUpdate, widget]{
		ValidateFunc: func(ctx context.Context, req *Request, in *widgetUpdate) error {
			var verr ValidationError
			if !req.Partial && in.Name == nil {
				verr.Add("name", "name is required")
			}
			if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
				verr.Add("name", "name must not be blank")
			}
			return verr.Err()
		},
	}

	update := CommandFunc[widgetUpdate, widget](func(ctx context.Context, req *Request, in widgetUpdate) (widget, error) {
		w, ok := store.items[req.LookupValue]
		if !ok {
			return widget{}, NotFound("widget not found")
		}
		if in.Name != nil {
			w.Name = *in.Name
		}
		store.items[w.ID] = w
		return w, nil
	})

	api := &RetrieveUpdateDestroyAPI[widgetUpdate, widget]{
		Serializer:     updateSer,
		Retrieve:       DetailQueryFunc[widget](store.retrieve),
		Update:         update,
		Destroy:        DestroyFunc(store.destroy),
		ValidateLookup: UUIDLookup,
	}

	app := newTestApp()
	api.Mount(app, "/widgets/:id")

	t.Run("retrieve", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/widgets/"+existing.ID, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got widget
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, existing, got)
	})

	t.Run("retrieve unknown id", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/widgets/"+uuid.NewString(), nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		body := decodeErrorPayload(t, resp)
		assert.Equal(t, CodeNotFound, body.Error.Code)
	})

	t.Run("retrieve malformed id", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/widgets/not-a-uuid", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeErrorPayload(t, resp)
		assert.Equal(t, CodeInvalidID, body.Error.Code)
	})

	t.Run("put requires full payload", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(http.MethodPut, "/widgets/"+existing.ID, `{}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeErrorPayload(t, resp)
		assert.Equal(t, CodeValidation, body.Error.Code)
	})

	t.Run("put replaces", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(http.MethodPut, "/widgets/"+existing.ID, `{"name":"renamed"}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got widget
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, "renamed", got.Name)
	})

	t.Run("patch tolerates omitted fields", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(http.MethodPatch, "/widgets/"+existing.ID, `{}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got widget
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, "renamed", got.Name)
	})

	t.Run("destroy then retrieve", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/widgets/"+existing.ID, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/widgets/"+existing.ID, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestGuards(t *testing.T) {
	store := newWidgetStore("alpha")

	t.Run("plain guard error maps to 403", func(t *testing.T) {
		api := &ListAPI[widget]{
			Serializer: store.serializer(),
			Query:      QueryFunc[widget](store.list),
			Guard: func(ctx context.Context, req *Request) error {
				return assert.AnError
			},
		}
		app := newTestApp()
		api.Mount(app, "/widgets")

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/widgets", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		body := decodeErrorPayload(t, resp)
		assert.Equal(t, CodeForbidden, body.Error.Code)
	})

	t.Run("guard controls status via toolkit error", func(t *testing.T) {
		api := &ListAPI[widget]{
			Serializer: store.serializer(),
			Query:      QueryFunc[widget](store.list),
			Guard: func(ctx context.Context, req *Request) error {
				if req.Actor == nil {
					return Unauthorized("authentication required")
				}
				return nil
			},
		}
		app := newTestApp()
		api.Mount(app, "/widgets")

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/widgets", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		// With an actor resolved by middleware the guard passes.
		authed := newTestApp()
		authed.Use(func(c *fiber.Ctx) error {
			c.Locals(ActorLocal, "user-1")
			return c.Next()
		})
		api.Mount(authed, "/widgets")

		resp, err = authed.Test(httptest.NewRequest(http.MethodGet, "/widgets", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("object guard runs after retrieve", func(t *testing.T) {
		existing := store.sorted()[0]
		api := &RetrieveAPI[widget]{
			Serializer: store.serializer(),
			Query:      DetailQueryFunc[widget](store.retrieve),
			ObjectGuard: func(ctx context.Context, req *Request, w widget) error {
				return assert.AnError
			},
		}
		app := newTestApp()
		api.Mount(app, "/widgets/:id")

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/widgets/"+existing.ID, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestDetailRouteWithoutLookupParam(t *testing.T) {
	store := newWidgetStore("alpha")
	api := &RetrieveAPI[widget]{
		Serializer: store.serializer(),
		Query:      DetailQueryFunc[widget](store.retrieve),
	}

	app := newTestApp()
	// Mount path is missing the :id token on purpose.
	api.Mount(app, "/widgets")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/widgets", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decodeErrorPayload(t, resp)
	assert.Equal(t, CodeInternal, body.Error.Code)
}
