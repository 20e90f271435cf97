package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runBackend executes one filter backend against a synthetic GET request and
// returns the resulting Request plus the backend error.
func runBackend(t *testing.T, b FilterBackend, target string) (*Request, error) {
	t.Helper()

	var req *Request
	var backendErr error

	app := fiber.New()
	app.Get("/x", func(c *fiber.Ctx) error {
		req = NewRequest(c)
		backendErr = b.Filter(c, req)
		return c.SendStatus(fiber.StatusOK)
	})

	_, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	require.NotNil(t, req)
	return req, backendErr
}

func TestQueryParamFilter(t *testing.T) {
	b := QueryParamFilter{Params: []string{"content_type", "status"}}

	t.Run("admits whitelisted params", func(t *testing.T) {
		req, err := runBackend(t, b, "/x?content_type=text/plain&status=open")
		require.NoError(t, err)
		assert.Equal(t, "text/plain", req.Filter("content_type"))
		assert.Equal(t, "open", req.Filter("status"))
	})

	t.Run("ignores unknown params", func(t *testing.T) {
		req, err := runBackend(t, b, "/x?content_type=text/plain&color=red")
		require.NoError(t, err)
		assert.Equal(t, "text/plain", req.Filter("content_type"))
		assert.Empty(t, req.Filter("color"))
	})

	t.Run("absent params do not filter", func(t *testing.T) {
		req, err := runBackend(t, b, "/x")
		require.NoError(t, err)
		assert.Empty(t, req.Filters)
	})
}

func TestSearchFilter(t *testing.T) {
	t.Run("default param", func(t *testing.T) {
		req, err := runBackend(t, SearchFilter{}, "/x?search=alpha")
		require.NoError(t, err)
		assert.Equal(t, "alpha", req.Filter(SearchParam))
	})

	t.Run("trims whitespace", func(t *testing.T) {
		req, err := runBackend(t, SearchFilter{}, "/x?search=%20%20alpha%20")
		require.NoError(t, err)
		assert.Equal(t, "alpha", req.Filter(SearchParam))
	})

	t.Run("blank term is dropped", func(t *testing.T) {
		req, err := runBackend(t, SearchFilter{}, "/x?search=%20%20")
		require.NoError(t, err)
		assert.Empty(t, req.Filter(SearchParam))
	})

	t.Run("custom param name", func(t *testing.T) {
		req, err := runBackend(t, SearchFilter{Param: "q"}, "/x?q=beta")
		require.NoError(t, err)
		assert.Equal(t, "beta", req.Filter("q"))
	})
}

func TestOrderingFilter(t *testing.T) {
	b := OrderingFilter{
		Fields:  []string{"name", "created_at"},
		Default: []string{"-created_at"},
	}

	t.Run("default applied when absent", func(t *testing.T) {
		req, err := runBackend(t, b, "/x")
		require.NoError(t, err)
		assert.Equal(t, []string{"-created_at"}, req.Ordering)
	})

	t.Run("accepts whitelisted fields with direction", func(t *testing.T) {
		req, err := runBackend(t, b, "/x?ordering=-name,created_at")
		require.NoError(t, err)
		assert.Equal(t, []string{"-name", "created_at"}, req.Ordering)
	})

	t.Run("rejects unknown field", func(t *testing.T) {
		_, err := runBackend(t, b, "/x?ordering=name,secret")
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, CodeInvalidOrdering, apiErr.Code)
		assert.Contains(t, apiErr.Message, "secret")
	})

	t.Run("rejects unknown descending field", func(t *testing.T) {
		_, err := runBackend(t, b, "/x?ordering=-secret")
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, CodeInvalidOrdering, apiErr.Code)
	})

	t.Run("empty terms collapse to default", func(t *testing.T) {
		req, err := runBackend(t, b, "/x?ordering=%20,%20")
		require.NoError(t, err)
		assert.Equal(t, []string{"-created_at"}, req.Ordering)
	})
}
