package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"apikit/internal/model"
	"apikit/internal/repository"
	repoMocks "apikit/internal/repository/mocks"
	"apikit/internal/storage"
	storageMocks "apikit/internal/storage/mocks"
	"apikit/rest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// errorBody mirrors the standardized error response for assertions.
type errorBody struct {
	RequestID string `json:"request_id"`
	Error     struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Fields  map[string][]string `json:"fields"`
	} `json:"error"`
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: rest.ErrorHandler(),
		// Copy ctx-derived strings: the shared mocks retain request values
		// (ids, paths) past the handler, which fiber's recycled buffers
		// otherwise overwrite on the next request in the same app.
		Immutable: true,
	})
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func decodeError(t *testing.T, resp *http.Response) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := newTestApp()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		body := decodeError(t, resp)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := newTestApp()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDownloadAttachment(t *testing.T) {
	mockAtt := new(repoMocks.MockAttachmentRepository)
	mockStore := new(storageMocks.MockStorage)

	app := newTestApp()
	app.Get("/attachments/:id/download", DownloadAttachment(mockAtt, mockStore))

	t.Run("streams the object with the original filename", func(t *testing.T) {
		id := uuid.New().String()
		att := &model.Attachment{
			ID:          id,
			Filename:    "report.pdf",
			StoragePath: "attachments/" + id + ".pdf",
			ContentType: "application/pdf",
			Size:        11,
		}
		mockAtt.On("FindByID", mock.Anything, id).Return(att, nil).Once()
		mockStore.On("Get", mock.Anything, att.StoragePath).
			Return(io.NopCloser(strings.NewReader("hello world")), storage.ObjectInfo{Key: att.StoragePath, Size: 11}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/attachments/"+id+"/download", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/pdf", resp.Header.Get(fiber.HeaderContentType))
		assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), `"report.pdf"`)

		b, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "hello world", string(b))
		mockAtt.AssertExpectations(t)
		mockStore.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockAtt.On("FindByID", mock.Anything, id).Return(nil, sql.ErrNoRows).Once()

		req := httptest.NewRequest(http.MethodGet, "/attachments/"+id+"/download", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "NOT_FOUND", body.Error.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/attachments/not-a-uuid/download", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "INVALID_ID", body.Error.Code)
	})

	t.Run("storage failure stays generic", func(t *testing.T) {
		id := uuid.New().String()
		att := &model.Attachment{ID: id, Filename: "x.txt", StoragePath: "attachments/x.txt"}
		mockAtt.On("FindByID", mock.Anything, id).Return(att, nil).Once()
		mockStore.On("Get", mock.Anything, att.StoragePath).
			Return(nil, storage.ObjectInfo{}, errors.New("minio: connection refused")).Once()

		req := httptest.NewRequest(http.MethodGet, "/attachments/"+id+"/download", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
		assert.NotContains(t, body.Error.Message, "minio")
	})
}

func TestRegisterRoutes(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mockProjects := new(repoMocks.MockProjectRepository)
	mockAttachments := new(repoMocks.MockAttachmentRepository)
	mockStore := new(storageMocks.MockStorage)

	app := newTestApp()
	RegisterRoutes(app, Deps{
		DB:            db,
		Projects:      mockProjects,
		Attachments:   mockAttachments,
		Store:         mockStore,
		Paginator:     rest.DefaultPaginator(),
		PresignTTL:    time.Minute,
		MaxUploadSize: 1 << 20,
	})

	t.Run("healthz wired", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("health wired", func(t *testing.T) {
		dbMock.ExpectPing()
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("projects collection wired", func(t *testing.T) {
		mockProjects.On("List", mock.Anything, mock.Anything).
			Return(&repository.PageResult[model.Project]{Items: []model.Project{}, Total: 0}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/projects", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockProjects.AssertExpectations(t)
	})

	t.Run("unknown route yields standardized 404", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "NOT_FOUND", body.Error.Code)
	})
}
