package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/registry/internal/audit/domain"
	"github.com/allisson/registry/internal/registry/domain"
	registryUseCase "github.com/allisson/registry/internal/registry/usecase"
)

// MockObjectUseCase is a mock implementation of the object use case
type MockObjectUseCase struct {
	mock.Mock
}

func (m *MockObjectUseCase) Put(
	ctx context.Context,
	input registryUseCase.PutObjectInput,
) (*domain.ObjectMetadata, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ObjectMetadata), args.Error(1)
}

func (m *MockObjectUseCase) Get(
	ctx context.Context,
	namespace, object string,
	version *string,
) (*domain.ObjectMetadata, []byte, error) {
	args := m.Called(ctx, namespace, object, version)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.ObjectMetadata), args.Get(1).([]byte), args.Error(2)
}

func (m *MockObjectUseCase) Stat(
	ctx context.Context,
	namespace, object string,
	version *string,
) (*domain.ObjectMetadata, error) {
	args := m.Called(ctx, namespace, object, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ObjectMetadata), args.Error(1)
}

func (m *MockObjectUseCase) Delete(ctx context.Context, namespace, object string, version *string) error {
	args := m.Called(ctx, namespace, object, version)
	return args.Error(0)
}

func (m *MockObjectUseCase) List(
	ctx context.Context,
	namespace string,
	limit int,
) ([]*domain.ObjectMetadata, error) {
	args := m.Called(ctx, namespace, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ObjectMetadata), args.Error(1)
}

func (m *MockObjectUseCase) ListNamespaces(ctx context.Context, limit int) ([]string, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockAuditLogUseCase is a mock implementation of the audit log use case
type MockAuditLogUseCase struct {
	mock.Mock
}

func (m *MockAuditLogUseCase) Append(ctx context.Context, entry auditDomain.AuditLog) (uuid.UUID, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockAuditLogUseCase) Query(
	ctx context.Context,
	filter auditDomain.QueryFilter,
) ([]*auditDomain.AuditLog, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.AuditLog), args.Error(1)
}

func (m *MockAuditLogUseCase) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func setupObjectRouter(handler *ObjectHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/namespaces", handler.ListNamespacesHandler)
	router.GET("/:namespace", handler.ListObjectsHandler)
	router.PUT("/:namespace/:object", handler.PutHandler)
	router.GET("/:namespace/:object", handler.GetHandler)
	router.DELETE("/:namespace/:object", handler.DeleteHandler)
	return router
}

func newObjectHandler() (*ObjectHandler, *MockObjectUseCase, *MockAuditLogUseCase) {
	objectUseCase := &MockObjectUseCase{}
	auditLogUseCase := &MockAuditLogUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewObjectHandler(objectUseCase, auditLogUseCase, logger), objectUseCase, auditLogUseCase
}

func TestObjectHandler_PutHandler(t *testing.T) {
	t.Run("stores object and returns metadata", func(t *testing.T) {
		handler, objectUseCase, auditLogUseCase := newObjectHandler()

		version := "v1"
		stored := &domain.ObjectMetadata{
			Namespace:   "payments",
			Object:      "report",
			Version:     &version,
			Checksum:    "abc123",
			Size:        5,
			ContentType: "text/plain",
			Labels:      map[string]string{"team": "billing"},
		}

		var captured registryUseCase.PutObjectInput
		objectUseCase.On("Put", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				captured = args.Get(1).(registryUseCase.PutObjectInput)
			}).
			Return(stored, nil)
		auditID := uuid.Must(uuid.NewV7())
		auditLogUseCase.On("Append", mock.Anything, mock.Anything).Return(auditID, nil)

		router := setupObjectRouter(handler)
		request := httptest.NewRequest(
			http.MethodPut, "/payments/report?version=v1", strings.NewReader("hello"),
		)
		request.Header.Set("Content-Type", "text/plain")
		request.Header.Set("x-label-team", "billing")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusCreated, recorder.Code)
		assert.Equal(t, auditID.String(), recorder.Header().Get(auditDomain.XAuditIDHeader))
		assert.Contains(t, recorder.Body.String(), `"checksum":"abc123"`)

		assert.Equal(t, "payments", captured.Namespace)
		assert.Equal(t, "report", captured.Object)
		require.NotNil(t, captured.Version)
		assert.Equal(t, "v1", *captured.Version)
		assert.Equal(t, "text/plain", captured.ContentType)
		assert.Equal(t, map[string]string{"team": "billing"}, captured.Labels)
		assert.Equal(t, []byte("hello"), captured.Payload)

		entry := auditLogUseCase.Calls[0].Arguments.Get(1).(auditDomain.AuditLog)
		assert.Equal(t, auditDomain.ActionPutObject, entry.Action)
		require.NotNil(t, entry.ObjectKey)
		assert.Equal(t, "payments/report@v1", *entry.ObjectKey)
	})

	t.Run("reserved namespace yields 400", func(t *testing.T) {
		handler, objectUseCase, auditLogUseCase := newObjectHandler()

		objectUseCase.On("Put", mock.Anything, mock.Anything).
			Return(nil, domain.ErrReservedNamespace)

		router := setupObjectRouter(handler)
		request := httptest.NewRequest(http.MethodPut, "/public-keys/report", strings.NewReader("x"))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		auditLogUseCase.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})
}

func TestObjectHandler_GetHandler(t *testing.T) {
	t.Run("returns payload with etag", func(t *testing.T) {
		handler, objectUseCase, auditLogUseCase := newObjectHandler()

		stored := &domain.ObjectMetadata{
			Namespace:   "payments",
			Object:      "report",
			Checksum:    "abc123",
			ContentType: "text/plain",
		}
		objectUseCase.On("Stat", mock.Anything, "payments", "report", (*string)(nil)).
			Return(stored, nil)
		objectUseCase.On("Get", mock.Anything, "payments", "report", (*string)(nil)).
			Return(stored, []byte("hello"), nil)
		auditLogUseCase.On("Append", mock.Anything, mock.Anything).Return(uuid.Must(uuid.NewV7()), nil)

		router := setupObjectRouter(handler)
		request := httptest.NewRequest(http.MethodGet, "/payments/report", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "hello", recorder.Body.String())
		assert.Equal(t, "abc123", recorder.Header().Get("ETag"))
		assert.Contains(t, recorder.Header().Get("Content-Type"), "text/plain")
	})

	t.Run("matching if-none-match yields 304 without reading the payload", func(t *testing.T) {
		handler, objectUseCase, auditLogUseCase := newObjectHandler()

		stored := &domain.ObjectMetadata{Namespace: "payments", Object: "report", Checksum: "abc123"}
		objectUseCase.On("Stat", mock.Anything, "payments", "report", (*string)(nil)).
			Return(stored, nil)
		auditLogUseCase.On("Append", mock.Anything, mock.Anything).Return(uuid.Must(uuid.NewV7()), nil)

		router := setupObjectRouter(handler)
		request := httptest.NewRequest(http.MethodGet, "/payments/report", nil)
		request.Header.Set("If-None-Match", "abc123")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusNotModified, recorder.Code)
		assert.Empty(t, recorder.Body.String())
		assert.Equal(t, "abc123", recorder.Header().Get("ETag"))
		objectUseCase.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		auditLogUseCase.AssertNumberOfCalls(t, "Append", 1)
	})

	t.Run("stale if-none-match yields the full payload", func(t *testing.T) {
		handler, objectUseCase, auditLogUseCase := newObjectHandler()

		stored := &domain.ObjectMetadata{
			Namespace:   "payments",
			Object:      "report",
			Checksum:    "def456",
			ContentType: "text/plain",
		}
		objectUseCase.On("Stat", mock.Anything, "payments", "report", (*string)(nil)).
			Return(stored, nil)
		objectUseCase.On("Get", mock.Anything, "payments", "report", (*string)(nil)).
			Return(stored, []byte("hello"), nil)
		auditLogUseCase.On("Append", mock.Anything, mock.Anything).Return(uuid.Must(uuid.NewV7()), nil)

		router := setupObjectRouter(handler)
		request := httptest.NewRequest(http.MethodGet, "/payments/report", nil)
		request.Header.Set("If-None-Match", "abc123")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "hello", recorder.Body.String())
		assert.Equal(t, "def456", recorder.Header().Get("ETag"))
	})

	t.Run("missing object yields 404", func(t *testing.T) {
		handler, objectUseCase, _ := newObjectHandler()

		objectUseCase.On("Stat", mock.Anything, "payments", "missing", (*string)(nil)).
			Return(nil, domain.ErrObjectNotFound)

		router := setupObjectRouter(handler)
		request := httptest.NewRequest(http.MethodGet, "/payments/missing", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestObjectHandler_DeleteHandler(t *testing.T) {
	t.Run("removes object", func(t *testing.T) {
		handler, objectUseCase, auditLogUseCase := newObjectHandler()

		objectUseCase.On("Delete", mock.Anything, "payments", "report", (*string)(nil)).Return(nil)
		auditLogUseCase.On("Append", mock.Anything, mock.Anything).Return(uuid.Must(uuid.NewV7()), nil)

		router := setupObjectRouter(handler)
		request := httptest.NewRequest(http.MethodDelete, "/payments/report", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusNoContent, recorder.Code)

		entry := auditLogUseCase.Calls[0].Arguments.Get(1).(auditDomain.AuditLog)
		assert.Equal(t, auditDomain.ActionDeleteObject, entry.Action)
	})

	t.Run("missing object yields 404 without auditing", func(t *testing.T) {
		handler, objectUseCase, auditLogUseCase := newObjectHandler()

		objectUseCase.On("Delete", mock.Anything, "payments", "missing", (*string)(nil)).
			Return(domain.ErrObjectNotFound)

		router := setupObjectRouter(handler)
		request := httptest.NewRequest(http.MethodDelete, "/payments/missing", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusNotFound, recorder.Code)
		auditLogUseCase.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})
}

func TestObjectHandler_ListObjectsHandler(t *testing.T) {
	t.Run("lists namespace objects", func(t *testing.T) {
		handler, objectUseCase, auditLogUseCase := newObjectHandler()

		records := []*domain.ObjectMetadata{
			{Namespace: "payments", Object: "invoice", Checksum: "def"},
			{Namespace: "payments", Object: "report", Checksum: "abc"},
		}
		objectUseCase.On("List", mock.Anything, "payments", 50).Return(records, nil)
		auditLogUseCase.On("Append", mock.Anything, mock.Anything).Return(uuid.Must(uuid.NewV7()), nil)

		router := setupObjectRouter(handler)
		request := httptest.NewRequest(http.MethodGet, "/payments", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), `"object":"invoice"`)
		assert.Contains(t, recorder.Body.String(), `"object":"report"`)
	})

	t.Run("invalid limit yields 422", func(t *testing.T) {
		handler, objectUseCase, _ := newObjectHandler()

		router := setupObjectRouter(handler)
		request := httptest.NewRequest(http.MethodGet, "/payments?limit=bogus", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
		objectUseCase.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestObjectHandler_ListNamespacesHandler(t *testing.T) {
	handler, objectUseCase, auditLogUseCase := newObjectHandler()

	objectUseCase.On("ListNamespaces", mock.Anything, 50).Return([]string{"billing", "payments"}, nil)
	auditLogUseCase.On("Append", mock.Anything, mock.Anything).Return(uuid.Must(uuid.NewV7()), nil)

	router := setupObjectRouter(handler)
	request := httptest.NewRequest(http.MethodGet, "/namespaces", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"namespaces": ["billing", "payments"]}`, recorder.Body.String())

	entry := auditLogUseCase.Calls[0].Arguments.Get(1).(auditDomain.AuditLog)
	assert.Equal(t, auditDomain.ActionListNamespaces, entry.Action)
}
