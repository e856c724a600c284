package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/registry/internal/audit/domain"
)

// MockAuditLogUseCase is a mock implementation of usecase.UseCase
type MockAuditLogUseCase struct {
	mock.Mock
}

func (m *MockAuditLogUseCase) Append(ctx context.Context, entry domain.AuditLog) (uuid.UUID, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockAuditLogUseCase) Query(ctx context.Context, filter domain.QueryFilter) ([]*domain.AuditLog, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AuditLog), args.Error(1)
}

func (m *MockAuditLogUseCase) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuditLogHandler_ListHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	useCase := &MockAuditLogUseCase{}
	auditID := uuid.Must(uuid.NewV7())

	useCase.On("Query", mock.Anything, domain.QueryFilter{
		Limit:      10,
		Actions:    []string{"PUT_OBJECT", "DELETE_OBJECT"},
		Subjects:   []string{"svc"},
		Namespaces: []string{"payments"},
	}).Return([]*domain.AuditLog{
		{ID: uuid.Must(uuid.NewV7()), Action: "PUT_OBJECT", Subject: "svc"},
	}, nil)
	useCase.On("Append", mock.Anything, mock.MatchedBy(func(entry domain.AuditLog) bool {
		return entry.Action == domain.ActionListAuditLogs
	})).Return(auditID, nil)

	handler := NewAuditLogHandler(useCase, testLogger())
	router := gin.New()
	router.GET("/audit", handler.ListHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/audit?limit=10&action=PUT_OBJECT&action=DELETE_OBJECT&subject=svc&namespace=payments", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, auditID.String(), w.Header().Get(domain.XAuditIDHeader))

	var body struct {
		AuditLogs []struct {
			Action string `json:"action"`
		} `json:"auditLogs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.AuditLogs, 1)
	assert.Equal(t, "PUT_OBJECT", body.AuditLogs[0].Action)
	useCase.AssertExpectations(t)
}

func TestAuditLogHandler_ListHandler_InvalidLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	useCase := &MockAuditLogUseCase{}
	handler := NewAuditLogHandler(useCase, testLogger())
	router := gin.New()
	router.GET("/audit", handler.ListHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/audit?limit=5000", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	useCase.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
}

func TestRecordEntry_AppendFailureDoesNotFailRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	useCase := &MockAuditLogUseCase{}
	useCase.On("Append", mock.Anything, mock.Anything).
		Return(uuid.Nil, assert.AnError)

	router := gin.New()
	router.GET("/ping", func(c *gin.Context) {
		RecordEntry(c, useCase, domain.AuditLog{Action: domain.ActionGetObject}, testLogger())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(domain.XAuditIDHeader))
}
