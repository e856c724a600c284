// Package http provides HTTP handlers for audit log operations.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/registry/internal/audit/domain"
	"github.com/allisson/registry/internal/audit/http/dto"
	auditUseCase "github.com/allisson/registry/internal/audit/usecase"
	authHTTP "github.com/allisson/registry/internal/auth/http"
	"github.com/allisson/registry/internal/httputil"
)

// AuditLogHandler handles HTTP requests for audit log queries.
type AuditLogHandler struct {
	auditLogUseCase auditUseCase.UseCase
	logger          *slog.Logger
}

// NewAuditLogHandler creates a new audit log handler with required dependencies.
func NewAuditLogHandler(auditLogUseCase auditUseCase.UseCase, logger *slog.Logger) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogUseCase: auditLogUseCase,
		logger:          logger,
	}
}

// ListHandler retrieves audit entries, newest first.
// GET /audit?limit=50&action=PUT_OBJECT&action=DELETE_OBJECT&subject=svc&namespace=payments
// Requires audit:list. Repeated values of one parameter are OR'd; different
// parameters are AND'd. The query itself is audited.
func (h *AuditLogHandler) ListHandler(c *gin.Context) {
	limit, err := httputil.ParseLimit(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	filter := domain.QueryFilter{
		Limit:      limit,
		Actions:    c.QueryArray("action"),
		Subjects:   c.QueryArray("subject"),
		Namespaces: c.QueryArray("namespace"),
	}

	entries, err := h.auditLogUseCase.Query(c.Request.Context(), filter)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	RecordEntry(c, h.auditLogUseCase, domain.AuditLog{
		Action:  domain.ActionListAuditLogs,
		Subject: SubjectFrom(c),
	}, h.logger)

	c.JSON(http.StatusOK, dto.MapAuditLogsToListResponse(entries))
}

// RecordEntry appends an audit entry for the current request and sets the
// x-audit-id response header. Audit storage failures are logged and do not
// fail the caller's request.
func RecordEntry(
	c *gin.Context,
	useCase auditUseCase.UseCase,
	entry domain.AuditLog,
	logger *slog.Logger,
) {
	id, err := useCase.Append(c.Request.Context(), entry)
	if err != nil {
		logger.Error("failed to append audit log",
			slog.String("action", entry.Action),
			slog.Any("error", err))
		return
	}
	c.Header(domain.XAuditIDHeader, id.String())
}

// SubjectFrom resolves the audit subject from the request's verified identity.
func SubjectFrom(c *gin.Context) string {
	if identity, ok := authHTTP.GetIdentity(c.Request.Context()); ok && identity != nil {
		return identity.AuditSubject()
	}
	return ""
}
