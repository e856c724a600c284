// Package http provides HTTP handlers for event subscription operations.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/allisson/registry/internal/audit/domain"
	auditHTTP "github.com/allisson/registry/internal/audit/http"
	auditUseCase "github.com/allisson/registry/internal/audit/usecase"
	"github.com/allisson/registry/internal/events/http/dto"
	eventsUseCase "github.com/allisson/registry/internal/events/usecase"
	"github.com/allisson/registry/internal/httputil"
)

// SubscriptionHandler handles HTTP requests for subscription CRUD.
type SubscriptionHandler struct {
	subscriptionUseCase eventsUseCase.UseCase
	auditLogUseCase     auditUseCase.UseCase
	logger              *slog.Logger
}

// NewSubscriptionHandler creates a new subscription handler with required dependencies.
func NewSubscriptionHandler(
	subscriptionUseCase eventsUseCase.UseCase,
	auditLogUseCase auditUseCase.UseCase,
	logger *slog.Logger,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionUseCase: subscriptionUseCase,
		auditLogUseCase:     auditLogUseCase,
		logger:              logger,
	}
}

// CreateHandler stores a subscription under a generated id.
// POST /events/:namespace - requires event:post. Returns 201 with {"id": "..."}.
func (h *SubscriptionHandler) CreateHandler(c *gin.Context) {
	namespace := c.Param("namespace")

	var input eventsUseCase.SubscriptionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	subscription, err := h.subscriptionUseCase.Create(c.Request.Context(), namespace, input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.record(c, auditDomain.ActionPostEvent, namespace, subscription.ID)
	c.JSON(http.StatusCreated, dto.CreatedResponse{ID: subscription.ID})
}

// ReplaceHandler stores a subscription under the caller's id, overwriting any
// existing subscription with the same namespace and id.
// PUT /events/:namespace/:id - requires event:put. Idempotent.
func (h *SubscriptionHandler) ReplaceHandler(c *gin.Context) {
	namespace := c.Param("namespace")
	id := c.Param("id")

	var input eventsUseCase.SubscriptionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	subscription, err := h.subscriptionUseCase.Replace(c.Request.Context(), namespace, id, input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.record(c, auditDomain.ActionPutEvent, namespace, subscription.ID)
	c.JSON(http.StatusOK, dto.CreatedResponse{ID: subscription.ID})
}

// ListHandler retrieves a namespace's subscriptions.
// GET /events/:namespace - requires event:get.
func (h *SubscriptionHandler) ListHandler(c *gin.Context) {
	namespace := c.Param("namespace")

	subscriptions, err := h.subscriptionUseCase.ListByNamespace(c.Request.Context(), namespace)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.record(c, auditDomain.ActionListEvents, namespace, "")
	c.JSON(http.StatusOK, dto.MapSubscriptionsToListResponse(subscriptions))
}

// DeleteHandler removes a subscription.
// DELETE /events/:namespace/:id - requires event:delete. Returns 404 when absent.
func (h *SubscriptionHandler) DeleteHandler(c *gin.Context) {
	namespace := c.Param("namespace")
	id := c.Param("id")

	if err := h.subscriptionUseCase.Delete(c.Request.Context(), namespace, id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.record(c, auditDomain.ActionDeleteEvent, namespace, id)
	c.Status(http.StatusNoContent)
}

func (h *SubscriptionHandler) record(c *gin.Context, action auditDomain.Action, namespace, id string) {
	entry := auditDomain.AuditLog{
		Action:    action,
		Subject:   auditHTTP.SubjectFrom(c),
		Namespace: &namespace,
	}
	if id != "" {
		entry.Details = map[string]string{"subscription_id": id}
	}
	auditHTTP.RecordEntry(c, h.auditLogUseCase, entry, h.logger)
}
