// Package http provides HTTP handlers for object storage operations.
// Payloads travel as raw request/response bodies; object identity comes
// from the URL path plus an optional version query parameter.
package http

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/allisson/registry/internal/audit/domain"
	auditHTTP "github.com/allisson/registry/internal/audit/http"
	auditUseCase "github.com/allisson/registry/internal/audit/usecase"
	"github.com/allisson/registry/internal/httputil"
	registryDomain "github.com/allisson/registry/internal/registry/domain"
	"github.com/allisson/registry/internal/registry/http/dto"
	registryUseCase "github.com/allisson/registry/internal/registry/usecase"
)

const labelHeaderPrefix = "x-label-"

// ObjectHandler handles HTTP requests for object storage operations.
// Every authorized call appends one audit entry and exposes its id via
// the x-audit-id response header.
type ObjectHandler struct {
	objectUseCase   registryUseCase.UseCase
	auditLogUseCase auditUseCase.UseCase
	logger          *slog.Logger
}

// NewObjectHandler creates a new object handler with required dependencies.
func NewObjectHandler(
	objectUseCase registryUseCase.UseCase,
	auditLogUseCase auditUseCase.UseCase,
	logger *slog.Logger,
) *ObjectHandler {
	return &ObjectHandler{
		objectUseCase:   objectUseCase,
		auditLogUseCase: auditLogUseCase,
		logger:          logger,
	}
}

// PutHandler stores an object payload.
// PUT /{namespace}/{object}?version=v - Requires object:put.
// Labels come from x-label-* request headers. Returns 201 Created with
// the stored metadata.
func (h *ObjectHandler) PutHandler(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	input := registryUseCase.PutObjectInput{
		Namespace:   c.Param("namespace"),
		Object:      c.Param("object"),
		Version:     versionFrom(c),
		ContentType: c.ContentType(),
		Labels:      labelsFrom(c),
		Payload:     payload,
		Subject:     auditHTTP.SubjectFrom(c),
	}

	metadata, err := h.objectUseCase.Put(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.record(c, auditDomain.ActionPutObject, metadata.Namespace, metadata.StorageKey())
	c.JSON(http.StatusCreated, dto.MapObjectMetadataToResponse(metadata))
}

// GetHandler retrieves an object payload.
// GET /{namespace}/{object}?version=v - Requires object:get.
// The response carries ETag = checksum; If-None-Match against the stored
// checksum short-circuits to 304 without touching the payload.
func (h *ObjectHandler) GetHandler(c *gin.Context) {
	namespace := c.Param("namespace")
	object := c.Param("object")
	version := versionFrom(c)

	metadata, err := h.objectUseCase.Stat(c.Request.Context(), namespace, object, version)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if match := c.GetHeader("If-None-Match"); match != "" && match == metadata.Checksum {
		h.record(c, auditDomain.ActionGetObject, metadata.Namespace, metadata.StorageKey())
		c.Header("ETag", metadata.Checksum)
		c.Status(http.StatusNotModified)
		return
	}

	_, payload, err := h.objectUseCase.Get(c.Request.Context(), namespace, object, version)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.record(c, auditDomain.ActionGetObject, metadata.Namespace, metadata.StorageKey())
	c.Header("ETag", metadata.Checksum)
	c.Data(http.StatusOK, metadata.ContentType, payload)
}

// DeleteHandler removes an object.
// DELETE /{namespace}/{object}?version=v - Requires object:delete.
// Returns 204 No Content.
func (h *ObjectHandler) DeleteHandler(c *gin.Context) {
	namespace := c.Param("namespace")
	object := c.Param("object")
	version := versionFrom(c)

	if err := h.objectUseCase.Delete(c.Request.Context(), namespace, object, version); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.record(c, auditDomain.ActionDeleteObject, namespace,
		registryDomain.ObjectKey(namespace, object, version))
	c.Data(http.StatusNoContent, "application/json", nil)
}

// ListObjectsHandler retrieves the objects of a namespace.
// GET /{namespace}?limit=50 - Requires object:get.
func (h *ObjectHandler) ListObjectsHandler(c *gin.Context) {
	limit, err := httputil.ParseLimit(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	namespace := c.Param("namespace")
	records, err := h.objectUseCase.List(c.Request.Context(), namespace, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.record(c, auditDomain.ActionListObjects, namespace, "")
	c.JSON(http.StatusOK, dto.MapObjectsToListResponse(records))
}

// ListNamespacesHandler retrieves the namespaces holding objects.
// GET /namespaces?limit=50 - Requires namespace:list.
func (h *ObjectHandler) ListNamespacesHandler(c *gin.Context) {
	limit, err := httputil.ParseLimit(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	namespaces, err := h.objectUseCase.ListNamespaces(c.Request.Context(), limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	auditHTTP.RecordEntry(c, h.auditLogUseCase, auditDomain.AuditLog{
		Action:  auditDomain.ActionListNamespaces,
		Subject: auditHTTP.SubjectFrom(c),
	}, h.logger)
	c.JSON(http.StatusOK, dto.ListNamespacesResponse{Namespaces: namespaces})
}

func (h *ObjectHandler) record(c *gin.Context, action auditDomain.Action, namespace, objectKey string) {
	entry := auditDomain.AuditLog{
		Action:    action,
		Subject:   auditHTTP.SubjectFrom(c),
		Namespace: &namespace,
	}
	if objectKey != "" {
		entry.ObjectKey = &objectKey
	}
	auditHTTP.RecordEntry(c, h.auditLogUseCase, entry, h.logger)
}

func versionFrom(c *gin.Context) *string {
	version := c.Query("version")
	if version == "" {
		return nil
	}
	return &version
}

func labelsFrom(c *gin.Context) map[string]string {
	var labels map[string]string
	for name, values := range c.Request.Header {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, labelHeaderPrefix) || len(values) == 0 {
			continue
		}
		if labels == nil {
			labels = make(map[string]string)
		}
		labels[strings.TrimPrefix(lower, labelHeaderPrefix)] = values[0]
	}
	return labels
}
