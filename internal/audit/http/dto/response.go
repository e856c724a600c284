// Package dto provides request and response mapping for audit log handlers.
package dto

import (
	"time"

	"github.com/allisson/registry/internal/audit/domain"
)

// AuditLogResponse is the wire representation of one audit entry.
type AuditLogResponse struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	Subject   string            `json:"subject"`
	Namespace *string           `json:"namespace,omitempty"`
	ObjectKey *string           `json:"objectKey,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// ListAuditLogsResponse wraps a page of audit entries.
type ListAuditLogsResponse struct {
	AuditLogs []AuditLogResponse `json:"auditLogs"`
}

// MapAuditLogsToListResponse converts domain entries to the wire representation.
func MapAuditLogsToListResponse(entries []*domain.AuditLog) ListAuditLogsResponse {
	response := ListAuditLogsResponse{
		AuditLogs: make([]AuditLogResponse, 0, len(entries)),
	}
	for _, entry := range entries {
		response.AuditLogs = append(response.AuditLogs, AuditLogResponse{
			ID:        entry.ID.String(),
			Timestamp: entry.Timestamp,
			Action:    entry.Action,
			Subject:   entry.Subject,
			Namespace: entry.Namespace,
			ObjectKey: entry.ObjectKey,
			Details:   entry.Details,
		})
	}
	return response
}
