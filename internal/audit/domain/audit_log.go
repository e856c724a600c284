// Package domain defines the audit log domain model.
//
// Every authorized operation appends exactly one entry; notification delivery
// attempts append one entry each. Entries carry a TTL so the retention command
// can expire them without scanning payloads.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Action identifies an audited operation.
type Action = string

const (
	ActionPutObject      Action = "PUT_OBJECT"
	ActionGetObject      Action = "GET_OBJECT"
	ActionDeleteObject   Action = "DELETE_OBJECT"
	ActionListObjects    Action = "LIST_OBJECTS"
	ActionListNamespaces Action = "LIST_NAMESPACES"
	ActionPostEvent      Action = "POST_EVENT"
	ActionPutEvent       Action = "PUT_EVENT"
	ActionDeleteEvent    Action = "DELETE_EVENT"
	ActionListEvents     Action = "LIST_EVENTS"
	ActionListAuditLogs  Action = "LIST_AUDIT_LOGS"
	ActionIssueKey       Action = "ISSUE_KEY"
	ActionNotify         Action = "NOTIFY"
)

// XAuditIDHeader is the response header carrying the id of the audit entry
// recorded for the request.
const XAuditIDHeader = "x-audit-id"

// AuditLog records one audited operation.
type AuditLog struct {
	ID        uuid.UUID
	Timestamp time.Time
	// TTL is the instant the entry falls out of the retention window.
	TTL       time.Time
	Action    Action
	Subject   string
	Namespace *string
	ObjectKey *string
	Details   map[string]string
}

// QueryFilter narrows an audit log query. Values within one field are OR'd,
// fields are AND'd together. Empty fields match everything.
type QueryFilter struct {
	Limit      int
	Actions    []string
	Subjects   []string
	Namespaces []string
}
