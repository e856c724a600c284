// Package domain defines authentication and authorization domain models.
// Implements capability-token authentication with method/namespace permission scopes.
package domain

// Method identifies an operation a capability may permit.
// Methods are matched by exact string equality, or by the single wildcard token.
type Method = string

const (
	// MethodObjectPut allows storing an object in a namespace.
	MethodObjectPut Method = "object:put"

	// MethodObjectGet allows fetching an object or listing a namespace's objects.
	MethodObjectGet Method = "object:get"

	// MethodObjectDelete allows removing an object from a namespace.
	MethodObjectDelete Method = "object:delete"

	// MethodNamespaceList allows listing all namespaces.
	MethodNamespaceList Method = "namespace:list"

	// MethodEventPost allows creating an event subscription.
	MethodEventPost Method = "event:post"

	// MethodEventPut allows replacing an event subscription.
	MethodEventPut Method = "event:put"

	// MethodEventGet allows listing event subscriptions.
	MethodEventGet Method = "event:get"

	// MethodEventDelete allows removing an event subscription.
	MethodEventDelete Method = "event:delete"

	// MethodAuditList allows querying the audit log.
	MethodAuditList Method = "audit:list"
)

// RoleService is the role claim carried by tokens minted for service callers.
const RoleService = "SERVICE"
