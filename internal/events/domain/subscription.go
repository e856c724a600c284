// Package domain defines the event subscription domain model.
package domain

import (
	"time"

	"github.com/allisson/registry/internal/errors"
)

// NotifyKind is the delivery mechanism of a subscription. The set is closed:
// anything that is not a known kind is stored and reported as unknown, and
// skipped at dispatch time rather than treated as an error.
type NotifyKind string

const (
	// NotifyKindHTTP delivers notifications as webhook calls.
	NotifyKindHTTP NotifyKind = "http"

	// NotifyKindUnknown marks a kind this build does not understand.
	NotifyKindUnknown NotifyKind = "unknown"
)

// ParseNotifyKind maps a wire value onto the closed kind set.
func ParseNotifyKind(value string) NotifyKind {
	if value == string(NotifyKindHTTP) {
		return NotifyKindHTTP
	}
	return NotifyKindUnknown
}

// Notify describes how a subscription wants to be told about mutations.
type Notify struct {
	Kind   NotifyKind
	Method string
	URLs   []string
}

// Subscription registers interest in mutations of a set of object keys within
// one namespace. The wildcard key must be explicit; an empty key set is
// rejected at creation.
type Subscription struct {
	Namespace string
	ID        string
	Keys      []string
	Notify    Notify
	Audience  string
	CreatedAt time.Time
}

// WildcardKey matches every object in the subscription's namespace.
const WildcardKey = "*"

// Matches reports whether the subscription covers the given object name.
// Exact match or the explicit wildcard key only; no prefix or glob semantics.
func (s *Subscription) Matches(objectName string) bool {
	for _, key := range s.Keys {
		if key == WildcardKey || key == objectName {
			return true
		}
	}
	return false
}

var (
	// ErrSubscriptionNotFound is returned when no subscription matches a namespace+id.
	ErrSubscriptionNotFound = errors.Wrap(errors.ErrNotFound, "subscription not found")
)
