// Package dto provides request and response mapping for subscription handlers.
package dto

import (
	"time"

	"github.com/allisson/registry/internal/events/domain"
)

// CreatedResponse carries the id of a stored subscription.
type CreatedResponse struct {
	ID string `json:"id"`
}

// NotifyResponse is the wire representation of delivery settings.
type NotifyResponse struct {
	Kind   string   `json:"kind"`
	Method string   `json:"method"`
	URLs   []string `json:"urls"`
}

// SubscriptionResponse is the wire representation of one subscription.
type SubscriptionResponse struct {
	Namespace string         `json:"namespace"`
	ID        string         `json:"id"`
	Keys      []string       `json:"keys"`
	Notify    NotifyResponse `json:"notify"`
	Audience  string         `json:"audience,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ListSubscriptionsResponse wraps a namespace's subscriptions.
type ListSubscriptionsResponse struct {
	Subscriptions []SubscriptionResponse `json:"subscriptions"`
}

// MapSubscriptionsToListResponse converts domain subscriptions to the wire representation.
func MapSubscriptionsToListResponse(subscriptions []*domain.Subscription) ListSubscriptionsResponse {
	response := ListSubscriptionsResponse{
		Subscriptions: make([]SubscriptionResponse, 0, len(subscriptions)),
	}
	for _, subscription := range subscriptions {
		response.Subscriptions = append(response.Subscriptions, SubscriptionResponse{
			Namespace: subscription.Namespace,
			ID:        subscription.ID,
			Keys:      subscription.Keys,
			Notify: NotifyResponse{
				Kind:   string(subscription.Notify.Kind),
				Method: subscription.Notify.Method,
				URLs:   subscription.Notify.URLs,
			},
			Audience:  subscription.Audience,
			CreatedAt: subscription.CreatedAt,
		})
	}
	return response
}
