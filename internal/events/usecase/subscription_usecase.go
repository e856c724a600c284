// Package usecase implements the event subscription business logic.
package usecase

import (
	"context"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	"github.com/allisson/registry/internal/events/domain"
	appValidation "github.com/allisson/registry/internal/validation"
)

// SubscriptionInput contains the caller-supplied fields of a subscription.
type SubscriptionInput struct {
	Keys     []string `json:"keys"`
	Notify   Notify   `json:"notify"`
	Audience string   `json:"audience"`
}

// Notify is the wire representation of a subscription's delivery settings.
type Notify struct {
	Kind   string   `json:"kind"`
	Method string   `json:"method"`
	URLs   []string `json:"urls"`
}

// UseCase defines the interface for subscription business logic operations
type UseCase interface {
	Create(ctx context.Context, namespace string, input SubscriptionInput) (*domain.Subscription, error)
	Replace(ctx context.Context, namespace, id string, input SubscriptionInput) (*domain.Subscription, error)
	ListByNamespace(ctx context.Context, namespace string) ([]*domain.Subscription, error)
	Delete(ctx context.Context, namespace, id string) error
}

// SubscriptionRepository interface defines subscription repository operations
type SubscriptionRepository interface {
	Upsert(ctx context.Context, subscription *domain.Subscription) error
	ListByNamespace(ctx context.Context, namespace string) ([]*domain.Subscription, error)
	Delete(ctx context.Context, namespace, id string) error
}

// SubscriptionUseCase handles subscription business logic
type SubscriptionUseCase struct {
	subscriptionRepo SubscriptionRepository
}

// NewSubscriptionUseCase creates a new SubscriptionUseCase
func NewSubscriptionUseCase(subscriptionRepo SubscriptionRepository) *SubscriptionUseCase {
	return &SubscriptionUseCase{
		subscriptionRepo: subscriptionRepo,
	}
}

func (uc *SubscriptionUseCase) validateSubscriptionInput(input SubscriptionInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Keys,
			validation.Required.Error("keys must not be empty"),
			validation.Each(appValidation.NotBlank, appValidation.NoWhitespace),
		),
		validation.Field(&input.Audience,
			appValidation.NoWhitespace,
		),
	)
	if err == nil {
		err = validation.ValidateStruct(&input.Notify,
			validation.Field(&input.Notify.Kind,
				validation.Required.Error("notify kind is required"),
			),
			validation.Field(&input.Notify.Method,
				validation.Required.Error("notify method is required"),
				appValidation.HTTPMethod,
			),
			validation.Field(&input.Notify.URLs,
				validation.Required.Error("notify urls must not be empty"),
				validation.Each(appValidation.AbsoluteURL),
			),
		)
	}
	return appValidation.WrapValidationError(err)
}

// Create stores a subscription under a generated id.
func (uc *SubscriptionUseCase) Create(
	ctx context.Context,
	namespace string,
	input SubscriptionInput,
) (*domain.Subscription, error) {
	return uc.store(ctx, namespace, uuid.Must(uuid.NewV7()).String(), input)
}

// Replace stores a subscription under the caller's id, overwriting any
// existing subscription with the same namespace and id.
func (uc *SubscriptionUseCase) Replace(
	ctx context.Context,
	namespace, id string,
	input SubscriptionInput,
) (*domain.Subscription, error) {
	return uc.store(ctx, namespace, id, input)
}

func (uc *SubscriptionUseCase) store(
	ctx context.Context,
	namespace, id string,
	input SubscriptionInput,
) (*domain.Subscription, error) {
	if err := uc.validateSubscriptionInput(input); err != nil {
		return nil, err
	}

	subscription := &domain.Subscription{
		Namespace: namespace,
		ID:        id,
		Keys:      input.Keys,
		Notify: domain.Notify{
			// Unknown kinds are stored as-is; the dispatcher skips them.
			Kind:   domain.ParseNotifyKind(input.Notify.Kind),
			Method: input.Notify.Method,
			URLs:   input.Notify.URLs,
		},
		Audience:  input.Audience,
		CreatedAt: time.Now().UTC(),
	}

	if err := uc.subscriptionRepo.Upsert(ctx, subscription); err != nil {
		return nil, err
	}
	return subscription, nil
}

// ListByNamespace retrieves all subscriptions registered for a namespace.
func (uc *SubscriptionUseCase) ListByNamespace(
	ctx context.Context,
	namespace string,
) ([]*domain.Subscription, error) {
	return uc.subscriptionRepo.ListByNamespace(ctx, namespace)
}

// Delete removes a subscription by namespace and id.
func (uc *SubscriptionUseCase) Delete(ctx context.Context, namespace, id string) error {
	return uc.subscriptionRepo.Delete(ctx, namespace, id)
}
