package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/registry/internal/errors"
	"github.com/allisson/registry/internal/events/domain"
)

// MockSubscriptionRepository is a mock implementation of SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Upsert(ctx context.Context, subscription *domain.Subscription) error {
	args := m.Called(ctx, subscription)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) ListByNamespace(
	ctx context.Context,
	namespace string,
) ([]*domain.Subscription, error) {
	args := m.Called(ctx, namespace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Delete(ctx context.Context, namespace, id string) error {
	args := m.Called(ctx, namespace, id)
	return args.Error(0)
}

func validInput() SubscriptionInput {
	return SubscriptionInput{
		Keys: []string{"report", "summary"},
		Notify: Notify{
			Kind:   "http",
			Method: "POST",
			URLs:   []string{"https://hooks.example.com/registry"},
		},
		Audience: "hooks.example.com",
	}
}

func TestSubscriptionUseCase_Create(t *testing.T) {
	repo := &MockSubscriptionRepository{}
	useCase := NewSubscriptionUseCase(repo)
	ctx := context.Background()

	repo.On("Upsert", ctx, mock.AnythingOfType("*domain.Subscription")).Return(nil)

	subscription, err := useCase.Create(ctx, "payments", validInput())

	require.NoError(t, err)
	assert.Equal(t, "payments", subscription.Namespace)
	assert.NotEmpty(t, subscription.ID)
	assert.Equal(t, domain.NotifyKindHTTP, subscription.Notify.Kind)
	assert.False(t, subscription.CreatedAt.IsZero())
	repo.AssertExpectations(t)
}

func TestSubscriptionUseCase_Create_EmptyKeys(t *testing.T) {
	repo := &MockSubscriptionRepository{}
	useCase := NewSubscriptionUseCase(repo)

	input := validInput()
	input.Keys = nil

	_, err := useCase.Create(context.Background(), "payments", input)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestSubscriptionUseCase_Create_InvalidMethod(t *testing.T) {
	repo := &MockSubscriptionRepository{}
	useCase := NewSubscriptionUseCase(repo)

	input := validInput()
	input.Notify.Method = "FETCH"

	_, err := useCase.Create(context.Background(), "payments", input)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}

func TestSubscriptionUseCase_Create_RelativeURL(t *testing.T) {
	repo := &MockSubscriptionRepository{}
	useCase := NewSubscriptionUseCase(repo)

	input := validInput()
	input.Notify.URLs = []string{"/hooks/registry"}

	_, err := useCase.Create(context.Background(), "payments", input)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}

func TestSubscriptionUseCase_Create_UnknownKindIsStored(t *testing.T) {
	repo := &MockSubscriptionRepository{}
	useCase := NewSubscriptionUseCase(repo)
	ctx := context.Background()

	repo.On("Upsert", ctx, mock.AnythingOfType("*domain.Subscription")).Return(nil)

	input := validInput()
	input.Notify.Kind = "carrier-pigeon"

	subscription, err := useCase.Create(ctx, "payments", input)

	require.NoError(t, err)
	assert.Equal(t, domain.NotifyKindUnknown, subscription.Notify.Kind)
}

func TestSubscriptionUseCase_Replace_KeepsCallerID(t *testing.T) {
	repo := &MockSubscriptionRepository{}
	useCase := NewSubscriptionUseCase(repo)
	ctx := context.Background()

	repo.On("Upsert", ctx, mock.AnythingOfType("*domain.Subscription")).Return(nil)

	subscription, err := useCase.Replace(ctx, "payments", "sub-1", validInput())

	require.NoError(t, err)
	assert.Equal(t, "sub-1", subscription.ID)
}

func TestSubscriptionUseCase_Delete_NotFound(t *testing.T) {
	repo := &MockSubscriptionRepository{}
	useCase := NewSubscriptionUseCase(repo)
	ctx := context.Background()

	repo.On("Delete", ctx, "payments", "missing").Return(domain.ErrSubscriptionNotFound)

	err := useCase.Delete(ctx, "payments", "missing")

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestSubscription_Matches(t *testing.T) {
	exact := &domain.Subscription{Keys: []string{"report"}}
	wildcard := &domain.Subscription{Keys: []string{domain.WildcardKey}}

	assert.True(t, exact.Matches("report"))
	assert.False(t, exact.Matches("report-v2"))
	assert.False(t, exact.Matches("rep"))
	assert.True(t, wildcard.Matches("anything"))
}
