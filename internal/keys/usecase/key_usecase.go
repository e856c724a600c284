// Package usecase implements the capability key registry business logic.
package usecase

import (
	"context"
	"strings"
	"time"

	validation "github.com/jellydator/validation"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/google/uuid"

	apperrors "github.com/allisson/registry/internal/errors"
	"github.com/allisson/registry/internal/keys/domain"
	appValidation "github.com/allisson/registry/internal/validation"
)

// UseCase defines the interface for key registry business logic operations
type UseCase interface {
	Issue(ctx context.Context, input domain.IssueKeyInput) (*domain.KeyRecord, error)
	Lookup(ctx context.Context, keyID string) (*domain.KeyRecord, error)
	ListActive(ctx context.Context) ([]*domain.KeyRecord, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// KeyRepository interface defines key record repository operations
type KeyRepository interface {
	Upsert(ctx context.Context, record *domain.KeyRecord) error
	GetByKeyID(ctx context.Context, keyID string) (*domain.KeyRecord, error)
	ListActive(ctx context.Context, now time.Time) ([]*domain.KeyRecord, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// KeyUseCase handles capability key business logic
type KeyUseCase struct {
	keyRepo KeyRepository
}

// NewKeyUseCase creates a new KeyUseCase
func NewKeyUseCase(keyRepo KeyRepository) *KeyUseCase {
	return &KeyUseCase{
		keyRepo: keyRepo,
	}
}

func (uc *KeyUseCase) validateIssueKeyInput(input domain.IssueKeyInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.KeyID,
			appValidation.NoWhitespace,
			validation.Length(0, 255).Error("key id must be at most 255 characters"),
		),
		validation.Field(&input.PublicKeyPEM,
			validation.Required.Error("public key is required"),
			appValidation.NotBlank,
		),
		validation.Field(&input.PermittedNamespaces,
			validation.Each(appValidation.NotBlank, appValidation.NoWhitespace),
		),
		validation.Field(&input.PermittedMethods,
			validation.Each(appValidation.NotBlank, appValidation.NoWhitespace),
		),
	)
	return appValidation.WrapValidationError(err)
}

// Issue registers a public key with its permission scope and returns the
// stored record. When no key id is supplied one is generated. Issuing an
// existing id replaces the prior record.
func (uc *KeyUseCase) Issue(ctx context.Context, input domain.IssueKeyInput) (*domain.KeyRecord, error) {
	if err := uc.validateIssueKeyInput(input); err != nil {
		return nil, err
	}

	// Reject material that cannot verify signatures before persisting it.
	if _, err := jwk.ParseKey([]byte(input.PublicKeyPEM), jwk.WithPEM(true)); err != nil {
		return nil, apperrors.Wrap(domain.ErrInvalidPublicKey, err.Error())
	}

	keyID := strings.TrimSpace(input.KeyID)
	if keyID == "" {
		keyID = uuid.Must(uuid.NewV7()).String()
	}

	record := &domain.KeyRecord{
		KeyID:               keyID,
		PublicKeyPEM:        input.PublicKeyPEM,
		PermittedNamespaces: input.PermittedNamespaces,
		PermittedMethods:    input.PermittedMethods,
		CreatedAt:           time.Now().UTC(),
		TTL:                 input.TTL,
	}

	if err := uc.keyRepo.Upsert(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Lookup retrieves an active key record by id. A record past its TTL is
// indistinguishable from an absent one.
func (uc *KeyUseCase) Lookup(ctx context.Context, keyID string) (*domain.KeyRecord, error) {
	record, err := uc.keyRepo.GetByKeyID(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if record.Expired(time.Now().UTC()) {
		return nil, domain.ErrKeyNotFound
	}
	return record, nil
}

// ListActive retrieves all key records that are live right now.
func (uc *KeyUseCase) ListActive(ctx context.Context) ([]*domain.KeyRecord, error) {
	return uc.keyRepo.ListActive(ctx, time.Now().UTC())
}

// PurgeExpired removes expired key records from storage.
func (uc *KeyUseCase) PurgeExpired(ctx context.Context) (int64, error) {
	return uc.keyRepo.DeleteExpired(ctx, time.Now().UTC())
}
