// Package usecase implements the object registry business logic. Payload
// bytes live in the blob store, the metadata row is the source of truth
// for existence, and every durable mutation triggers webhook dispatch.
package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/allisson/registry/internal/dispatch"
	"github.com/allisson/registry/internal/registry/domain"
	appValidation "github.com/allisson/registry/internal/validation"
)

// PutObjectInput carries one object write.
type PutObjectInput struct {
	Namespace   string
	Object      string
	Version     *string
	ContentType string
	Labels      map[string]string
	Payload     []byte
	Subject     string
}

// UseCase defines the interface for object registry business logic operations
type UseCase interface {
	Put(ctx context.Context, input PutObjectInput) (*domain.ObjectMetadata, error)
	Get(ctx context.Context, namespace, object string, version *string) (*domain.ObjectMetadata, []byte, error)
	Stat(ctx context.Context, namespace, object string, version *string) (*domain.ObjectMetadata, error)
	Delete(ctx context.Context, namespace, object string, version *string) error
	List(ctx context.Context, namespace string, limit int) ([]*domain.ObjectMetadata, error)
	ListNamespaces(ctx context.Context, limit int) ([]string, error)
}

// ObjectRepository interface defines object metadata repository operations
type ObjectRepository interface {
	Upsert(ctx context.Context, metadata *domain.ObjectMetadata) error
	GetByKey(ctx context.Context, key string) (*domain.ObjectMetadata, error)
	ListByNamespace(ctx context.Context, namespace string, limit int) ([]*domain.ObjectMetadata, error)
	ListNamespaces(ctx context.Context, limit int) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// BlobStore interface defines payload storage operations
type BlobStore interface {
	Write(ctx context.Context, key string, payload []byte, contentType string) error
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// MutationNotifier fans a committed mutation out to subscribers.
type MutationNotifier interface {
	DispatchAsync(event dispatch.MutationEvent)
}

// ObjectUseCase handles object registry business logic
type ObjectUseCase struct {
	objectRepo        ObjectRepository
	blobStore         BlobStore
	notifier          MutationNotifier
	reservedNamespace string
}

// NewObjectUseCase creates a new ObjectUseCase
func NewObjectUseCase(
	objectRepo ObjectRepository,
	blobStore BlobStore,
	notifier MutationNotifier,
	reservedNamespace string,
) *ObjectUseCase {
	return &ObjectUseCase{
		objectRepo:        objectRepo,
		blobStore:         blobStore,
		notifier:          notifier,
		reservedNamespace: reservedNamespace,
	}
}

func (uc *ObjectUseCase) checkNamespace(namespace string) error {
	if namespace == uc.reservedNamespace {
		return domain.ErrReservedNamespace
	}
	return nil
}

func validateObjectRef(namespace, object string, version *string) error {
	ref := struct {
		Namespace string
		Object    string
		Version   *string
	}{namespace, object, version}

	err := validation.ValidateStruct(&ref,
		validation.Field(&ref.Namespace,
			validation.Required.Error("namespace is required"),
			appValidation.NoWhitespace,
		),
		validation.Field(&ref.Object,
			validation.Required.Error("object is required"),
			appValidation.NoWhitespace,
		),
		validation.Field(&ref.Version,
			appValidation.NotBlank,
			appValidation.NoWhitespace,
		),
	)
	return appValidation.WrapValidationError(err)
}

// Put stores the payload and its metadata row, then notifies subscribers.
// Writing an existing key replaces it, last-write-wins.
func (uc *ObjectUseCase) Put(ctx context.Context, input PutObjectInput) (*domain.ObjectMetadata, error) {
	if err := uc.checkNamespace(input.Namespace); err != nil {
		return nil, err
	}
	if err := validateObjectRef(input.Namespace, input.Object, input.Version); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(input.Payload)
	contentType := input.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	metadata := &domain.ObjectMetadata{
		Namespace:   input.Namespace,
		Object:      input.Object,
		Version:     input.Version,
		Checksum:    hex.EncodeToString(sum[:]),
		Size:        int64(len(input.Payload)),
		ContentType: contentType,
		Labels:      input.Labels,
		CreatedBy:   input.Subject,
		CreatedAt:   time.Now().UTC(),
	}

	// Bytes first. A payload without a metadata row is invisible, a
	// metadata row without a payload is a broken read.
	if err := uc.blobStore.Write(ctx, metadata.StorageKey(), input.Payload, contentType); err != nil {
		return nil, err
	}
	if err := uc.objectRepo.Upsert(ctx, metadata); err != nil {
		return nil, err
	}

	uc.notifier.DispatchAsync(uc.mutationEvent(metadata, dispatch.ActionPut))
	return metadata, nil
}

// Get retrieves the metadata row and payload of an object.
func (uc *ObjectUseCase) Get(
	ctx context.Context,
	namespace, object string,
	version *string,
) (*domain.ObjectMetadata, []byte, error) {
	metadata, err := uc.Stat(ctx, namespace, object, version)
	if err != nil {
		return nil, nil, err
	}

	payload, err := uc.blobStore.Read(ctx, metadata.StorageKey())
	if err != nil {
		return nil, nil, err
	}
	return metadata, payload, nil
}

// Stat retrieves the metadata row of an object without touching the payload.
func (uc *ObjectUseCase) Stat(
	ctx context.Context,
	namespace, object string,
	version *string,
) (*domain.ObjectMetadata, error) {
	if err := uc.checkNamespace(namespace); err != nil {
		return nil, err
	}
	return uc.objectRepo.GetByKey(ctx, domain.ObjectKey(namespace, object, version))
}

// Delete removes an object's payload and metadata row, then notifies
// subscribers.
func (uc *ObjectUseCase) Delete(ctx context.Context, namespace, object string, version *string) error {
	metadata, err := uc.Stat(ctx, namespace, object, version)
	if err != nil {
		return err
	}

	if err := uc.blobStore.Delete(ctx, metadata.StorageKey()); err != nil {
		return err
	}
	if err := uc.objectRepo.Delete(ctx, metadata.StorageKey()); err != nil {
		return err
	}

	uc.notifier.DispatchAsync(uc.mutationEvent(metadata, dispatch.ActionDelete))
	return nil
}

// List retrieves the metadata rows of a namespace.
func (uc *ObjectUseCase) List(
	ctx context.Context,
	namespace string,
	limit int,
) ([]*domain.ObjectMetadata, error) {
	if err := uc.checkNamespace(namespace); err != nil {
		return nil, err
	}
	return uc.objectRepo.ListByNamespace(ctx, namespace, limit)
}

// ListNamespaces retrieves the namespaces that hold at least one object.
func (uc *ObjectUseCase) ListNamespaces(ctx context.Context, limit int) ([]string, error) {
	return uc.objectRepo.ListNamespaces(ctx, limit)
}

func (uc *ObjectUseCase) mutationEvent(metadata *domain.ObjectMetadata, action string) dispatch.MutationEvent {
	return dispatch.MutationEvent{
		Namespace:   metadata.Namespace,
		Object:      metadata.Object,
		Action:      action,
		Checksum:    metadata.Checksum,
		Size:        metadata.Size,
		ContentType: metadata.ContentType,
		Labels:      metadata.Labels,
		Version:     metadata.Version,
		Timestamp:   time.Now().UTC(),
	}
}
