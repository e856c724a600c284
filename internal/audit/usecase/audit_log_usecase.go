// Package usecase implements the audit log business logic.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/registry/internal/audit/domain"
)

// UseCase defines the interface for audit log business logic operations
type UseCase interface {
	Append(ctx context.Context, entry domain.AuditLog) (uuid.UUID, error)
	Query(ctx context.Context, filter domain.QueryFilter) ([]*domain.AuditLog, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// AuditLogRepository interface defines audit log repository operations
type AuditLogRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	List(ctx context.Context, filter domain.QueryFilter) ([]*domain.AuditLog, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AuditLogUseCase handles audit log business logic
type AuditLogUseCase struct {
	auditLogRepo AuditLogRepository
	retention    time.Duration
}

// NewAuditLogUseCase creates a new AuditLogUseCase
func NewAuditLogUseCase(auditLogRepo AuditLogRepository, retention time.Duration) *AuditLogUseCase {
	return &AuditLogUseCase{
		auditLogRepo: auditLogRepo,
		retention:    retention,
	}
}

// Append records one audit entry and returns its id. The id, timestamp and
// retention TTL are assigned here so callers only describe what happened.
func (uc *AuditLogUseCase) Append(ctx context.Context, entry domain.AuditLog) (uuid.UUID, error) {
	entry.ID = uuid.Must(uuid.NewV7())
	entry.Timestamp = time.Now().UTC()
	entry.TTL = entry.Timestamp.Add(uc.retention)

	if err := uc.auditLogRepo.Create(ctx, &entry); err != nil {
		return uuid.Nil, err
	}
	return entry.ID, nil
}

// Query retrieves audit entries newest first, narrowed by the filter.
func (uc *AuditLogUseCase) Query(ctx context.Context, filter domain.QueryFilter) ([]*domain.AuditLog, error) {
	return uc.auditLogRepo.List(ctx, filter)
}

// DeleteExpired removes entries that have fallen out of the retention window.
func (uc *AuditLogUseCase) DeleteExpired(ctx context.Context) (int64, error) {
	return uc.auditLogRepo.DeleteExpired(ctx, time.Now().UTC())
}
