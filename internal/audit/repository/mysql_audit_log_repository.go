package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/allisson/registry/internal/audit/domain"
	"github.com/allisson/registry/internal/database"
	apperrors "github.com/allisson/registry/internal/errors"
)

// MySQLAuditLogRepository implements audit log persistence for MySQL.
type MySQLAuditLogRepository struct {
	db *sql.DB
}

// NewMySQLAuditLogRepository creates a new MySQL audit log repository.
func NewMySQLAuditLogRepository(db *sql.DB) *MySQLAuditLogRepository {
	return &MySQLAuditLogRepository{db: db}
}

// Create inserts a new audit entry. Handles nil details as database NULL.
func (m *MySQLAuditLogRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	querier := database.GetTx(ctx, m.db)

	var detailsJSON []byte
	var err error
	if entry.Details != nil {
		detailsJSON, err = json.Marshal(entry.Details)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit log details")
		}
	}

	query := `INSERT INTO audit_logs (id, timestamp, expires_at, action, subject, namespace, object_key, details)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		entry.ID.String(),
		entry.Timestamp,
		entry.TTL,
		entry.Action,
		entry.Subject,
		entry.Namespace,
		entry.ObjectKey,
		detailsJSON,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}
	return nil
}

// List retrieves audit entries newest first. Values within one filter field
// are OR'd (SQL IN), fields are AND'd together.
func (m *MySQLAuditLogRepository) List(
	ctx context.Context,
	filter domain.QueryFilter,
) ([]*domain.AuditLog, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, timestamp, expires_at, action, subject, namespace, object_key, details
			  FROM audit_logs`

	var conditions []string
	var args []any
	appendInClause := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		placeholders := make([]string, len(values))
		for i, value := range values {
			args = append(args, value)
			placeholders[i] = "?"
		}
		conditions = append(conditions, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	}
	appendInClause("action", filter.Actions)
	appendInClause("subject", filter.Subjects)
	appendInClause("namespace", filter.Namespaces)

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, filter.Limit)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*domain.AuditLog, 0)
	for rows.Next() {
		entry, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}
	return entries, nil
}

// DeleteExpired removes entries whose retention TTL is at or before the given instant.
func (m *MySQLAuditLogRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM audit_logs WHERE expires_at <= ?`

	result, err := querier.ExecContext(ctx, query, now)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired audit logs")
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return count, nil
}
