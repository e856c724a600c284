// Package repository provides data persistence implementations for capability key records.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/allisson/registry/internal/database"
	apperrors "github.com/allisson/registry/internal/errors"
	"github.com/allisson/registry/internal/keys/domain"
)

// PostgreSQLKeyRepository handles key record persistence for PostgreSQL
type PostgreSQLKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLKeyRepository creates a new PostgreSQLKeyRepository
func NewPostgreSQLKeyRepository(db *sql.DB) *PostgreSQLKeyRepository {
	return &PostgreSQLKeyRepository{
		db: db,
	}
}

// Upsert inserts a key record, replacing any existing record with the same key id.
// Re-issuing an id is last-write-wins.
func (r *PostgreSQLKeyRepository) Upsert(ctx context.Context, record *domain.KeyRecord) error {
	querier := database.GetTx(ctx, r.db)

	namespaces, methods, err := marshalScopes(record)
	if err != nil {
		return err
	}

	query := `INSERT INTO capability_keys (key_id, public_key_pem, permitted_namespaces, permitted_methods, created_at, expires_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (key_id) DO UPDATE SET
				  public_key_pem = EXCLUDED.public_key_pem,
				  permitted_namespaces = EXCLUDED.permitted_namespaces,
				  permitted_methods = EXCLUDED.permitted_methods,
				  created_at = EXCLUDED.created_at,
				  expires_at = EXCLUDED.expires_at`

	_, err = querier.ExecContext(ctx, query,
		record.KeyID, record.PublicKeyPEM, namespaces, methods, record.CreatedAt, record.TTL,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert key record")
	}
	return nil
}

// GetByKeyID retrieves a key record by key id. Expiry is not evaluated here;
// the use case decides whether a stored record is still live.
func (r *PostgreSQLKeyRepository) GetByKeyID(ctx context.Context, keyID string) (*domain.KeyRecord, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT key_id, public_key_pem, permitted_namespaces, permitted_methods, created_at, expires_at
			  FROM capability_keys WHERE key_id = $1`

	record, err := scanKeyRecord(querier.QueryRowContext(ctx, query, keyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get key record")
	}
	return record, nil
}

// ListActive retrieves all key records that have not expired at the given instant.
func (r *PostgreSQLKeyRepository) ListActive(ctx context.Context, now time.Time) ([]*domain.KeyRecord, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT key_id, public_key_pem, permitted_namespaces, permitted_methods, created_at, expires_at
			  FROM capability_keys
			  WHERE expires_at IS NULL OR expires_at > $1
			  ORDER BY created_at`

	rows, err := querier.QueryContext(ctx, query, now)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list key records")
	}
	defer func() { _ = rows.Close() }()

	var records []*domain.KeyRecord
	for rows.Next() {
		record, err := scanKeyRecord(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan key record")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate key records")
	}
	return records, nil
}

// DeleteExpired removes records whose expiry is at or before the given instant.
// Lookup already treats expired records as absent, this is storage hygiene only.
func (r *PostgreSQLKeyRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM capability_keys WHERE expires_at IS NOT NULL AND expires_at <= $1`

	result, err := querier.ExecContext(ctx, query, now)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired key records")
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKeyRecord(row rowScanner) (*domain.KeyRecord, error) {
	var (
		record     domain.KeyRecord
		namespaces []byte
		methods    []byte
		expiresAt  sql.NullTime
	)
	err := row.Scan(
		&record.KeyID, &record.PublicKeyPEM, &namespaces, &methods, &record.CreatedAt, &expiresAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(namespaces, &record.PermittedNamespaces); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode permitted namespaces")
	}
	if err := json.Unmarshal(methods, &record.PermittedMethods); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode permitted methods")
	}
	if expiresAt.Valid {
		record.TTL = &expiresAt.Time
	}
	return &record, nil
}

func marshalScopes(record *domain.KeyRecord) ([]byte, []byte, error) {
	namespaces, err := json.Marshal(record.PermittedNamespaces)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to encode permitted namespaces")
	}
	methods, err := json.Marshal(record.PermittedMethods)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to encode permitted methods")
	}
	return namespaces, methods, nil
}
