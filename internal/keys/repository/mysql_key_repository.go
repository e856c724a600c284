package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/allisson/registry/internal/database"
	apperrors "github.com/allisson/registry/internal/errors"
	"github.com/allisson/registry/internal/keys/domain"
)

// MySQLKeyRepository handles key record persistence for MySQL
type MySQLKeyRepository struct {
	db *sql.DB
}

// NewMySQLKeyRepository creates a new MySQLKeyRepository
func NewMySQLKeyRepository(db *sql.DB) *MySQLKeyRepository {
	return &MySQLKeyRepository{
		db: db,
	}
}

// Upsert inserts a key record, replacing any existing record with the same key id.
func (r *MySQLKeyRepository) Upsert(ctx context.Context, record *domain.KeyRecord) error {
	querier := database.GetTx(ctx, r.db)

	namespaces, methods, err := marshalScopes(record)
	if err != nil {
		return err
	}

	query := `INSERT INTO capability_keys (key_id, public_key_pem, permitted_namespaces, permitted_methods, created_at, expires_at)
			  VALUES (?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
				  public_key_pem = VALUES(public_key_pem),
				  permitted_namespaces = VALUES(permitted_namespaces),
				  permitted_methods = VALUES(permitted_methods),
				  created_at = VALUES(created_at),
				  expires_at = VALUES(expires_at)`

	_, err = querier.ExecContext(ctx, query,
		record.KeyID, record.PublicKeyPEM, namespaces, methods, record.CreatedAt, record.TTL,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert key record")
	}
	return nil
}

// GetByKeyID retrieves a key record by key id.
func (r *MySQLKeyRepository) GetByKeyID(ctx context.Context, keyID string) (*domain.KeyRecord, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT key_id, public_key_pem, permitted_namespaces, permitted_methods, created_at, expires_at
			  FROM capability_keys WHERE key_id = ?`

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
func (r *MySQLKeyRepository) ListActive(ctx context.Context, now time.Time) ([]*domain.KeyRecord, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT key_id, public_key_pem, permitted_namespaces, permitted_methods, created_at, expires_at
			  FROM capability_keys
			  WHERE expires_at IS NULL OR expires_at > ?
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
func (r *MySQLKeyRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM capability_keys WHERE expires_at IS NOT NULL AND expires_at <= ?`

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
