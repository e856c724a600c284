// Package repository provides data persistence implementations for object metadata.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/allisson/registry/internal/database"
	apperrors "github.com/allisson/registry/internal/errors"
	"github.com/allisson/registry/internal/registry/domain"
)

// PostgreSQLObjectRepository handles object metadata persistence for PostgreSQL
type PostgreSQLObjectRepository struct {
	db *sql.DB
}

// NewPostgreSQLObjectRepository creates a new PostgreSQLObjectRepository
func NewPostgreSQLObjectRepository(db *sql.DB) *PostgreSQLObjectRepository {
	return &PostgreSQLObjectRepository{
		db: db,
	}
}

// Upsert inserts the metadata row for a storage key, replacing any existing
// row. Overwriting an object is last-write-wins.
func (r *PostgreSQLObjectRepository) Upsert(ctx context.Context, metadata *domain.ObjectMetadata) error {
	querier := database.GetTx(ctx, r.db)

	labels, err := marshalLabels(metadata.Labels)
	if err != nil {
		return err
	}

	query := `INSERT INTO object_metadata (object_key, namespace, object_name, version, checksum, size, content_type, labels, created_by, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  ON CONFLICT (object_key) DO UPDATE SET
				  checksum = EXCLUDED.checksum,
				  size = EXCLUDED.size,
				  content_type = EXCLUDED.content_type,
				  labels = EXCLUDED.labels,
				  created_by = EXCLUDED.created_by,
				  created_at = EXCLUDED.created_at`

	_, err = querier.ExecContext(ctx, query,
		metadata.StorageKey(), metadata.Namespace, metadata.Object, metadata.Version,
		metadata.Checksum, metadata.Size, metadata.ContentType, labels,
		metadata.CreatedBy, metadata.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert object metadata")
	}
	return nil
}

// GetByKey retrieves the metadata row for a storage key.
func (r *PostgreSQLObjectRepository) GetByKey(ctx context.Context, key string) (*domain.ObjectMetadata, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT namespace, object_name, version, checksum, size, content_type, labels, created_by, created_at
			  FROM object_metadata WHERE object_key = $1`

	metadata, err := scanObjectMetadata(querier.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrObjectNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get object metadata")
	}
	return metadata, nil
}

// ListByNamespace retrieves the metadata rows of a namespace ordered by key.
func (r *PostgreSQLObjectRepository) ListByNamespace(
	ctx context.Context,
	namespace string,
	limit int,
) ([]*domain.ObjectMetadata, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT namespace, object_name, version, checksum, size, content_type, labels, created_by, created_at
			  FROM object_metadata
			  WHERE namespace = $1
			  ORDER BY object_key
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, namespace, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list object metadata")
	}
	defer func() { _ = rows.Close() }()

	var records []*domain.ObjectMetadata
	for rows.Next() {
		metadata, err := scanObjectMetadata(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan object metadata")
		}
		records = append(records, metadata)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate object metadata")
	}
	return records, nil
}

// ListNamespaces retrieves the distinct namespaces that hold at least one object.
func (r *PostgreSQLObjectRepository) ListNamespaces(ctx context.Context, limit int) ([]string, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT DISTINCT namespace FROM object_metadata ORDER BY namespace LIMIT $1`

	rows, err := querier.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list namespaces")
	}
	defer func() { _ = rows.Close() }()

	var namespaces []string
	for rows.Next() {
		var namespace string
		if err := rows.Scan(&namespace); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan namespace")
		}
		namespaces = append(namespaces, namespace)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate namespaces")
	}
	return namespaces, nil
}

// Delete removes the metadata row for a storage key.
func (r *PostgreSQLObjectRepository) Delete(ctx context.Context, key string) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM object_metadata WHERE object_key = $1`

	result, err := querier.ExecContext(ctx, query, key)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete object metadata")
	}
	count, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if count == 0 {
		return domain.ErrObjectNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObjectMetadata(row rowScanner) (*domain.ObjectMetadata, error) {
	var (
		metadata domain.ObjectMetadata
		version  sql.NullString
		labels   []byte
	)
	err := row.Scan(
		&metadata.Namespace, &metadata.Object, &version, &metadata.Checksum,
		&metadata.Size, &metadata.ContentType, &labels, &metadata.CreatedBy, &metadata.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if version.Valid {
		metadata.Version = &version.String
	}
	if labels != nil {
		if err := json.Unmarshal(labels, &metadata.Labels); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode labels")
		}
	}
	return &metadata, nil
}

func marshalLabels(labels map[string]string) (any, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(labels)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode labels")
	}
	return encoded, nil
}
