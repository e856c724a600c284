package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/registry/internal/database"
	apperrors "github.com/allisson/registry/internal/errors"
	"github.com/allisson/registry/internal/registry/domain"
)

// MySQLObjectRepository handles object metadata persistence for MySQL
type MySQLObjectRepository struct {
	db *sql.DB
}

// NewMySQLObjectRepository creates a new MySQLObjectRepository
func NewMySQLObjectRepository(db *sql.DB) *MySQLObjectRepository {
	return &MySQLObjectRepository{
		db: db,
	}
}

// Upsert inserts the metadata row for a storage key, replacing any existing
// row. Overwriting an object is last-write-wins.
func (r *MySQLObjectRepository) Upsert(ctx context.Context, metadata *domain.ObjectMetadata) error {
	querier := database.GetTx(ctx, r.db)

	labels, err := marshalLabels(metadata.Labels)
	if err != nil {
		return err
	}

	query := `INSERT INTO object_metadata (object_key, namespace, object_name, version, checksum, size, content_type, labels, created_by, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
				  checksum = VALUES(checksum),
				  size = VALUES(size),
				  content_type = VALUES(content_type),
				  labels = VALUES(labels),
				  created_by = VALUES(created_by),
				  created_at = VALUES(created_at)`

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
func (r *MySQLObjectRepository) GetByKey(ctx context.Context, key string) (*domain.ObjectMetadata, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT namespace, object_name, version, checksum, size, content_type, labels, created_by, created_at
			  FROM object_metadata WHERE object_key = ?`

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
func (r *MySQLObjectRepository) ListByNamespace(
	ctx context.Context,
	namespace string,
	limit int,
) ([]*domain.ObjectMetadata, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT namespace, object_name, version, checksum, size, content_type, labels, created_by, created_at
			  FROM object_metadata
			  WHERE namespace = ?
			  ORDER BY object_key
			  LIMIT ?`

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
func (r *MySQLObjectRepository) ListNamespaces(ctx context.Context, limit int) ([]string, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT DISTINCT namespace FROM object_metadata ORDER BY namespace LIMIT ?`

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
func (r *MySQLObjectRepository) Delete(ctx context.Context, key string) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM object_metadata WHERE object_key = ?`

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
