package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/registry/internal/database"
	apperrors "github.com/allisson/registry/internal/errors"
	"github.com/allisson/registry/internal/events/domain"
)

// MySQLSubscriptionRepository handles subscription persistence for MySQL
type MySQLSubscriptionRepository struct {
	db *sql.DB
}

// NewMySQLSubscriptionRepository creates a new MySQLSubscriptionRepository
func NewMySQLSubscriptionRepository(db *sql.DB) *MySQLSubscriptionRepository {
	return &MySQLSubscriptionRepository{
		db: db,
	}
}

// Upsert inserts a subscription, replacing any existing one with the same
// namespace and id.
func (r *MySQLSubscriptionRepository) Upsert(ctx context.Context, subscription *domain.Subscription) error {
	querier := database.GetTx(ctx, r.db)

	keys, urls, err := marshalSubscription(subscription)
	if err != nil {
		return err
	}

	query := `INSERT INTO subscriptions (namespace, id, keys, notify_kind, notify_method, notify_urls, audience, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
				  keys = VALUES(keys),
				  notify_kind = VALUES(notify_kind),
				  notify_method = VALUES(notify_method),
				  notify_urls = VALUES(notify_urls),
				  audience = VALUES(audience),
				  created_at = VALUES(created_at)`

	_, err = querier.ExecContext(ctx, query,
		subscription.Namespace,
		subscription.ID,
		keys,
		string(subscription.Notify.Kind),
		subscription.Notify.Method,
		urls,
		subscription.Audience,
		subscription.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert subscription")
	}
	return nil
}

// ListByNamespace retrieves all subscriptions for a namespace, oldest first.
func (r *MySQLSubscriptionRepository) ListByNamespace(
	ctx context.Context,
	namespace string,
) ([]*domain.Subscription, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT namespace, id, keys, notify_kind, notify_method, notify_urls, audience, created_at
			  FROM subscriptions
			  WHERE namespace = ?
			  ORDER BY created_at`

	rows, err := querier.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list subscriptions")
	}
	defer func() { _ = rows.Close() }()

	subscriptions := make([]*domain.Subscription, 0)
	for rows.Next() {
		subscription, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subscriptions = append(subscriptions, subscription)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate subscriptions")
	}
	return subscriptions, nil
}

// Delete removes a subscription by namespace and id.
func (r *MySQLSubscriptionRepository) Delete(ctx context.Context, namespace, id string) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM subscriptions WHERE namespace = ? AND id = ?`

	result, err := querier.ExecContext(ctx, query, namespace, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete subscription")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}
