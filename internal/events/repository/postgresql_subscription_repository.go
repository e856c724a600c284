// Package repository provides data persistence implementations for event subscriptions.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/allisson/registry/internal/database"
	apperrors "github.com/allisson/registry/internal/errors"
	"github.com/allisson/registry/internal/events/domain"
)

// PostgreSQLSubscriptionRepository handles subscription persistence for PostgreSQL
type PostgreSQLSubscriptionRepository struct {
	db *sql.DB
}

// NewPostgreSQLSubscriptionRepository creates a new PostgreSQLSubscriptionRepository
func NewPostgreSQLSubscriptionRepository(db *sql.DB) *PostgreSQLSubscriptionRepository {
	return &PostgreSQLSubscriptionRepository{
		db: db,
	}
}

// Upsert inserts a subscription, replacing any existing one with the same
// namespace and id.
func (r *PostgreSQLSubscriptionRepository) Upsert(ctx context.Context, subscription *domain.Subscription) error {
	querier := database.GetTx(ctx, r.db)

	keys, urls, err := marshalSubscription(subscription)
	if err != nil {
		return err
	}

	query := `INSERT INTO subscriptions (namespace, id, keys, notify_kind, notify_method, notify_urls, audience, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  ON CONFLICT (namespace, id) DO UPDATE SET
				  keys = EXCLUDED.keys,
				  notify_kind = EXCLUDED.notify_kind,
				  notify_method = EXCLUDED.notify_method,
				  notify_urls = EXCLUDED.notify_urls,
				  audience = EXCLUDED.audience,
				  created_at = EXCLUDED.created_at`

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
func (r *PostgreSQLSubscriptionRepository) ListByNamespace(
	ctx context.Context,
	namespace string,
) ([]*domain.Subscription, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT namespace, id, keys, notify_kind, notify_method, notify_urls, audience, created_at
			  FROM subscriptions
			  WHERE namespace = $1
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
func (r *PostgreSQLSubscriptionRepository) Delete(ctx context.Context, namespace, id string) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM subscriptions WHERE namespace = $1 AND id = $2`

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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*domain.Subscription, error) {
	var (
		subscription domain.Subscription
		keys         []byte
		kind         string
		urls         []byte
	)
	err := row.Scan(
		&subscription.Namespace,
		&subscription.ID,
		&keys,
		&kind,
		&subscription.Notify.Method,
		&urls,
		&subscription.Audience,
		&subscription.CreatedAt,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan subscription")
	}
	if err := json.Unmarshal(keys, &subscription.Keys); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode subscription keys")
	}
	if err := json.Unmarshal(urls, &subscription.Notify.URLs); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode subscription urls")
	}
	subscription.Notify.Kind = domain.ParseNotifyKind(kind)
	return &subscription, nil
}

func marshalSubscription(subscription *domain.Subscription) ([]byte, []byte, error) {
	keys, err := json.Marshal(subscription.Keys)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to encode subscription keys")
	}
	urls, err := json.Marshal(subscription.Notify.URLs)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to encode subscription urls")
	}
	return keys, urls, nil
}
