package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/registry/internal/errors"
	"github.com/allisson/registry/internal/keys/domain"
)

func TestPostgreSQLKeyRepository_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLKeyRepository(db)
	record := &domain.KeyRecord{
		KeyID:               "ci-deploy-key",
		PublicKeyPEM:        "-----BEGIN PUBLIC KEY-----\n...\n-----END PUBLIC KEY-----\n",
		PermittedNamespaces: []string{"payments"},
		PermittedMethods:    []string{"object:put"},
		CreatedAt:           time.Now().UTC(),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO capability_keys")).
		WithArgs(record.KeyID, record.PublicKeyPEM, []byte(`["payments"]`), []byte(`["object:put"]`), record.CreatedAt, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Upsert(context.Background(), record)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLKeyRepository_GetByKeyID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLKeyRepository(db)
	createdAt := time.Now().UTC()
	expiresAt := createdAt.Add(time.Hour)

	rows := sqlmock.NewRows([]string{
		"key_id", "public_key_pem", "permitted_namespaces", "permitted_methods", "created_at", "expires_at",
	}).AddRow("ci-deploy-key", "pem", []byte(`["payments","billing"]`), []byte(`["*"]`), createdAt, expiresAt)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT key_id, public_key_pem, permitted_namespaces, permitted_methods, created_at, expires_at")).
		WithArgs("ci-deploy-key").
		WillReturnRows(rows)

	record, err := repo.GetByKeyID(context.Background(), "ci-deploy-key")

	require.NoError(t, err)
	assert.Equal(t, []string{"payments", "billing"}, record.PermittedNamespaces)
	assert.Equal(t, []string{"*"}, record.PermittedMethods)
	require.NotNil(t, record.TTL)
	assert.True(t, record.TTL.Equal(expiresAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLKeyRepository_GetByKeyID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLKeyRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT key_id")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"key_id", "public_key_pem", "permitted_namespaces", "permitted_methods", "created_at", "expires_at",
		}))

	_, err = repo.GetByKeyID(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLKeyRepository_ListActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLKeyRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"key_id", "public_key_pem", "permitted_namespaces", "permitted_methods", "created_at", "expires_at",
	}).
		AddRow("key-a", "pem-a", []byte(`["payments"]`), []byte(`["object:get"]`), now, nil).
		AddRow("key-b", "pem-b", []byte(`["*"]`), []byte(`["*"]`), now, now.Add(time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta("FROM capability_keys")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	records, err := repo.ListActive(context.Background(), now)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "key-a", records[0].KeyID)
	assert.Nil(t, records[0].TTL)
	assert.NotNil(t, records[1].TTL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLKeyRepository_DeleteExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLKeyRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM capability_keys")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.DeleteExpired(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
