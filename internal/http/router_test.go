package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/registry/internal/audit/domain"
	auditHTTP "github.com/allisson/registry/internal/audit/http"
	authDomain "github.com/allisson/registry/internal/auth/domain"
	authHTTP "github.com/allisson/registry/internal/auth/http"
	"github.com/allisson/registry/internal/config"
	eventsDomain "github.com/allisson/registry/internal/events/domain"
	eventsHTTP "github.com/allisson/registry/internal/events/http"
	eventsUseCase "github.com/allisson/registry/internal/events/usecase"
	apperrors "github.com/allisson/registry/internal/errors"
	keysDomain "github.com/allisson/registry/internal/keys/domain"
	registryDomain "github.com/allisson/registry/internal/registry/domain"
	registryHTTP "github.com/allisson/registry/internal/registry/http"
	registryUseCase "github.com/allisson/registry/internal/registry/usecase"
)

type stubVerifier struct {
	identity *authDomain.Identity
	err      error
}

func (s *stubVerifier) Verify(ctx context.Context, raw string) (*authDomain.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

type stubObjectUseCase struct{}

func (s *stubObjectUseCase) Put(
	ctx context.Context,
	input registryUseCase.PutObjectInput,
) (*registryDomain.ObjectMetadata, error) {
	return &registryDomain.ObjectMetadata{
		Namespace: input.Namespace,
		Object:    input.Object,
		Checksum:  "abc",
	}, nil
}

func (s *stubObjectUseCase) Get(
	ctx context.Context,
	namespace, object string,
	version *string,
) (*registryDomain.ObjectMetadata, []byte, error) {
	metadata, err := s.Stat(ctx, namespace, object, version)
	if err != nil {
		return nil, nil, err
	}
	return metadata, []byte("payload"), nil
}

func (s *stubObjectUseCase) Stat(
	ctx context.Context,
	namespace, object string,
	version *string,
) (*registryDomain.ObjectMetadata, error) {
	return &registryDomain.ObjectMetadata{
		Namespace:   namespace,
		Object:      object,
		Checksum:    "abc",
		ContentType: "text/plain",
	}, nil
}

func (s *stubObjectUseCase) Delete(ctx context.Context, namespace, object string, version *string) error {
	return nil
}

func (s *stubObjectUseCase) List(
	ctx context.Context,
	namespace string,
	limit int,
) ([]*registryDomain.ObjectMetadata, error) {
	return nil, nil
}

func (s *stubObjectUseCase) ListNamespaces(ctx context.Context, limit int) ([]string, error) {
	return []string{"payments"}, nil
}

type stubSubscriptionUseCase struct{}

func (s *stubSubscriptionUseCase) Create(
	ctx context.Context,
	namespace string,
	input eventsUseCase.SubscriptionInput,
) (*eventsDomain.Subscription, error) {
	return &eventsDomain.Subscription{Namespace: namespace, ID: "sub-1"}, nil
}

func (s *stubSubscriptionUseCase) Replace(
	ctx context.Context,
	namespace, id string,
	input eventsUseCase.SubscriptionInput,
) (*eventsDomain.Subscription, error) {
	return &eventsDomain.Subscription{Namespace: namespace, ID: id}, nil
}

func (s *stubSubscriptionUseCase) ListByNamespace(
	ctx context.Context,
	namespace string,
) ([]*eventsDomain.Subscription, error) {
	return nil, nil
}

func (s *stubSubscriptionUseCase) Delete(ctx context.Context, namespace, id string) error {
	return nil
}

type stubAuditUseCase struct{}

func (s *stubAuditUseCase) Append(ctx context.Context, entry auditDomain.AuditLog) (uuid.UUID, error) {
	return uuid.Must(uuid.NewV7()), nil
}

func (s *stubAuditUseCase) Query(
	ctx context.Context,
	filter auditDomain.QueryFilter,
) ([]*auditDomain.AuditLog, error) {
	return nil, nil
}

func (s *stubAuditUseCase) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

type stubSigningKeySource struct{}

func (s *stubSigningKeySource) PublicSigningKey() (jwk.Key, error) {
	return nil, nil
}

type stubKeyLister struct{}

func (s *stubKeyLister) ListActive(ctx context.Context) ([]*keysDomain.KeyRecord, error) {
	return nil, nil
}

func testRouter(t *testing.T, verifier authHTTP.TokenVerifier) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditUC := &stubAuditUseCase{}

	cfg := &config.Config{
		LogLevel:         "info",
		RateLimitEnabled: false,
	}

	return NewRouter(RouterDeps{
		Config:   cfg,
		Logger:   logger,
		Verifier: verifier,
		ObjectHandler: registryHTTP.NewObjectHandler(
			&stubObjectUseCase{}, auditUC, logger,
		),
		SubscriptionHandler: eventsHTTP.NewSubscriptionHandler(
			&stubSubscriptionUseCase{}, auditUC, logger,
		),
		AuditLogHandler: auditHTTP.NewAuditLogHandler(auditUC, logger),
		JWKSHandler: authHTTP.NewJWKSHandler(
			&stubSigningKeySource{}, &stubKeyLister{}, logger,
		),
	})
}

func serviceIdentity() *authDomain.Identity {
	return &authDomain.Identity{
		Claims:      authDomain.Claims{Subject: "object-registry", Roles: []string{authDomain.RoleService}},
		Permissions: authDomain.WildcardPermissions(),
	}
}

func TestRouter_PublicRoutes(t *testing.T) {
	router := testRouter(t, &stubVerifier{err: apperrors.ErrUnauthorized})

	t.Run("health needs no token", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `{"status": "healthy"}`, recorder.Body.String())
	})

	t.Run("jwks needs no token", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/.well-known/jwks", nil))

		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	router := testRouter(t, &stubVerifier{identity: serviceIdentity()})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/namespaces"},
		{http.MethodGet, "/payments"},
		{http.MethodGet, "/payments/report"},
		{http.MethodDelete, "/payments/report"},
		{http.MethodGet, "/events/payments"},
		{http.MethodGet, "/audit"},
	}

	for _, route := range paths {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, httptest.NewRequest(route.method, route.path, nil))

			assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		})
	}
}

func TestRouter_AuthorizedRequestsReachHandlers(t *testing.T) {
	router := testRouter(t, &stubVerifier{identity: serviceIdentity()})

	t.Run("object fetch", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/payments/report", nil)
		request.Header.Set("Authorization", "Bearer token")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "payload", recorder.Body.String())
		assert.Equal(t, "abc", recorder.Header().Get("ETag"))
		assert.NotEmpty(t, recorder.Header().Get(auditDomain.XAuditIDHeader))
	})

	t.Run("namespace listing", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/namespaces", nil)
		request.Header.Set("Authorization", "Bearer token")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `{"namespaces": ["payments"]}`, recorder.Body.String())
	})

	t.Run("audit query", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/audit", nil)
		request.Header.Set("Authorization", "Bearer token")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

func TestRouter_ScopedIdentity(t *testing.T) {
	scoped := &authDomain.Identity{
		Claims: authDomain.Claims{Subject: "ci-deploy"},
		Permissions: authDomain.Permissions{
			PermittedMethods:    []string{authDomain.MethodObjectGet},
			PermittedNamespaces: []string{"payments"},
		},
	}
	router := testRouter(t, &stubVerifier{identity: scoped})

	t.Run("permitted method and namespace pass", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/payments/report", nil)
		request.Header.Set("Authorization", "Bearer token")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		require.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("other namespace is forbidden", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/billing/report", nil)
		request.Header.Set("Authorization", "Bearer token")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})

	t.Run("other method is forbidden", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodDelete, "/payments/report", nil)
		request.Header.Set("Authorization", "Bearer token")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})

	t.Run("namespace-wide scope does not cover listing all namespaces", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/namespaces", nil)
		request.Header.Set("Authorization", "Bearer token")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})
}
