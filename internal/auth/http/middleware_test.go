package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	authDomain "github.com/allisson/registry/internal/auth/domain"
)

// MockTokenVerifier is a mock implementation of TokenVerifier
type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) Verify(ctx context.Context, raw string) (*authDomain.Identity, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.Identity), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serviceIdentity(permissions authDomain.Permissions) *authDomain.Identity {
	return &authDomain.Identity{
		Claims: authDomain.Claims{
			Issuer:  "object-registry",
			Subject: "object-registry",
			Roles:   []string{authDomain.RoleService},
		},
		Permissions: permissions,
	}
}

func setupAuthRouter(verifier TokenVerifier, method authDomain.Method) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/:namespace/:object",
		AuthenticationMiddleware(verifier, testLogger()),
		AuthorizationMiddleware(method, testLogger()),
		func(c *gin.Context) {
			identity, _ := GetIdentity(c.Request.Context())
			c.JSON(http.StatusOK, gin.H{"subject": identity.AuditSubject()})
		},
	)
	router.GET("/namespaces",
		AuthenticationMiddleware(verifier, testLogger()),
		AuthorizationMiddleware(authDomain.MethodNamespaceList, testLogger()),
		func(c *gin.Context) {
			c.Status(http.StatusOK)
		},
	)
	return router
}

func TestAuthenticationMiddleware_MissingHeader(t *testing.T) {
	verifier := &MockTokenVerifier{}
	router := setupAuthRouter(verifier, authDomain.MethodObjectGet)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/report", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestAuthenticationMiddleware_MalformedHeader(t *testing.T) {
	verifier := &MockTokenVerifier{}
	router := setupAuthRouter(verifier, authDomain.MethodObjectGet)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/report", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticationMiddleware_VerificationFailure(t *testing.T) {
	verifier := &MockTokenVerifier{}
	verifier.On("Verify", mock.Anything, "bad-token").Return(nil, authDomain.ErrTokenVerification)
	router := setupAuthRouter(verifier, authDomain.MethodObjectGet)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/report", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticationMiddleware_CaseInsensitiveBearer(t *testing.T) {
	verifier := &MockTokenVerifier{}
	verifier.On("Verify", mock.Anything, "good-token").
		Return(serviceIdentity(authDomain.WildcardPermissions()), nil)
	router := setupAuthRouter(verifier, authDomain.MethodObjectGet)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/report", nil)
	req.Header.Set("Authorization", "bearer good-token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "object-registry")
}

func TestAuthorizationMiddleware_ScopedNamespace(t *testing.T) {
	verifier := &MockTokenVerifier{}
	verifier.On("Verify", mock.Anything, "scoped-token").
		Return(serviceIdentity(authDomain.Permissions{
			PermittedMethods:    []string{authDomain.MethodObjectGet},
			PermittedNamespaces: []string{"payments"},
		}), nil)
	router := setupAuthRouter(verifier, authDomain.MethodObjectGet)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/report", nil)
	req.Header.Set("Authorization", "Bearer scoped-token")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/billing/report", nil)
	req.Header.Set("Authorization", "Bearer scoped-token")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthorizationMiddleware_NamespacelessRouteNeedsWildcard(t *testing.T) {
	verifier := &MockTokenVerifier{}
	verifier.On("Verify", mock.Anything, "scoped-token").
		Return(serviceIdentity(authDomain.Permissions{
			PermittedMethods:    []string{authDomain.MethodNamespaceList},
			PermittedNamespaces: []string{"payments"},
		}), nil)
	verifier.On("Verify", mock.Anything, "admin-token").
		Return(serviceIdentity(authDomain.WildcardPermissions()), nil)
	router := setupAuthRouter(verifier, authDomain.MethodNamespaceList)

	// A scope limited to one namespace cannot list all namespaces.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/namespaces", nil)
	req.Header.Set("Authorization", "Bearer scoped-token")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/namespaces", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorizationMiddleware_NoIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/:namespace/:object",
		AuthorizationMiddleware(authDomain.MethodObjectGet, testLogger()),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/report", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
