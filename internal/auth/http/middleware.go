package http

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	authDomain "github.com/allisson/registry/internal/auth/domain"
	apperrors "github.com/allisson/registry/internal/errors"
	"github.com/allisson/registry/internal/httputil"
)

// TokenVerifier verifies a raw bearer token and derives the caller identity.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*authDomain.Identity, error)
}

// AuthenticationMiddleware provides authentication via Bearer token in the Authorization header.
//
// The middleware:
// 1. Extracts the Bearer token from the Authorization header (case-insensitive)
// 2. Verifies the token using the verifier (mode is derived from the token itself)
// 3. Stores the verified identity in the request context
// 4. Allows downstream handlers to access the identity via GetIdentity()
//
// Error handling:
//   - Missing Authorization header → 401 Unauthorized
//   - Malformed Authorization header → 401 Unauthorized
//   - Any verification failure → 401 Unauthorized, with no detail about which check failed
func AuthenticationMiddleware(verifier TokenVerifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug("authentication failed: missing authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		// Parse Bearer token (case-insensitive)
		const bearerPrefix = "bearer "
		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("authentication failed: malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		rawToken := authHeader[len(bearerPrefix):]
		if rawToken == "" {
			logger.Debug("authentication failed: empty bearer token")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), rawToken)
		if err != nil {
			logger.Debug("authentication failed",
				slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		ctx := WithIdentity(c.Request.Context(), identity)
		c.Request = c.Request.WithContext(ctx)

		logger.Debug("authentication successful",
			slog.String("subject", identity.AuditSubject()))

		c.Next()
	}
}

// AuthorizationMiddleware checks that the verified identity's scope permits the
// given method on the request's namespace.
//
// This middleware MUST be used after AuthenticationMiddleware. The namespace is
// taken from the route's :namespace parameter; routes without one (listing
// namespaces, querying the audit log) are checked against the wildcard
// namespace, so only scopes whose permitted namespaces include the wildcard
// pass.
//
// Error handling:
//   - No identity in context → 401 Unauthorized (AuthenticationMiddleware not run)
//   - Scope does not permit the method on the namespace → 403 Forbidden
func AuthorizationMiddleware(method authDomain.Method, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c.Request.Context())
		if !ok || identity == nil {
			logger.Debug("authorization failed: no identity in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		namespace := c.Param("namespace")
		if namespace == "" {
			namespace = authDomain.Wildcard
		}

		if !identity.Permissions.Allows(method, namespace) {
			logger.Debug("authorization failed: insufficient permissions",
				slog.String("subject", identity.AuditSubject()),
				slog.String("method", method),
				slog.String("namespace", namespace))
			httputil.HandleErrorGin(c, apperrors.ErrForbidden, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
