package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"

	auditHTTP "github.com/allisson/registry/internal/audit/http"
	authDomain "github.com/allisson/registry/internal/auth/domain"
	authHTTP "github.com/allisson/registry/internal/auth/http"
	"github.com/allisson/registry/internal/config"
	eventsHTTP "github.com/allisson/registry/internal/events/http"
	"github.com/allisson/registry/internal/metrics"
	registryHTTP "github.com/allisson/registry/internal/registry/http"
)

// RouterDeps carries everything the router wires together.
type RouterDeps struct {
	Config              *config.Config
	Logger              *slog.Logger
	Verifier            authHTTP.TokenVerifier
	ObjectHandler       *registryHTTP.ObjectHandler
	SubscriptionHandler *eventsHTTP.SubscriptionHandler
	AuditLogHandler     *auditHTTP.AuditLogHandler
	JWKSHandler         *authHTTP.JWKSHandler
	// MeterProvider enables per-request HTTP metrics when set.
	MeterProvider metric.MeterProvider
}

// NewRouter builds the gin engine with all routes and middleware.
//
// Everything except /health and the JWKS document sits behind bearer token
// authentication; each route additionally requires the capability method
// it is documented with.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(deps.Config.GetGinMode())

	router := gin.New()
	router.Use(requestid.New())
	router.Use(CustomLoggerMiddleware(deps.Logger))
	router.Use(gin.Recovery())

	if corsMiddleware := createCORSMiddleware(
		deps.Config.CORSEnabled, deps.Config.CORSAllowOrigins, deps.Logger,
	); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if deps.MeterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(deps.MeterProvider, deps.Config.MetricsNamespace))
	}

	// Public surface.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/.well-known/jwks", deps.JWKSHandler.GetJWKS)

	// Everything else requires a verified capability token.
	authorized := router.Group("")
	authorized.Use(authHTTP.AuthenticationMiddleware(deps.Verifier, deps.Logger))
	if deps.Config.RateLimitEnabled {
		authorized.Use(authHTTP.RateLimitMiddleware(
			deps.Config.RateLimitRequestsPerSec,
			deps.Config.RateLimitBurst,
			deps.Logger,
		))
	}

	authz := func(method authDomain.Method) gin.HandlerFunc {
		return authHTTP.AuthorizationMiddleware(method, deps.Logger)
	}

	// Audit log.
	authorized.GET("/audit",
		authz(authDomain.MethodAuditList), deps.AuditLogHandler.ListHandler)

	// Event subscriptions.
	authorized.POST("/events/:namespace",
		authz(authDomain.MethodEventPost), deps.SubscriptionHandler.CreateHandler)
	authorized.PUT("/events/:namespace/:id",
		authz(authDomain.MethodEventPut), deps.SubscriptionHandler.ReplaceHandler)
	authorized.GET("/events/:namespace",
		authz(authDomain.MethodEventGet), deps.SubscriptionHandler.ListHandler)
	authorized.DELETE("/events/:namespace/:id",
		authz(authDomain.MethodEventDelete), deps.SubscriptionHandler.DeleteHandler)

	// Object storage.
	authorized.GET("/namespaces",
		authz(authDomain.MethodNamespaceList), deps.ObjectHandler.ListNamespacesHandler)
	authorized.GET("/:namespace",
		authz(authDomain.MethodObjectGet), deps.ObjectHandler.ListObjectsHandler)
	authorized.PUT("/:namespace/:object",
		authz(authDomain.MethodObjectPut), deps.ObjectHandler.PutHandler)
	authorized.GET("/:namespace/:object",
		authz(authDomain.MethodObjectGet), deps.ObjectHandler.GetHandler)
	authorized.DELETE("/:namespace/:object",
		authz(authDomain.MethodObjectDelete), deps.ObjectHandler.DeleteHandler)

	return router
}
