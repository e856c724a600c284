package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/allisson/registry/internal/httputil"
	keysDomain "github.com/allisson/registry/internal/keys/domain"
)

// SigningKeySource exposes the registry's public signing key, when configured.
type SigningKeySource interface {
	PublicSigningKey() (jwk.Key, error)
}

// ActiveKeyLister lists the capability key records that are currently live.
type ActiveKeyLister interface {
	ListActive(ctx context.Context) ([]*keysDomain.KeyRecord, error)
}

// JWKSHandler serves the public key set document. The document contains the
// registry's own signing key plus the public half of every active capability
// key, so third parties can verify tokens the registry or its callers mint.
type JWKSHandler struct {
	signingKeys SigningKeySource
	keyLister   ActiveKeyLister
	logger      *slog.Logger
}

// NewJWKSHandler creates a new JWKSHandler.
func NewJWKSHandler(signingKeys SigningKeySource, keyLister ActiveKeyLister, logger *slog.Logger) *JWKSHandler {
	return &JWKSHandler{
		signingKeys: signingKeys,
		keyLister:   keyLister,
		logger:      logger,
	}
}

// GetJWKS handles GET /.well-known/jwks. Public, no auth.
func (h *JWKSHandler) GetJWKS(c *gin.Context) {
	set := jwk.NewSet()

	signingKey, err := h.signingKeys.PublicSigningKey()
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	if signingKey != nil {
		if err := set.AddKey(signingKey); err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
	}

	records, err := h.keyLister.ListActive(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	for _, record := range records {
		key, err := jwk.ParseKey([]byte(record.PublicKeyPEM), jwk.WithPEM(true))
		if err != nil {
			// A single corrupt record must not take down the whole document.
			h.logger.Warn("skipping unparseable capability key",
				slog.String("key_id", record.KeyID),
				slog.String("error", err.Error()))
			continue
		}
		if err := key.Set(jwk.KeyIDKey, record.KeyID); err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		if err := set.AddKey(key); err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
	}

	c.JSON(http.StatusOK, set)
}
