package service

import (
	"context"
	"slices"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/allisson/registry/internal/auth/domain"
	"github.com/allisson/registry/internal/config"
	apperrors "github.com/allisson/registry/internal/errors"
	keysDomain "github.com/allisson/registry/internal/keys/domain"
)

// KeyLookup resolves registered capability key records by key id.
type KeyLookup interface {
	Lookup(ctx context.Context, keyID string) (*keysDomain.KeyRecord, error)
}

// Verifier checks bearer tokens and derives the caller's identity and scope.
//
// The verification mode is selected from the token itself, never from request
// metadata: a token without a key id in its header is checked against the
// shared secret; a token whose issuer claim matches the configured workload
// identity provider is checked against that provider's key set; any other
// token with a key id is checked against the registered capability key.
// Every failure folds into an unauthorized error so callers cannot probe
// which check rejected them.
type Verifier struct {
	audience     string
	issuer       string
	sharedSecret []byte

	keyLookup KeyLookup

	oidcIssuer          string
	oidcKeys            KeySetProvider
	allowedRepositories []string
	workloadPermissions domain.Permissions
}

// NewVerifier creates a Verifier. oidcKeys may be nil when the workload
// identity path is disabled.
func NewVerifier(cfg *config.Config, keyLookup KeyLookup, oidcKeys KeySetProvider) *Verifier {
	return &Verifier{
		audience:            cfg.TokenAudience,
		issuer:              cfg.TokenIssuer,
		sharedSecret:        []byte(cfg.SharedSecret),
		keyLookup:           keyLookup,
		oidcIssuer:          cfg.OIDCIssuerURL,
		oidcKeys:            oidcKeys,
		allowedRepositories: cfg.OIDCAllowedRepositories,
		workloadPermissions: domain.Permissions{
			PermittedMethods:    cfg.OIDCPermittedMethods,
			PermittedNamespaces: cfg.OIDCPermittedNamespaces,
		},
	}
}

// Verify checks a raw bearer token and returns the caller's identity.
func (v *Verifier) Verify(ctx context.Context, raw string) (*domain.Identity, error) {
	msg, err := jws.Parse([]byte(raw))
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrInvalidTokenHeader, err.Error())
	}
	signatures := msg.Signatures()
	if len(signatures) == 0 {
		return nil, domain.ErrInvalidTokenHeader
	}
	headers := signatures[0].ProtectedHeaders()

	keyID := headers.KeyID()
	if keyID == "" {
		return v.verifySharedSecret(raw)
	}

	// Claims are only peeked here to pick the verification path. Nothing is
	// trusted until a signature check passes below.
	unverified, err := jwt.Parse([]byte(raw), jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrTokenVerification, err.Error())
	}
	if v.oidcIssuer != "" && unverified.Issuer() == v.oidcIssuer {
		return v.verifyWorkloadIdentity(ctx, raw)
	}
	return v.verifyCapability(ctx, raw, keyID, headers.Algorithm())
}

func (v *Verifier) verifySharedSecret(raw string) (*domain.Identity, error) {
	if len(v.sharedSecret) == 0 {
		return nil, domain.ErrTokenVerification
	}
	token, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, v.sharedSecret),
		jwt.WithAudience(v.audience),
	)
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrTokenVerification, err.Error())
	}
	return identityFromToken(token, domain.WildcardPermissions()), nil
}

func (v *Verifier) verifyCapability(
	ctx context.Context,
	raw string,
	keyID string,
	alg jwa.SignatureAlgorithm,
) (*domain.Identity, error) {
	record, err := v.keyLookup.Lookup(ctx, keyID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.ErrNoMatchingKey
		}
		return nil, err
	}
	key, err := jwk.ParseKey([]byte(record.PublicKeyPEM), jwk.WithPEM(true))
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrNoMatchingKey, err.Error())
	}
	token, err := jwt.Parse([]byte(raw),
		jwt.WithKey(alg, key),
		jwt.WithAudience(v.audience),
	)
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrTokenVerification, err.Error())
	}
	return identityFromToken(token, domain.Permissions{
		PermittedMethods:    record.PermittedMethods,
		PermittedNamespaces: record.PermittedNamespaces,
	}), nil
}

func (v *Verifier) verifyWorkloadIdentity(ctx context.Context, raw string) (*domain.Identity, error) {
	if v.oidcKeys == nil {
		return nil, domain.ErrTokenVerification
	}
	keySet, err := v.oidcKeys.Get(ctx)
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrTokenVerification, err.Error())
	}
	token, err := jwt.Parse([]byte(raw),
		jwt.WithKeySet(keySet),
		jwt.WithIssuer(v.oidcIssuer),
		jwt.WithAudience(v.audience),
	)
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrTokenVerification, err.Error())
	}

	repository, _ := token.Get("repository")
	repositoryName, _ := repository.(string)
	if repositoryName == "" || !slices.Contains(v.allowedRepositories, repositoryName) {
		return nil, domain.ErrNoMatchingRepository
	}

	return identityFromToken(token, v.workloadPermissions), nil
}

func identityFromToken(token jwt.Token, permissions domain.Permissions) *domain.Identity {
	claims := domain.Claims{
		IssuedAt:  token.IssuedAt(),
		ExpiresAt: token.Expiration(),
		Issuer:    token.Issuer(),
		Subject:   token.Subject(),
	}
	if audiences := token.Audience(); len(audiences) > 0 {
		claims.Audience = audiences[0]
	}
	if value, ok := token.Get("role"); ok {
		if roles, ok := value.([]any); ok {
			for _, role := range roles {
				if name, ok := role.(string); ok {
					claims.Roles = append(claims.Roles, name)
				}
			}
		}
	}
	return &domain.Identity{Claims: claims, Permissions: permissions}
}
