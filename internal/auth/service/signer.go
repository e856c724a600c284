// Package service implements capability token minting and verification.
package service

import (
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/allisson/registry/internal/auth/domain"
	"github.com/allisson/registry/internal/config"
	apperrors "github.com/allisson/registry/internal/errors"
)

// Signer mints short-lived service tokens. Two signing modes are supported:
// an asymmetric mode using the registry's own key pair (the key id is carried
// in the token header and advertised via JWKS) and a symmetric shared-secret
// mode whose tokens carry no key id.
type Signer struct {
	issuer       string
	audience     string
	ttl          time.Duration
	sharedSecret []byte
	signingKey   jwk.Key
}

// NewSigner creates a Signer from configuration. The signing key is optional;
// minting asymmetric tokens without one returns an error at call time.
func NewSigner(cfg *config.Config) (*Signer, error) {
	signer := &Signer{
		issuer:   cfg.TokenIssuer,
		audience: cfg.TokenAudience,
		ttl:      cfg.TokenTTL,
	}
	if cfg.SharedSecret != "" {
		signer.sharedSecret = []byte(cfg.SharedSecret)
	}
	if cfg.SigningKeyPEM != "" {
		key, err := jwk.ParseKey([]byte(cfg.SigningKeyPEM), jwk.WithPEM(true))
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse signing key")
		}
		if err := key.Set(jwk.KeyIDKey, cfg.SigningKeyID); err != nil {
			return nil, apperrors.Wrap(err, "failed to set signing key id")
		}
		if err := key.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
			return nil, apperrors.Wrap(err, "failed to set signing key algorithm")
		}
		signer.signingKey = key
	}
	return signer, nil
}

// MintServiceToken signs a service token with the registry's private key.
// The resulting token carries the signing key id in its header so receivers
// can resolve the verification key from the JWKS document.
func (s *Signer) MintServiceToken() (string, error) {
	return s.MintTokenFor(s.audience)
}

// MintTokenFor signs a service token with the registry's private key for a
// specific audience. Used for webhook deliveries, where the audience is the
// subscription's. An empty audience falls back to the configured one.
func (s *Signer) MintTokenFor(audience string) (string, error) {
	if s.signingKey == nil {
		return "", apperrors.New("no signing key configured")
	}
	if audience == "" {
		audience = s.audience
	}
	token, err := s.buildToken(audience)
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, s.signingKey))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to sign token")
	}
	return string(signed), nil
}

// MintSharedSecretToken signs a service token with the shared secret.
// No key id is set on the header.
func (s *Signer) MintSharedSecretToken() (string, error) {
	if len(s.sharedSecret) == 0 {
		return "", apperrors.New("no shared secret configured")
	}
	token, err := s.buildToken(s.audience)
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, s.sharedSecret))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to sign token")
	}
	return string(signed), nil
}

// PublicSigningKey returns the public half of the signing key for inclusion
// in the JWKS document, or nil when no signing key is configured.
func (s *Signer) PublicSigningKey() (jwk.Key, error) {
	if s.signingKey == nil {
		return nil, nil
	}
	public, err := s.signingKey.PublicKey()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to derive public signing key")
	}
	return public, nil
}

func (s *Signer) buildToken(audience string) (jwt.Token, error) {
	now := time.Now().UTC()
	token, err := jwt.NewBuilder().
		Issuer(s.issuer).
		Audience([]string{audience}).
		Subject(audience).
		IssuedAt(now).
		Expiration(now.Add(s.ttl)).
		Claim("role", []string{domain.RoleService}).
		Build()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build token")
	}
	return token, nil
}
