package app

import (
	"context"
	"fmt"

	authHTTP "github.com/allisson/registry/internal/auth/http"
	authService "github.com/allisson/registry/internal/auth/service"
)

// Signer returns the token signer instance.
func (c *Container) Signer() (*authService.Signer, error) {
	var err error
	c.signerInit.Do(func() {
		c.signer, err = authService.NewSigner(c.config)
		if err != nil {
			c.initErrors["signer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["signer"]; exists {
		return nil, storedErr
	}
	return c.signer, nil
}

// OIDCKeySet returns the cached key set of the trusted OIDC provider.
func (c *Container) OIDCKeySet() (*authService.CachedKeySet, error) {
	var err error
	c.oidcKeySetInit.Do(func() {
		c.oidcKeySet, err = authService.NewCachedKeySet(context.Background(), c.config.OIDCJWKSURL)
		if err != nil {
			c.initErrors["oidcKeySet"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["oidcKeySet"]; exists {
		return nil, storedErr
	}
	return c.oidcKeySet, nil
}

// Verifier returns the token verifier instance.
func (c *Container) Verifier() (*authService.Verifier, error) {
	var err error
	c.verifierInit.Do(func() {
		c.verifier, err = c.initVerifier()
		if err != nil {
			c.initErrors["verifier"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["verifier"]; exists {
		return nil, storedErr
	}
	return c.verifier, nil
}

// JWKSHandler returns the JWKS document handler instance.
func (c *Container) JWKSHandler() (*authHTTP.JWKSHandler, error) {
	var err error
	c.jwksHandlerInit.Do(func() {
		c.jwksHandler, err = c.initJWKSHandler()
		if err != nil {
			c.initErrors["jwksHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["jwksHandler"]; exists {
		return nil, storedErr
	}
	return c.jwksHandler, nil
}

// initVerifier creates the token verifier with all its dependencies.
func (c *Container) initVerifier() (*authService.Verifier, error) {
	keyUseCase, err := c.KeyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key use case for verifier: %w", err)
	}

	// The workload identity path is optional; without a JWKS URL the
	// verifier runs with that path disabled.
	var oidcKeySet authService.KeySetProvider
	if c.config.OIDCJWKSURL != "" {
		oidcKeySet, err = c.OIDCKeySet()
		if err != nil {
			return nil, fmt.Errorf("failed to get oidc key set for verifier: %w", err)
		}
	}

	return authService.NewVerifier(c.config, keyUseCase, oidcKeySet), nil
}

// initJWKSHandler creates the JWKS handler with all its dependencies.
func (c *Container) initJWKSHandler() (*authHTTP.JWKSHandler, error) {
	signer, err := c.Signer()
	if err != nil {
		return nil, fmt.Errorf("failed to get signer for jwks handler: %w", err)
	}

	keyUseCase, err := c.KeyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key use case for jwks handler: %w", err)
	}

	return authHTTP.NewJWKSHandler(signer, keyUseCase, c.Logger()), nil
}
