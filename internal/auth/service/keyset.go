package service

import (
	"context"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	apperrors "github.com/allisson/registry/internal/errors"
)

// KeySetProvider resolves the verification key set for workload identity tokens.
type KeySetProvider interface {
	Get(ctx context.Context) (jwk.Set, error)
}

// CachedKeySet fetches a remote JWKS document and keeps it refreshed in the
// background, so token verification does not pay a network round trip per
// request.
type CachedKeySet struct {
	cache *jwk.Cache
	url   string
}

// NewCachedKeySet registers the JWKS URL with a background-refreshing cache.
// The provided context bounds the lifetime of the refresh goroutine.
func NewCachedKeySet(ctx context.Context, url string) (*CachedKeySet, error) {
	cache := jwk.NewCache(ctx)
	if err := cache.Register(url, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, apperrors.Wrap(err, "failed to register jwks url")
	}
	return &CachedKeySet{cache: cache, url: url}, nil
}

// Get returns the cached key set, fetching it on first use.
func (c *CachedKeySet) Get(ctx context.Context) (jwk.Set, error) {
	set, err := c.cache.Get(ctx, c.url)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to fetch jwks")
	}
	return set, nil
}
