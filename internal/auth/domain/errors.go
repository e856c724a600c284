package domain

import (
	"github.com/allisson/registry/internal/errors"
)

// Token verification errors. All wrap ErrUnauthorized so handlers surface a
// uniform 401 regardless of which check failed.
var (
	// ErrInvalidTokenHeader indicates the token header carries no key identifier.
	ErrInvalidTokenHeader = errors.Wrap(errors.ErrUnauthorized, "invalid token header")

	// ErrNoMatchingKey indicates the key identifier in the token header is not
	// registered (or the record has expired).
	ErrNoMatchingKey = errors.Wrap(errors.ErrUnauthorized, "no matching key")

	// ErrNoMatchingRepository indicates a CI token's repository claim is not in
	// the static allow-list.
	ErrNoMatchingRepository = errors.Wrap(errors.ErrUnauthorized, "no matching repository")

	// ErrTokenVerification indicates a signature, expiry, issuer or audience
	// check failed.
	ErrTokenVerification = errors.Wrap(errors.ErrUnauthorized, "token verification failed")
)
