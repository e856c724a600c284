package domain

import (
	"github.com/allisson/registry/internal/errors"
)

var (
	// ErrKeyNotFound is returned when no active key record matches a key id.
	// Expired records report this error identically to absent ones.
	ErrKeyNotFound = errors.Wrap(errors.ErrNotFound, "key not found")
	// ErrInvalidPublicKey is returned when a submitted public key cannot be parsed.
	ErrInvalidPublicKey = errors.Wrap(errors.ErrInvalidInput, "invalid public key")
)
