package domain

import (
	apperrors "github.com/allisson/registry/internal/errors"
)

var (
	// ErrObjectNotFound is returned when an object does not exist.
	ErrObjectNotFound = apperrors.Wrap(apperrors.ErrNotFound, "object not found")

	// ErrReservedNamespace is returned when a request targets the namespace
	// reserved for public key material.
	ErrReservedNamespace = apperrors.Wrap(apperrors.ErrBadRequest, "namespace is reserved")
)
