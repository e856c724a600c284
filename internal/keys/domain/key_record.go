// Package domain defines the capability key registry domain model.
//
// A key record binds an opaque key identifier to public verification material
// and a permission scope. Records are created once at issuance, never mutated,
// and logically expire at their TTL.
package domain

import (
	"time"
)

// KeyRecord is an ephemeral public-key capability descriptor.
type KeyRecord struct {
	KeyID               string
	PublicKeyPEM        string
	PermittedNamespaces []string
	PermittedMethods    []string
	CreatedAt           time.Time
	// TTL is the instant the record logically expires. Nil means no expiry.
	TTL *time.Time
}

// Expired reports whether the record is past its TTL at the given instant.
// Expiry is checked at lookup time so correctness never depends on storage-layer
// garbage collection timing.
func (k *KeyRecord) Expired(now time.Time) bool {
	return k.TTL != nil && !now.Before(*k.TTL)
}

// IssueKeyInput contains the parameters for registering a new capability key.
// KeyID is optional; one is generated when absent. Collisions are last-write-wins.
type IssueKeyInput struct {
	KeyID               string
	PublicKeyPEM        string
	PermittedNamespaces []string
	PermittedMethods    []string
	TTL                 *time.Time
}
