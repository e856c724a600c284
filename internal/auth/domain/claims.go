package domain

import "time"

// Claims is the verified claim set extracted from a capability token.
// Tokens are stateless: claims are re-derived from the wire token on every
// request, never stored server-side.
type Claims struct {
	IssuedAt  time.Time
	ExpiresAt time.Time
	Audience  string
	Issuer    string
	Subject   string
	Roles     []string
}

// Identity is the result of verifying a bearer token: who the caller is and
// what scope their capability grants.
type Identity struct {
	Claims      Claims
	Permissions Permissions
}

// Subject returns the audit subject for the identity: the token subject when
// present, the issuer otherwise.
func (i Identity) AuditSubject() string {
	if i.Claims.Subject != "" {
		return i.Claims.Subject
	}
	return i.Claims.Issuer
}
