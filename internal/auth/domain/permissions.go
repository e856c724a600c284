package domain

import "slices"

// Wildcard is the sentinel value in a permitted set meaning "matches anything".
const Wildcard = "*"

// Permissions is the scope a verified capability grants: the set of methods
// and namespaces the caller may touch. Either set may contain the wildcard
// token; all other entries match by exact string equality.
type Permissions struct {
	PermittedMethods    []string
	PermittedNamespaces []string
}

// WildcardPermissions returns a scope permitting every method on every namespace.
// Used for callers whose trust is established out of band (shared-secret tokens).
func WildcardPermissions() Permissions {
	return Permissions{
		PermittedMethods:    []string{Wildcard},
		PermittedNamespaces: []string{Wildcard},
	}
}

// Allows reports whether the scope permits the given method on the given
// namespace. Both checks must hold. This is a pure function: no prefix or glob
// matching beyond the single wildcard token.
func (p Permissions) Allows(method, namespace string) bool {
	methodAllowed := slices.Contains(p.PermittedMethods, method) ||
		slices.Contains(p.PermittedMethods, Wildcard)
	namespaceAllowed := slices.Contains(p.PermittedNamespaces, namespace) ||
		slices.Contains(p.PermittedNamespaces, Wildcard)

	return methodAllowed && namespaceAllowed
}
