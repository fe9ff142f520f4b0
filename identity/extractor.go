package identity

import "strings"

// RoleExtractor is a pure function that pulls candidate role strings
// out of raw claims. Extractors are tried in order by ExtractRoles and
// the first non-empty result wins, which keeps provider-specific claim
// layouts out of the resolution logic.
type RoleExtractor func(Claims) []string

// RealmRoles reads a realm-wide roles list, the layout Keycloak uses:
//
//	{"realm_access": {"roles": ["admin", "student"]}}
func RealmRoles(c Claims) []string {
	return c.Object("realm_access").StringSlice("roles")
}

// FlatRoles reads a flat top-level roles array:
//
//	{"roles": ["teacher"]}
func FlatRoles(c Claims) []string {
	return c.StringSlice("roles")
}

// ClientRoles reads a per-client roles map keyed by this application's
// client identifier:
//
//	{"resource_access": {"console-client": {"roles": ["staff"]}}}
func ClientRoles(clientID string) RoleExtractor {
	return func(c Claims) []string {
		return c.Object("resource_access").Object(clientID).StringSlice("roles")
	}
}

// DefaultExtractors returns the extractor chain used for a client,
// ordered by priority.
func DefaultExtractors(clientID string) []RoleExtractor {
	return []RoleExtractor{RealmRoles, FlatRoles, ClientRoles(clientID)}
}

// ExtractRoles runs the extractors in order and returns the first
// non-empty candidate list.
func ExtractRoles(c Claims, extractors ...RoleExtractor) []string {
	if c == nil {
		return nil
	}
	for _, extract := range extractors {
		if candidates := extract(c); len(candidates) > 0 {
			return candidates
		}
	}
	return nil
}

// ResolveRole normalizes the candidates to lowercase, intersects them
// with the known role set and returns the highest privilege match.
// Unrecognized or empty candidates resolve to DefaultRole.
func ResolveRole(candidates []string) Role {
	present := map[Role]bool{}
	for _, candidate := range candidates {
		present[Role(strings.ToLower(candidate))] = true
	}
	for _, role := range rolesByPrivilege {
		if present[role] {
			return role
		}
	}
	return DefaultRole
}
