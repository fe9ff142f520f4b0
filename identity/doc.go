// Package identity derives an application-level user from the claims
// carried in provider tokens. Providers disagree on where role
// information lives, so role lookup is modeled as an ordered list of
// extractor strategies tried until one yields candidates. Candidates
// are normalized and intersected with the known role set; the highest
// privilege match wins and unknown users default to RoleStudent.
package identity
