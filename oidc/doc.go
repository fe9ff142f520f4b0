// Package oidc provides the OpenID Connect authorization code flow (with
// PKCE) used by the console to authenticate users against an external
// identity provider.  It supports provider discovery with a process-lifetime
// cache, PKCE verifier/challenge generation, authorization URL construction,
// authorization code exchange and best-effort provider logout.
package oidc
