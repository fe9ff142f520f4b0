package oidc

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/hashicorp/vault/sdk/helper/base62"
)

// ChallengeMethod represents PKCE code challenge methods as defined by RFC
// 7636.
type ChallengeMethod string

const (
	// S256 is the SHA-256 based PKCE challenge method, the only method
	// supported by this package.  The "plain" method is intentionally not
	// implemented.
	S256 ChallengeMethod = "S256"

	// verifierLen is the length of generated code verifiers.  43 characters
	// of base62 carry roughly 256 bits of entropy, matching the RFC 7636
	// minimum verifier length.
	verifierLen = 43
)

// CodeVerifier represents an OAuth PKCE code verifier (see RFC 7636).  The
// verifier is the secret retained across the redirect round-trip; the
// challenge is its one-way derivation sent with the authorization request.
type CodeVerifier interface {
	// Verifier returns the code verifier
	Verifier() string

	// Challenge returns the code challenge derived from the verifier
	Challenge() string

	// Method returns the challenge method used for the derivation
	Method() ChallengeMethod
}

// S256Verifier represents a code verifier with an S256 challenge.
type S256Verifier struct {
	verifier  string
	challenge string
	method    ChallengeMethod
}

// ensure that S256Verifier implements the CodeVerifier interface
var _ CodeVerifier = (*S256Verifier)(nil)

// NewCodeVerifier creates a new verifier from cryptographically secure random
// data.  A fresh verifier must be generated for every login attempt and
// discarded after the exchange completes.
func NewCodeVerifier() (*S256Verifier, error) {
	const op = "oidc.NewCodeVerifier"
	data, err := base62.Random(verifierLen)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate verifier data: %w", op, ErrIDGeneratorFailed)
	}
	v := &S256Verifier{
		verifier: data,
		method:   S256,
	}
	if v.challenge, err = CreateCodeChallenge(S256, v); err != nil {
		return nil, fmt.Errorf("%s: unable to create code challenge: %w", op, err)
	}
	return v, nil
}

// NewCodeVerifierFromString recreates a verifier from its string form, which
// is how a verifier comes back from durable storage after the provider
// redirects the user to the callback.  The challenge derivation is
// deterministic, so the recreated verifier is equivalent to the original.
func NewCodeVerifierFromString(verifier string) (*S256Verifier, error) {
	const op = "oidc.NewCodeVerifierFromString"
	if len(verifier) < verifierLen {
		return nil, fmt.Errorf("%s: verifier is shorter than %d characters: %w", op, verifierLen, ErrInvalidParameter)
	}
	v := &S256Verifier{
		verifier: verifier,
		method:   S256,
	}
	var err error
	if v.challenge, err = CreateCodeChallenge(S256, v); err != nil {
		return nil, fmt.Errorf("%s: unable to create code challenge: %w", op, err)
	}
	return v, nil
}

func (v *S256Verifier) Verifier() string        { return v.verifier }  // Verifier implements CodeVerifier.Verifier()
func (v *S256Verifier) Challenge() string       { return v.challenge } // Challenge implements CodeVerifier.Challenge()
func (v *S256Verifier) Method() ChallengeMethod { return v.method }    // Method implements CodeVerifier.Method()

// CreateCodeChallenge creates a code challenge from the verifier.  The
// derivation is deterministic and one-way: SHA-256 of the verifier, raw
// URL-safe base64 encoded without padding.  Only the S256 method is
// supported.
func CreateCodeChallenge(m ChallengeMethod, v CodeVerifier) (string, error) {
	// currently, only S256 is supported
	const op = "oidc.CreateCodeChallenge"
	if m != S256 {
		return "", fmt.Errorf("%s: %s is invalid: %w", op, m, ErrUnsupportedChallengeMethod)
	}
	h := sha256.New()
	_, _ = h.Write([]byte(v.Verifier())) // hash documents that Write will never return an error
	sum := h.Sum(nil)
	return base64.RawURLEncoding.EncodeToString(sum), nil
}
