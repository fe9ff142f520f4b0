package identity

const (
	// DefaultDepartment is assigned on login. The provider does not
	// carry department information, so it stays generic until profile
	// data is loaded from the business API.
	DefaultDepartment = "General"

	// DefaultDisplayName is the placeholder when no claim yields a
	// usable name.
	DefaultDisplayName = "User"

	userIDPrefix = "OIDC_"
	subjectWidth = 8
)

// AuthUser is the application-level identity derived once per
// successful login, replaced wholesale on re-login and cleared on
// logout.
type AuthUser struct {
	// ID is the provider's subject identifier.
	ID string `json:"id"`

	// UserID is the short human-facing identifier shown in admin
	// screens, built from the subject.
	UserID string `json:"userId"`

	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	Department string `json:"department"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
}

// DeriveUser builds an AuthUser from decoded claims. roleClaims are
// the claims consulted for role extraction (typically the access
// token's, which is where providers put authorization data) and
// profileClaims supply the identity fields (typically the ID token's
// or the userinfo response). Either may be nil; derivation always
// succeeds and falls back to documented defaults.
func DeriveUser(profileClaims Claims, roleClaims Claims, clientID string) AuthUser {
	if profileClaims == nil {
		profileClaims = Claims{}
	}

	sub := profileClaims.String("sub")
	id := sub
	if id == "" {
		id = "unknown"
	}

	email := profileClaims.String("email")
	if email == "" {
		email = "unknown@example.com"
	}

	role := ResolveRole(ExtractRoles(roleClaims, DefaultExtractors(clientID)...))

	return AuthUser{
		ID:         id,
		UserID:     userIDPrefix + shortSubject(sub),
		Name:       displayName(profileClaims),
		Email:      email,
		Role:       role,
		Department: DefaultDepartment,
		AvatarURL:  profileClaims.String("picture"),
	}
}

// displayName returns the first non-empty candidate among the name
// claims, then the email, then the placeholder.
func displayName(c Claims) string {
	for _, claim := range []string{"name", "preferred_username", "given_name", "nickname", "email"} {
		if v := c.String(claim); v != "" {
			return v
		}
	}
	return DefaultDisplayName
}

func shortSubject(sub string) string {
	if sub == "" {
		return "USER"
	}
	if len(sub) > subjectWidth {
		return sub[:subjectWidth]
	}
	return sub
}
