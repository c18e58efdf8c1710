// Package identity turns a bearer credential into the claims the client
// cares about.
//
// Decode only reads the payload segment of a three-part token; it does not
// check the signature. The backend remains the authority on whether a
// credential is valid, the client only needs the claims to decide what to
// show.
package identity

import "time"

// Claim keys emitted by the backend.
const (
	ClaimNameIdentifier = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"
	ClaimName           = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name"
	ClaimEmail          = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
	ClaimRole           = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
	ClaimExpiry         = "exp"
)

// Identity is the decoded view of a credential. Empty strings and a zero
// Expiry mean the claim was not present.
type Identity struct {
	ID    string
	Name  string
	Email string

	// Role is RoleUnknown when the claim is absent or unrecognised.
	Role Role
	// RoleName is the raw role claim.
	RoleName string

	Expiry time.Time
}

// HasExpiry reports whether the token asserted an exp claim.
func (i Identity) HasExpiry() bool {
	return !i.Expiry.IsZero()
}

// Expired reports whether now is at or past the asserted expiry. An
// identity without expiry never expires.
func (i Identity) Expired(now time.Time) bool {
	return i.HasExpiry() && !now.Before(i.Expiry)
}

// DisplayName prefers the name claim and falls back to email, then id.
func (i Identity) DisplayName() string {
	switch {
	case i.Name != "":
		return i.Name
	case i.Email != "":
		return i.Email
	default:
		return i.ID
	}
}
