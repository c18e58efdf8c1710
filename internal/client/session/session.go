// Package session owns the client's authentication state.
//
// A Store holds the current credential together with the identity decoded
// from it, keeps the durable copy in a CredentialStore in step, and hands
// out consistent snapshots. A session is authenticated exactly when both a
// credential and an identity are present.
package session

import (
	"context"

	"github.com/dmitrijs2005/taskdesk/internal/client/identity"
)

// Session is a point-in-time snapshot of the store.
type Session struct {
	Credential string
	// Identity is nil when nobody is signed in.
	Identity *identity.Identity

	Authenticated bool
	// Loading is true until the first Restore completes.
	Loading bool
}

// Role is the signed-in role, RoleUnknown when unauthenticated.
func (s Session) Role() identity.Role {
	if s.Identity == nil {
		return identity.RoleUnknown
	}
	return s.Identity.Role
}

// Credentials is what the user types at the login prompt.
type Credentials struct {
	Email    string
	Password []byte
}

// Gateway exchanges credentials for a bearer token.
type Gateway interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, email, password string) (string, error)

func (f GatewayFunc) Login(ctx context.Context, email, password string) (string, error) {
	return f(ctx, email, password)
}

// CredentialStore keeps the credential across restarts.
//
// Load returns common.ErrorNotFound when nothing is stored. Evict of an
// empty slot is not an error.
type CredentialStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Evict(ctx context.Context) error
}
