// Package identity resolves the acting party for every order operation.
// The order engine never inspects credentials itself; it receives an Actor
// that the HTTP boundary has already authenticated.
package identity

import (
	"context"

	"github.com/go-faster/errors"
)

// Role enumerates the three actor kinds the marketplace recognises.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleVendor, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated party performing an operation.
type Actor struct {
	ID   string
	Role Role
}

// ErrUnknownCredential is returned when no credential matches a presented key.
var ErrUnknownCredential = errors.New("unknown credential")

// Credential holds the identity data resolved from a validated API key.
type Credential struct {
	ActorID string
	Role    Role
	Name    string
	KeyHash string
	Active  bool
}

// CredentialRepository provides lookup of API-key credentials by their
// HMAC-SHA256 hash.
type CredentialRepository interface {
	FindByKeyHash(ctx context.Context, hash string) (*Credential, error)
}

type actorKey struct{}

// WithActor stores the authenticated actor in the context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext extracts the authenticated actor from the context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
