// Package identity is the client for the authentication store: the system
// of record for credentials, separate from the profile documents. Account
// deletion must remove the identity here as its final stage.
package identity

import (
	"context"
	"time"
)

// Identity is one credential record, keyed by the same opaque identity key
// as the user's profile document.
type Identity struct {
	UID          string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Store is the consumed authentication-store capability. Delete of an
// absent identity is a no-op so that a re-run of account deletion stays
// idempotent.
type Store interface {
	Create(ctx context.Context, ident *Identity) error
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	Delete(ctx context.Context, uid string) error
}
