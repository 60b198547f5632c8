package identity

import (
	"context"
	"errors"
)

var (
	// ErrEmailAlreadyInUse is the hard duplicate signal from the provider.
	ErrEmailAlreadyInUse = errors.New("email already in use")

	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Provider is the identity collaborator: credential storage, password
// hashing, and password-reset dispatch live behind this boundary.
type Provider interface {
	// SignInMethods returns the sign-in methods registered for the address.
	// An empty slice means the address is unknown to the provider.
	SignInMethods(ctx context.Context, email string) ([]string, error)

	// CreateUser registers credentials and returns the new account uid.
	// Returns ErrEmailAlreadyInUse when the address is already bound.
	CreateUser(ctx context.Context, email, password, displayName string) (string, error)

	// VerifyPassword returns the account uid on success, or
	// ErrInvalidCredentials.
	VerifyPassword(ctx context.Context, email, password string) (string, error)

	// SendPasswordReset dispatches a reset email for the address.
	SendPasswordReset(ctx context.Context, email string) error
}
