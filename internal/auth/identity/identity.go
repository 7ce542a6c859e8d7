// Package identity adapts the hosted identity provider to the small surface
// the sign-in flow needs.
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCode    = errors.New("invalid or expired sign-in code")
	ErrInvalidSession = errors.New("invalid or expired session")
)

// Metadata holds the identity-provider profile values the service reads.
// Anything else the provider sends is dropped at the boundary.
type Metadata struct {
	FullName     string
	AvatarURL    string
	RoleHint     string
	ReferralCode string
}

// Identity is a verified user.
type Identity struct {
	UserID   string
	Email    string
	Metadata Metadata
}

// Session is the result of exchanging a sign-in code.
type Session struct {
	Identity
	Cookie    string
	ExpiresIn time.Duration
}

// Provider is implemented by FirebaseProvider and by test fakes.
type Provider interface {
	ExchangeCodeForSession(ctx context.Context, code string) (*Session, error)
	VerifySession(ctx context.Context, token string) (*Identity, error)
	RevokeSessions(ctx context.Context, userID string) error
}
