package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/creatorhub/platform-api/config"
)

// Custom claim names set through the Admin SDK.
const (
	claimRole         = "role"
	claimReferralCode = "referral_code"
)

// InitializeFirebase initializes the Firebase Admin SDK and returns an Auth client
func InitializeFirebase(ctx context.Context, cfg *config.FirebaseConfig) (*auth.Client, error) {
	if cfg.CredentialsPath == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}

	opt := option.WithCredentialsFile(cfg.CredentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}

	return authClient, nil
}

// FirebaseProvider treats the callback code as a Firebase ID token and the
// session as a Firebase session cookie.
type FirebaseProvider struct {
	client     *auth.Client
	sessionTTL time.Duration
}

func NewFirebaseProvider(client *auth.Client, sessionTTL time.Duration) *FirebaseProvider {
	return &FirebaseProvider{client: client, sessionTTL: sessionTTL}
}

func (p *FirebaseProvider) ExchangeCodeForSession(ctx context.Context, code string) (*Session, error) {
	token, err := p.client.VerifyIDToken(ctx, code)
	if err != nil {
		return nil, idTokenError(err, auth.IsIDTokenInvalid)
	}

	cookie, err := p.client.SessionCookie(ctx, code, p.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("create session cookie: %w", err)
	}

	return &Session{
		Identity:  identityFromToken(token),
		Cookie:    cookie,
		ExpiresIn: p.sessionTTL,
	}, nil
}

// VerifySession accepts a session cookie, or an ID token when the caller
// authenticates with a bearer header.
func (p *FirebaseProvider) VerifySession(ctx context.Context, value string) (*Identity, error) {
	token, err := p.client.VerifySessionCookieAndCheckRevoked(ctx, value)
	if err != nil {
		token, err = p.client.VerifyIDTokenAndCheckRevoked(ctx, value)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	id := identityFromToken(token)
	return &id, nil
}

func (p *FirebaseProvider) RevokeSessions(ctx context.Context, userID string) error {
	if err := p.client.RevokeRefreshTokens(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

func identityFromToken(token *auth.Token) Identity {
	return Identity{
		UserID:   token.UID,
		Email:    claimString(token.Claims, "email"),
		Metadata: metadataFromClaims(token.Claims),
	}
}

func metadataFromClaims(claims map[string]interface{}) Metadata {
	return Metadata{
		FullName:     claimString(claims, "name"),
		AvatarURL:    claimString(claims, "picture"),
		RoleHint:     claimString(claims, claimRole),
		ReferralCode: claimString(claims, claimReferralCode),
	}
}

func claimString(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// idTokenError reports tokens the SDK rejected as ErrInvalidCode. Anything
// else, such as a failed public-key fetch, stays a provider error.
func idTokenError(err error, rejected func(error) bool) error {
	if rejected(err) {
		return fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	return fmt.Errorf("verify id token: %w", err)
}
