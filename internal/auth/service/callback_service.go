package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/creatorhub/platform-api/internal/auth/identity"
	"github.com/creatorhub/platform-api/internal/auth/redirect"
	"github.com/creatorhub/platform-api/internal/profiles/domain"
	profilesvc "github.com/creatorhub/platform-api/internal/profiles/service"
)

// ErrMissingCode is the failure cause when the callback carries no code.
var ErrMissingCode = errors.New("missing sign-in code")

// CallbackState is a step of the sign-in callback.
type CallbackState string

const (
	StateCodeReceived     CallbackState = "code_received"
	StateSessionExchanged CallbackState = "session_exchanged"
	StateProfileResolved  CallbackState = "profile_resolved"
	StateRedirected       CallbackState = "redirected"
	StateFailed           CallbackState = "failed"
)

// User-facing messages carried in the sign-in page's error parameter.
const (
	msgMissingCode   = "Missing sign-in code. Please sign in again."
	msgInvalidCode   = "Your sign-in link is invalid or has expired. Please sign in again."
	msgExchangeError = "We could not complete your sign-in. Please try again."
)

type ProfileEnsurer interface {
	Ensure(ctx context.Context, np profilesvc.NewProfile) (*domain.Profile, bool, error)
}

type ReferralAttacher interface {
	Attach(ctx context.Context, newUserID, code string) (*domain.ReferralChain, error)
}

type CallbackRequest struct {
	Code         string
	RedirectTo   string
	ReferralCode string
}

// CallbackResult is the terminal outcome of a callback. Location is always set.
type CallbackResult struct {
	State          CallbackState
	Location       string
	Session        *identity.Session
	Profile        *domain.Profile
	ProfileCreated bool
	Referral       *domain.ReferralChain

	// Err is the cause of a Failed state. ProfileErr records a non-fatal
	// profile failure after a successful exchange.
	Err        error
	ProfileErr error
}

type CallbackService struct {
	provider   identity.Provider
	profiles   ProfileEnsurer
	referrals  ReferralAttacher
	signInPath string
}

func NewCallbackService(provider identity.Provider, profiles ProfileEnsurer, referrals ReferralAttacher, signInPath string) *CallbackService {
	if signInPath == "" {
		signInPath = "/sign-in"
	}
	return &CallbackService{
		provider:   provider,
		profiles:   profiles,
		referrals:  referrals,
		signInPath: signInPath,
	}
}

// HandleCallback exchanges the code, resolves or creates the profile and picks
// the landing path. It never returns without a Location; failures redirect to
// the sign-in page with a readable error.
func (s *CallbackService) HandleCallback(ctx context.Context, req CallbackRequest) *CallbackResult {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return s.fail(ErrMissingCode, msgMissingCode)
	}

	session, err := s.provider.ExchangeCodeForSession(ctx, code)
	if err != nil {
		slog.WarnContext(ctx, "auth callback: code exchange failed", "error", err)
		if errors.Is(err, identity.ErrInvalidCode) {
			return s.fail(err, msgInvalidCode)
		}
		return s.fail(err, msgExchangeError)
	}

	result := &CallbackResult{State: StateSessionExchanged, Session: session}

	role, _ := domain.ParseRole(session.Metadata.RoleHint)
	profile, created, err := s.profiles.Ensure(ctx, profilesvc.NewProfile{
		ID:        session.UserID,
		Email:     session.Email,
		FullName:  session.Metadata.FullName,
		AvatarURL: session.Metadata.AvatarURL,
		Role:      role,
	})
	if err != nil {
		// The session is valid; land on a safe default instead of an error page.
		slog.ErrorContext(ctx, "auth callback: profile resolution failed",
			"user_id", session.UserID, "error", err)
		result.ProfileErr = err
		result.State = StateRedirected
		result.Location = redirect.Sanitize(req.RedirectTo, "")
		return result
	}

	result.State = StateProfileResolved
	result.Profile = profile
	result.ProfileCreated = created

	// The identity webhook may have created the profile before the browser
	// got here, so attach whenever the profile is still unlinked.
	if !profile.IsLinked() {
		result.Referral = s.attachReferral(ctx, profile.ID, req.ReferralCode, session.Metadata.ReferralCode)
	}

	result.State = StateRedirected
	result.Location = redirect.Sanitize(req.RedirectTo, profile.Role)
	return result
}

// attachReferral links an unlinked profile to the code supplied at sign-up.
// It never fails the callback.
func (s *CallbackService) attachReferral(ctx context.Context, userID string, codes ...string) *domain.ReferralChain {
	if s.referrals == nil {
		return nil
	}

	var code string
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			code = c
			break
		}
	}
	if code == "" {
		return nil
	}

	chain, err := s.referrals.Attach(ctx, userID, code)
	if err != nil {
		if reason, ok := domain.RejectionReason(err); ok {
			slog.InfoContext(ctx, "auth callback: referral not attached", "user_id", userID, "reason", reason)
		} else {
			slog.WarnContext(ctx, "auth callback: referral attach failed", "user_id", userID, "error", err)
		}
		return nil
	}
	return chain
}

func (s *CallbackService) fail(err error, message string) *CallbackResult {
	return &CallbackResult{
		State:    StateFailed,
		Location: s.SignInURL(message),
		Err:      err,
	}
}

// SignInURL builds the sign-in page location carrying an error message.
func (s *CallbackService) SignInURL(message string) string {
	q := url.Values{}
	q.Set("error", message)
	return s.signInPath + "?" + q.Encode()
}
