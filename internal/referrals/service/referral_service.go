package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/creatorhub/platform-api/internal/profiles/domain"
)

// ProfileStore is the part of the profile repository used for referrals.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*domain.Profile, error)
	GetByCode(ctx context.Context, code string) (*domain.Profile, error)
	AttachReferrers(ctx context.Context, id string, chain domain.ReferralChain) (*domain.Profile, error)
	CountDownline(ctx context.Context, id string) (domain.Downline, error)
}

type ReferralService struct {
	store ProfileStore
}

func NewReferralService(store ProfileStore) *ReferralService {
	return &ReferralService{store: store}
}

// Resolve looks up the owner of a referral code. An unknown or blank code
// yields found=false and a nil error.
func (s *ReferralService) Resolve(ctx context.Context, code string) (*domain.ReferrerInfo, bool, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, false, nil
	}

	p, err := s.store.GetByCode(ctx, code)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return &domain.ReferrerInfo{
		ID:           p.ID,
		ReferrerL1ID: p.ReferrerL1ID,
		ReferrerL2ID: p.ReferrerL2ID,
		DisplayName:  p.DisplayName(),
	}, true, nil
}

// Attach links newUserID to the owner of code, recording the referrer and the
// referrer's own first two levels as they are right now. Business-rule
// failures are returned as *domain.RejectedError.
func (s *ReferralService) Attach(ctx context.Context, newUserID, code string) (*domain.ReferralChain, error) {
	user, err := s.store.Get(ctx, newUserID)
	if err != nil {
		return nil, err
	}
	if user.IsLinked() {
		return nil, &domain.RejectedError{Reason: domain.RejectAlreadyLinked}
	}

	referrer, found, err := s.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &domain.RejectedError{Reason: domain.RejectInvalidCode}
	}

	if referrer.ID == newUserID || isUpstream(newUserID, referrer) {
		return nil, &domain.RejectedError{Reason: domain.RejectSelfReferral}
	}

	chain := domain.ReferralChain{
		L1: referrer.ID,
		L2: copyID(referrer.ReferrerL1ID),
		L3: copyID(referrer.ReferrerL2ID),
	}

	if _, err := s.store.AttachReferrers(ctx, newUserID, chain); err != nil {
		if errors.Is(err, domain.ErrAlreadyLinked) {
			// Lost a race with a concurrent attach for the same user.
			return nil, &domain.RejectedError{Reason: domain.RejectAlreadyLinked}
		}
		return nil, err
	}

	slog.InfoContext(ctx, "referral attached",
		"profile_id", newUserID,
		"referrer_l1_id", chain.L1,
		"depth", chain.Depth(),
	)
	return &chain, nil
}

// Network returns how many profiles sit below id at each referral level.
func (s *ReferralService) Network(ctx context.Context, id string) (domain.Downline, error) {
	return s.store.CountDownline(ctx, id)
}

// isUpstream reports whether id already sits in the referrer's own chain,
// which would turn the attach into a cycle.
func isUpstream(id string, r *domain.ReferrerInfo) bool {
	return (r.ReferrerL1ID != nil && *r.ReferrerL1ID == id) ||
		(r.ReferrerL2ID != nil && *r.ReferrerL2ID == id)
}

func normalizeCode(code string) string {
	return strings.TrimSpace(code)
}

func copyID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
