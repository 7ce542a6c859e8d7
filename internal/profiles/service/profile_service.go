package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/creatorhub/platform-api/internal/profiles/domain"
)

// maxCodeAttempts bounds regeneration after a referral-code collision.
const maxCodeAttempts = 5

// Store is the subset of the profile repository this service needs.
type Store interface {
	Get(ctx context.Context, id string) (*domain.Profile, error)
	Insert(ctx context.Context, p *domain.Profile) (*domain.Profile, error)
	Update(ctx context.Context, id string, req *domain.UpdateProfileRequest) (*domain.Profile, error)
	Delete(ctx context.Context, id string) error
	ListMissingReferralCode(ctx context.Context, limit int) ([]string, error)
	AssignReferralCode(ctx context.Context, id, code string) (bool, error)
}

// NewProfile describes a profile to create from identity-provider data.
type NewProfile struct {
	ID        string
	Email     string
	FullName  string
	AvatarURL string
	Role      domain.Role
}

type ProfileService struct {
	store   Store
	newCode func() (string, error)
}

func NewProfileService(store Store) *ProfileService {
	return &ProfileService{
		store:   store,
		newCode: NewReferralCode,
	}
}

// WithCodeGenerator replaces the referral code generator; tests use it for deterministic codes.
func (s *ProfileService) WithCodeGenerator(gen func() (string, error)) *ProfileService {
	s.newCode = gen
	return s
}

func (s *ProfileService) Get(ctx context.Context, id string) (*domain.Profile, error) {
	return s.store.Get(ctx, id)
}

// Create inserts a new profile with a freshly generated referral code.
// A collision on the code is retried with a new one; any other conflict is returned.
func (s *ProfileService) Create(ctx context.Context, np NewProfile) (*domain.Profile, error) {
	if strings.TrimSpace(np.ID) == "" {
		return nil, fmt.Errorf("profile id is required")
	}

	p := &domain.Profile{
		ID:        np.ID,
		Email:     np.Email,
		Role:      np.Role,
		FullName:  optional(np.FullName),
		AvatarURL: optional(np.AvatarURL),
	}
	if p.Email == "" {
		// Phone and anonymous sign-ins carry no email; the column is unique and required.
		p.Email = np.ID + "@firebase.local"
	}
	if !p.Role.Valid() {
		p.Role = domain.DefaultRole
	}

	var lastErr error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate referral code: %w", err)
		}
		p.ReferralCode = &code

		created, err := s.store.Insert(ctx, p)
		if err == nil {
			return created, nil
		}
		if !domain.IsConflict(err, domain.ConstraintReferralCode) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("referral code collisions after %d attempts: %w", maxCodeAttempts, lastErr)
}

// Ensure returns the existing profile for np.ID or creates it. The boolean
// reports whether this call created the row. A concurrent creation of the same
// id is resolved by re-reading the winner's row.
func (s *ProfileService) Ensure(ctx context.Context, np NewProfile) (*domain.Profile, bool, error) {
	p, err := s.store.Get(ctx, np.ID)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, false, err
	}

	p, err = s.Create(ctx, np)
	if err == nil {
		return p, true, nil
	}
	if domain.IsConflict(err, domain.ConstraintID) {
		p, getErr := s.store.Get(ctx, np.ID)
		if getErr != nil {
			return nil, false, getErr
		}
		return p, false, nil
	}
	return nil, false, err
}

func (s *ProfileService) Update(ctx context.Context, id string, req *domain.UpdateProfileRequest) (*domain.Profile, error) {
	if req.Role != nil && !req.Role.Valid() {
		return nil, fmt.Errorf("invalid role %q", *req.Role)
	}
	return s.store.Update(ctx, id, req)
}

// Sync creates the profile or refreshes its contact fields and role from the identity provider.
func (s *ProfileService) Sync(ctx context.Context, np NewProfile) (*domain.Profile, error) {
	p, created, err := s.Ensure(ctx, np)
	if err != nil || created {
		return p, err
	}

	req := &domain.UpdateProfileRequest{
		FullName:  optional(np.FullName),
		AvatarURL: optional(np.AvatarURL),
	}
	if np.Email != "" && np.Email != p.Email {
		req.Email = &np.Email
	}
	if np.Role.Valid() && np.Role != p.Role {
		role := np.Role
		req.Role = &role
	}
	return s.store.Update(ctx, p.ID, req)
}

func (s *ProfileService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// BackfillReferralCodes assigns codes to up to batch profiles that have none.
// It returns how many profiles received a code.
func (s *ProfileService) BackfillReferralCodes(ctx context.Context, batch int) (int, error) {
	ids, err := s.store.ListMissingReferralCode(ctx, batch)
	if err != nil {
		return 0, err
	}

	assigned := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return assigned, err
		}
		ok, err := s.assignCode(ctx, id)
		if err != nil {
			slog.WarnContext(ctx, "referral code backfill failed", "profile_id", id, "error", err)
			continue
		}
		if ok {
			assigned++
		}
	}
	return assigned, nil
}

func (s *ProfileService) assignCode(ctx context.Context, id string) (bool, error) {
	var lastErr error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return false, err
		}
		ok, err := s.store.AssignReferralCode(ctx, id, code)
		if err == nil {
			return ok, nil
		}
		if !domain.IsConflict(err, domain.ConstraintReferralCode) {
			return false, err
		}
		lastErr = err
	}
	return false, lastErr
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
