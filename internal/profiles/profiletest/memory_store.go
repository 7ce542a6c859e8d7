// Package profiletest provides an in-memory profile store with the same
// uniqueness and attach-once semantics as the Postgres repository.
package profiletest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/creatorhub/platform-api/internal/profiles/domain"
)

type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile

	// Injected failures, returned before any state change.
	GetErr    error
	InsertErr error
	UpdateErr error
	AttachErr error

	Inserts  int
	Attaches int
}

func NewMemoryStore(seed ...*domain.Profile) *MemoryStore {
	s := &MemoryStore{profiles: make(map[string]*domain.Profile)}
	for _, p := range seed {
		cp := clone(p)
		if cp.Role == "" {
			cp.Role = domain.DefaultRole
		}
		s.profiles[cp.ID] = cp
	}
	return s
}

// Snapshot returns a copy of the stored profile, or nil.
func (s *MemoryStore) Snapshot(id string) *domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[id]; ok {
		return clone(p)
	}
	return nil
}

// Len returns the number of stored profiles.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return clone(p), nil
}

func (s *MemoryStore) GetByCode(_ context.Context, code string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	for _, p := range s.profiles {
		if p.ReferralCode != nil && *p.ReferralCode == code {
			return clone(p), nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

func (s *MemoryStore) Insert(_ context.Context, p *domain.Profile) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		return nil, s.InsertErr
	}
	if _, ok := s.profiles[p.ID]; ok {
		return nil, &domain.ConflictError{Constraint: domain.ConstraintID}
	}
	for _, other := range s.profiles {
		if other.Email == p.Email {
			return nil, &domain.ConflictError{Constraint: domain.ConstraintEmail}
		}
		if p.ReferralCode != nil && other.ReferralCode != nil && *other.ReferralCode == *p.ReferralCode {
			return nil, &domain.ConflictError{Constraint: domain.ConstraintReferralCode}
		}
	}

	cp := clone(p)
	if cp.Role == "" {
		cp.Role = domain.DefaultRole
	}
	now := time.Now()
	cp.CreatedAt, cp.UpdatedAt = now, now
	s.profiles[cp.ID] = cp
	s.Inserts++
	return clone(cp), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, req *domain.UpdateProfileRequest) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpdateErr != nil {
		return nil, s.UpdateErr
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	if req.Email != nil {
		for _, other := range s.profiles {
			if other.ID != id && other.Email == *req.Email {
				return nil, &domain.ConflictError{Constraint: domain.ConstraintEmail}
			}
		}
		p.Email = *req.Email
	}
	if req.FullName != nil {
		p.FullName = strPtr(*req.FullName)
	}
	if req.AvatarURL != nil {
		p.AvatarURL = strPtr(*req.AvatarURL)
	}
	if req.Role != nil {
		p.Role = *req.Role
	}
	p.UpdatedAt = time.Now()
	return clone(p), nil
}

func (s *MemoryStore) AttachReferrers(_ context.Context, id string, chain domain.ReferralChain) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AttachErr != nil {
		return nil, s.AttachErr
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	if p.IsLinked() {
		return nil, domain.ErrAlreadyLinked
	}
	p.ReferrerL1ID = strPtr(chain.L1)
	p.ReferrerL2ID = copyPtr(chain.L2)
	p.ReferrerL3ID = copyPtr(chain.L3)
	now := time.Now()
	p.ReferralAttachedAt = &now
	p.UpdatedAt = now
	s.Attaches++
	return clone(p), nil
}

// SetReferrers overwrites a profile's chain directly, bypassing the attach-once
// guard, so tests can mutate upstream lineage after an attach.
func (s *MemoryStore) SetReferrers(id string, l1, l2, l3 *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[id]; ok {
		p.ReferrerL1ID, p.ReferrerL2ID, p.ReferrerL3ID = copyPtr(l1), copyPtr(l2), copyPtr(l3)
	}
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[id]; !ok {
		return domain.ErrProfileNotFound
	}
	delete(s.profiles, id)
	// Mirrors ON DELETE SET NULL; referral_attached_at is left as is.
	for _, p := range s.profiles {
		if p.ReferrerL1ID != nil && *p.ReferrerL1ID == id {
			p.ReferrerL1ID = nil
		}
		if p.ReferrerL2ID != nil && *p.ReferrerL2ID == id {
			p.ReferrerL2ID = nil
		}
		if p.ReferrerL3ID != nil && *p.ReferrerL3ID == id {
			p.ReferrerL3ID = nil
		}
	}
	return nil
}

func (s *MemoryStore) CountDownline(_ context.Context, id string) (domain.Downline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var d domain.Downline
	for _, p := range s.profiles {
		if p.ReferrerL1ID != nil && *p.ReferrerL1ID == id {
			d.Level1++
		}
		if p.ReferrerL2ID != nil && *p.ReferrerL2ID == id {
			d.Level2++
		}
		if p.ReferrerL3ID != nil && *p.ReferrerL3ID == id {
			d.Level3++
		}
	}
	return d, nil
}

func (s *MemoryStore) ListMissingReferralCode(_ context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, p := range s.profiles {
		if p.ReferralCode == nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *MemoryStore) AssignReferralCode(_ context.Context, id, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok || p.ReferralCode != nil {
		return false, nil
	}
	for _, other := range s.profiles {
		if other.ReferralCode != nil && *other.ReferralCode == code {
			return false, &domain.ConflictError{Constraint: domain.ConstraintReferralCode}
		}
	}
	p.ReferralCode = strPtr(code)
	return true, nil
}

func clone(p *domain.Profile) *domain.Profile {
	cp := *p
	cp.FullName = copyPtr(p.FullName)
	cp.AvatarURL = copyPtr(p.AvatarURL)
	cp.ReferralCode = copyPtr(p.ReferralCode)
	cp.ReferrerL1ID = copyPtr(p.ReferrerL1ID)
	cp.ReferrerL2ID = copyPtr(p.ReferrerL2ID)
	cp.ReferrerL3ID = copyPtr(p.ReferrerL3ID)
	if p.ReferralAttachedAt != nil {
		t := *p.ReferralAttachedAt
		cp.ReferralAttachedAt = &t
	}
	return &cp
}

func copyPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return strPtr(*s)
}

func strPtr(s string) *string { return &s }

// Ptr is a convenience for building optional fields in tests.
func Ptr(s string) *string { return &s }
