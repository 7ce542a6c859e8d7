package domain

import (
	"strings"
	"time"
)

// Role governs a profile's default landing page and access boundaries.
type Role string

const (
	RoleCreator  Role = "creator"
	RoleBusiness Role = "business"
	RoleAdmin    Role = "admin"

	DefaultRole = RoleCreator
)

// ParseRole returns the role named by s and whether it is one of the known roles.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleCreator, RoleBusiness, RoleAdmin:
		return r, true
	default:
		return "", false
	}
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Profile is the application-level user record, keyed by the identity provider's UID.
type Profile struct {
	ID                 string     `json:"id" db:"id"`
	Email              string     `json:"email" db:"email"`
	FullName           *string    `json:"full_name,omitempty" db:"full_name"`
	AvatarURL          *string    `json:"avatar_url,omitempty" db:"avatar_url"`
	Role               Role       `json:"role" db:"role"`
	ReferralCode       *string    `json:"referral_code,omitempty" db:"referral_code"`
	ReferrerL1ID       *string    `json:"referrer_l1_id,omitempty" db:"referrer_l1_id"`
	ReferrerL2ID       *string    `json:"referrer_l2_id,omitempty" db:"referrer_l2_id"`
	ReferrerL3ID       *string    `json:"referrer_l3_id,omitempty" db:"referrer_l3_id"`
	// ReferralAttachedAt is set once on attach and outlives deleted referrers.
	ReferralAttachedAt *time.Time `json:"referral_attached_at,omitempty" db:"referral_attached_at"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// IsLinked reports whether a referral chain was ever attached to the profile,
// even if every referrer in it has since been deleted.
func (p *Profile) IsLinked() bool {
	return p.ReferralAttachedAt != nil ||
		p.ReferrerL1ID != nil || p.ReferrerL2ID != nil || p.ReferrerL3ID != nil
}

// DisplayName falls back to the local part of the email when no name is set.
func (p *Profile) DisplayName() string {
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	local, _, _ := strings.Cut(p.Email, "@")
	return local
}

// UpdateProfileRequest holds the mutable fields; nil leaves a column unchanged.
// Referral fields are deliberately absent.
type UpdateProfileRequest struct {
	Email     *string
	FullName  *string
	AvatarURL *string
	Role      *Role
}

// ReferrerInfo is what the resolver exposes about the owner of a referral code.
type ReferrerInfo struct {
	ID           string  `json:"id"`
	ReferrerL1ID *string `json:"-"`
	ReferrerL2ID *string `json:"-"`
	DisplayName  string  `json:"display_name"`
}

// ReferralChain is the three-level lineage snapshot written on attach.
type ReferralChain struct {
	L1 string  `json:"referrer_l1_id"`
	L2 *string `json:"referrer_l2_id"`
	L3 *string `json:"referrer_l3_id"`
}

// Depth is the number of recorded levels, from 1 to 3.
func (c ReferralChain) Depth() int {
	switch {
	case c.L3 != nil:
		return 3
	case c.L2 != nil:
		return 2
	default:
		return 1
	}
}

// Downline counts the profiles that carry a given profile at each referrer level.
type Downline struct {
	Level1 int `json:"level1"`
	Level2 int `json:"level2"`
	Level3 int `json:"level3"`
}

func (d Downline) Total() int {
	return d.Level1 + d.Level2 + d.Level3
}
