// Package provision creates or refreshes a fixed set of accounts in the
// identity provider and the profile store in one idempotent pass.
package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/creatorhub/platform-api/internal/profiles/domain"
	profilesvc "github.com/creatorhub/platform-api/internal/profiles/service"
)

// Policy decides what happens to accounts that already exist.
type Policy string

const (
	PolicySkip   Policy = "skip"
	PolicyUpsert Policy = "upsert"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicySkip, PolicyUpsert:
		return p, nil
	default:
		return "", fmt.Errorf("unknown policy %q (want skip or upsert)", s)
	}
}

const minPasswordLen = 6

type AccountSpec struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	FullName string `yaml:"full_name"`
	Role     string `yaml:"role"`
}

type File struct {
	Accounts []AccountSpec `yaml:"accounts"`
}

// Account is what the identity provider holds for a user.
type Account struct {
	UID   string
	Email string
}

// Accounts is the identity-provider side of provisioning.
type Accounts interface {
	LookupByEmail(ctx context.Context, email string) (*Account, bool, error)
	Create(ctx context.Context, spec AccountSpec) (*Account, error)
	Update(ctx context.Context, uid string, spec AccountSpec) error
}

type Profiles interface {
	Ensure(ctx context.Context, np profilesvc.NewProfile) (*domain.Profile, bool, error)
	Sync(ctx context.Context, np profilesvc.NewProfile) (*domain.Profile, error)
}

type Report struct {
	Created []string
	Updated []string
	Skipped []string
}

func (r Report) String() string {
	return fmt.Sprintf("created=%d updated=%d skipped=%d", len(r.Created), len(r.Updated), len(r.Skipped))
}

func LoadFile(path string) ([]AccountSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) ([]AccountSpec, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	return file.Accounts, nil
}

// Validate checks every spec before anything is written.
func Validate(specs []AccountSpec) error {
	seen := make(map[string]bool, len(specs))
	var errs []error
	for i, s := range specs {
		email := strings.ToLower(strings.TrimSpace(s.Email))
		switch {
		case email == "" || !strings.Contains(email, "@"):
			errs = append(errs, fmt.Errorf("account %d: invalid email %q", i, s.Email))
		case seen[email]:
			errs = append(errs, fmt.Errorf("account %d: duplicate email %q", i, s.Email))
		}
		seen[email] = true
		if _, ok := domain.ParseRole(s.Role); !ok {
			errs = append(errs, fmt.Errorf("account %d: invalid role %q", i, s.Role))
		}
		if len(s.Password) < minPasswordLen {
			errs = append(errs, fmt.Errorf("account %d: password shorter than %d characters", i, minPasswordLen))
		}
	}
	return errors.Join(errs...)
}

type Provisioner struct {
	accounts Accounts
	profiles Profiles
}

func New(accounts Accounts, profiles Profiles) *Provisioner {
	return &Provisioner{accounts: accounts, profiles: profiles}
}

// Provision applies specs under policy. Existing accounts are left alone with
// PolicySkip apart from creating a missing profile row. Referral fields are
// never written here.
func (p *Provisioner) Provision(ctx context.Context, specs []AccountSpec, policy Policy) (Report, error) {
	var report Report
	if err := Validate(specs); err != nil {
		return report, err
	}

	for _, spec := range specs {
		spec.Email = strings.ToLower(strings.TrimSpace(spec.Email))
		role, _ := domain.ParseRole(spec.Role)

		acct, found, err := p.accounts.LookupByEmail(ctx, spec.Email)
		if err != nil {
			return report, fmt.Errorf("lookup %s: %w", spec.Email, err)
		}

		switch {
		case !found:
			acct, err = p.accounts.Create(ctx, spec)
			if err != nil {
				return report, fmt.Errorf("create %s: %w", spec.Email, err)
			}
			if _, err := p.profiles.Sync(ctx, newProfile(acct.UID, spec, role)); err != nil {
				return report, fmt.Errorf("profile %s: %w", spec.Email, err)
			}
			report.Created = append(report.Created, spec.Email)
			slog.InfoContext(ctx, "account created", "email", spec.Email, "uid", acct.UID, "role", role)

		case policy == PolicyUpsert:
			if err := p.accounts.Update(ctx, acct.UID, spec); err != nil {
				return report, fmt.Errorf("update %s: %w", spec.Email, err)
			}
			if _, err := p.profiles.Sync(ctx, newProfile(acct.UID, spec, role)); err != nil {
				return report, fmt.Errorf("profile %s: %w", spec.Email, err)
			}
			report.Updated = append(report.Updated, spec.Email)
			slog.InfoContext(ctx, "account updated", "email", spec.Email, "uid", acct.UID, "role", role)

		default:
			if _, _, err := p.profiles.Ensure(ctx, newProfile(acct.UID, spec, role)); err != nil {
				return report, fmt.Errorf("profile %s: %w", spec.Email, err)
			}
			report.Skipped = append(report.Skipped, spec.Email)
			slog.InfoContext(ctx, "account exists, skipped", "email", spec.Email, "uid", acct.UID)
		}
	}
	return report, nil
}

func newProfile(uid string, spec AccountSpec, role domain.Role) profilesvc.NewProfile {
	return profilesvc.NewProfile{
		ID:       uid,
		Email:    spec.Email,
		FullName: spec.FullName,
		Role:     role,
	}
}
