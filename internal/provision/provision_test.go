package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/platform-api/internal/profiles/domain"
	"github.com/creatorhub/platform-api/internal/profiles/profiletest"
	profilesvc "github.com/creatorhub/platform-api/internal/profiles/service"
)

type fakeAccounts struct {
	byEmail map[string]AccountSpec
	uids    map[string]string
	updates int
	failOn  string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byEmail: map[string]AccountSpec{}, uids: map[string]string{}}
}

func (f *fakeAccounts) seed(uid string, spec AccountSpec) {
	f.byEmail[spec.Email] = spec
	f.uids[spec.Email] = uid
}

func (f *fakeAccounts) LookupByEmail(_ context.Context, email string) (*Account, bool, error) {
	uid, ok := f.uids[email]
	if !ok {
		return nil, false, nil
	}
	return &Account{UID: uid, Email: email}, true, nil
}

func (f *fakeAccounts) Create(_ context.Context, spec AccountSpec) (*Account, error) {
	if spec.Email == f.failOn {
		return nil, errors.New("provider rejected")
	}
	uid := fmt.Sprintf("uid-%d", len(f.uids)+1)
	f.seed(uid, spec)
	return &Account{UID: uid, Email: spec.Email}, nil
}

func (f *fakeAccounts) Update(_ context.Context, uid string, spec AccountSpec) error {
	f.updates++
	f.byEmail[spec.Email] = spec
	return nil
}

const accountsYAML = `
accounts:
  - email: Admin@Example.com
    password: s3cret-admin
    full_name: Site Admin
    role: admin
  - email: brand@example.com
    password: s3cret-brand
    full_name: Brand Co
    role: business
`

func TestDecode(t *testing.T) {
	specs, err := Decode(strings.NewReader(accountsYAML))
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "Admin@Example.com", specs[0].Email)
	assert.Equal(t, "business", specs[1].Role)
}

func TestValidate(t *testing.T) {
	err := Validate([]AccountSpec{
		{Email: "a@example.com", Password: "123456", Role: "creator"},
		{Email: "A@example.com", Password: "123456", Role: "creator"},
		{Email: "nope", Password: "123456", Role: "creator"},
		{Email: "b@example.com", Password: "123", Role: "owner"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate email")
	assert.Contains(t, err.Error(), "invalid email")
	assert.Contains(t, err.Error(), "invalid role")
	assert.Contains(t, err.Error(), "password shorter")
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy(" Upsert ")
	require.NoError(t, err)
	assert.Equal(t, PolicyUpsert, p)

	_, err = ParsePolicy("overwrite")
	assert.Error(t, err)
}

func TestProvision_CreatesAccountsAndProfiles(t *testing.T) {
	specs, err := Decode(strings.NewReader(accountsYAML))
	require.NoError(t, err)
	accounts := newFakeAccounts()
	store := profiletest.NewMemoryStore()

	report, err := New(accounts, profilesvc.NewProfileService(store)).Provision(context.Background(), specs, PolicySkip)
	require.NoError(t, err)

	assert.Equal(t, []string{"admin@example.com", "brand@example.com"}, report.Created)
	admin := store.Snapshot(accounts.uids["admin@example.com"])
	require.NotNil(t, admin)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.Equal(t, "Site Admin", *admin.FullName)
	assert.NotNil(t, admin.ReferralCode)
}

func TestProvision_SkipLeavesExistingAccountsUntouched(t *testing.T) {
	accounts := newFakeAccounts()
	accounts.seed("existing", AccountSpec{Email: "brand@example.com", Password: "old-password", Role: "business"})
	store := profiletest.NewMemoryStore(&domain.Profile{
		ID: "existing", Email: "brand@example.com", Role: domain.RoleBusiness,
		FullName: profiletest.Ptr("Old Name"), ReferrerL1ID: profiletest.Ptr("someone"),
	})

	report, err := New(accounts, profilesvc.NewProfileService(store)).Provision(context.Background(), []AccountSpec{
		{Email: "brand@example.com", Password: "new-password", FullName: "New Name", Role: "admin"},
	}, PolicySkip)
	require.NoError(t, err)

	assert.Equal(t, []string{"brand@example.com"}, report.Skipped)
	assert.Equal(t, 0, accounts.updates)
	assert.Equal(t, "old-password", accounts.byEmail["brand@example.com"].Password)
	p := store.Snapshot("existing")
	assert.Equal(t, domain.RoleBusiness, p.Role)
	assert.Equal(t, "Old Name", *p.FullName)
	assert.Equal(t, "someone", *p.ReferrerL1ID)
}

func TestProvision_SkipCreatesMissingProfile(t *testing.T) {
	accounts := newFakeAccounts()
	accounts.seed("orphan", AccountSpec{Email: "o@example.com", Role: "creator"})
	store := profiletest.NewMemoryStore()

	_, err := New(accounts, profilesvc.NewProfileService(store)).Provision(context.Background(), []AccountSpec{
		{Email: "o@example.com", Password: "password", Role: "creator"},
	}, PolicySkip)
	require.NoError(t, err)
	assert.NotNil(t, store.Snapshot("orphan"))
}

func TestProvision_UpsertUpdatesNameRoleAndPassword(t *testing.T) {
	accounts := newFakeAccounts()
	accounts.seed("existing", AccountSpec{Email: "brand@example.com", Password: "old-password", Role: "business"})
	store := profiletest.NewMemoryStore(&domain.Profile{
		ID: "existing", Email: "brand@example.com", Role: domain.RoleBusiness,
		ReferralCode: profiletest.Ptr("brand123"), ReferrerL1ID: profiletest.Ptr("someone"),
	})

	report, err := New(accounts, profilesvc.NewProfileService(store)).Provision(context.Background(), []AccountSpec{
		{Email: "brand@example.com", Password: "new-password", FullName: "New Name", Role: "admin"},
	}, PolicyUpsert)
	require.NoError(t, err)

	assert.Equal(t, []string{"brand@example.com"}, report.Updated)
	assert.Equal(t, "new-password", accounts.byEmail["brand@example.com"].Password)
	p := store.Snapshot("existing")
	assert.Equal(t, domain.RoleAdmin, p.Role)
	assert.Equal(t, "New Name", *p.FullName)
	assert.Equal(t, "brand123", *p.ReferralCode)
	assert.Equal(t, "someone", *p.ReferrerL1ID)
}

func TestProvision_IsIdempotent(t *testing.T) {
	specs, err := Decode(strings.NewReader(accountsYAML))
	require.NoError(t, err)
	accounts := newFakeAccounts()
	store := profiletest.NewMemoryStore()
	p := New(accounts, profilesvc.NewProfileService(store))

	_, err = p.Provision(context.Background(), specs, PolicyUpsert)
	require.NoError(t, err)
	report, err := p.Provision(context.Background(), specs, PolicyUpsert)
	require.NoError(t, err)

	assert.Empty(t, report.Created)
	assert.Len(t, report.Updated, 2)
	assert.Equal(t, 2, store.Len())
}

func TestProvision_InvalidInputWritesNothing(t *testing.T) {
	accounts := newFakeAccounts()
	store := profiletest.NewMemoryStore()

	_, err := New(accounts, profilesvc.NewProfileService(store)).Provision(context.Background(), []AccountSpec{
		{Email: "good@example.com", Password: "password", Role: "creator"},
		{Email: "bad@example.com", Password: "password", Role: "superuser"},
	}, PolicySkip)
	require.Error(t, err)
	assert.Empty(t, accounts.uids)
	assert.Equal(t, 0, store.Len())
}

func TestProvision_ProviderFailureStops(t *testing.T) {
	accounts := newFakeAccounts()
	accounts.failOn = "b@example.com"
	store := profiletest.NewMemoryStore()

	report, err := New(accounts, profilesvc.NewProfileService(store)).Provision(context.Background(), []AccountSpec{
		{Email: "a@example.com", Password: "password", Role: "creator"},
		{Email: "b@example.com", Password: "password", Role: "creator"},
	}, PolicySkip)
	require.Error(t, err)
	assert.Equal(t, []string{"a@example.com"}, report.Created)
}
