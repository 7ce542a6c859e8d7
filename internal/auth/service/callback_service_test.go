package service

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/platform-api/internal/auth/identity"
	"github.com/creatorhub/platform-api/internal/auth/identity/identitytest"
	"github.com/creatorhub/platform-api/internal/profiles/domain"
	"github.com/creatorhub/platform-api/internal/profiles/profiletest"
	profilesvc "github.com/creatorhub/platform-api/internal/profiles/service"
	referralsvc "github.com/creatorhub/platform-api/internal/referrals/service"
)

type fixture struct {
	store    *profiletest.MemoryStore
	provider *identitytest.FakeProvider
	svc      *CallbackService
}

func newFixture(seed ...*domain.Profile) *fixture {
	store := profiletest.NewMemoryStore(seed...)
	provider := identitytest.NewFakeProvider()
	profiles := profilesvc.NewProfileService(store)
	referrals := referralsvc.NewReferralService(store)
	return &fixture{
		store:    store,
		provider: provider,
		svc:      NewCallbackService(provider, profiles, referrals, "/sign-in"),
	}
}

func errorParam(t *testing.T, location string) string {
	t.Helper()
	u, err := url.Parse(location)
	require.NoError(t, err)
	assert.Equal(t, "/sign-in", u.Path)
	return u.Query().Get("error")
}

func TestHandleCallback_ExistingAdmin(t *testing.T) {
	f := newFixture(&domain.Profile{ID: "admin-1", Email: "boss@example.com", Role: domain.RoleAdmin})
	f.provider.AddCode("good", identity.Identity{UserID: "admin-1", Email: "boss@example.com"})

	res := f.svc.HandleCallback(context.Background(), CallbackRequest{Code: "good"})

	assert.Equal(t, StateRedirected, res.State)
	assert.Equal(t, "/admin/dashboard", res.Location)
	require.NotNil(t, res.Session)
	assert.Equal(t, "session-good", res.Session.Cookie)
	assert.False(t, res.ProfileCreated)
	assert.Equal(t, 0, f.store.Inserts)
}

func TestHandleCallback_ExchangeFailure(t *testing.T) {
	t.Run("invalid code", func(t *testing.T) {
		f := newFixture()

		res := f.svc.HandleCallback(context.Background(), CallbackRequest{Code: "bad", RedirectTo: "/campaigns"})

		assert.Equal(t, StateFailed, res.State)
		assert.ErrorIs(t, res.Err, identity.ErrInvalidCode)
		assert.Equal(t, msgInvalidCode, errorParam(t, res.Location))
		assert.Nil(t, res.Session)
		assert.Equal(t, 0, f.store.Len(), "no profile write after a failed exchange")
	})

	t.Run("provider unavailable", func(t *testing.T) {
		f := newFixture()
		f.provider.ExchangeErr = errors.New("upstream 503")

		res := f.svc.HandleCallback(context.Background(), CallbackRequest{Code: "any"})

		assert.Equal(t, StateFailed, res.State)
		assert.Equal(t, msgExchangeError, errorParam(t, res.Location))
		assert.Equal(t, 0, f.store.Inserts)
	})

	t.Run("missing code skips the provider", func(t *testing.T) {
		f := newFixture()

		res := f.svc.HandleCallback(context.Background(), CallbackRequest{Code: "  "})

		assert.Equal(t, StateFailed, res.State)
		assert.ErrorIs(t, res.Err, ErrMissingCode)
		assert.Equal(t, msgMissingCode, errorParam(t, res.Location))
		assert.Equal(t, 0, f.provider.Exchanges)
	})
}

func TestHandleCallback_CreatesProfile(t *testing.T) {
	f := newFixture()
	f.provider.AddCode("new", identity.Identity{
		UserID: "uid-new",
		Email:  "new@example.com",
		Metadata: identity.Metadata{
			FullName:  "Nia New",
			AvatarURL: "https://cdn.example/n.png",
			RoleHint:  "business",
		},
	})

	res := f.svc.HandleCallback(context.Background(), CallbackRequest{Code: "new"})

	assert.Equal(t, StateRedirected, res.State)
	assert.Equal(t, "/dashboard", res.Location)
	assert.True(t, res.ProfileCreated)

	p := f.store.Snapshot("uid-new")
	require.NotNil(t, p)
	assert.Equal(t, domain.RoleBusiness, p.Role)
	assert.Equal(t, "Nia New", *p.FullName)
	require.NotNil(t, p.ReferralCode)
	assert.Len(t, *p.ReferralCode, 8)
}

func TestHandleCallback_UnknownRoleHintDefaultsToCreator(t *testing.T) {
	f := newFixture()
	f.provider.AddCode("c", identity.Identity{UserID: "u", Email: "u@example.com", Metadata: identity.Metadata{RoleHint: "owner"}})

	res := f.svc.HandleCallback(context.Background(), CallbackRequest{Code: "c"})

	assert.Equal(t, "/dashboard", res.Location)
	assert.Equal(t, domain.RoleCreator, f.store.Snapshot("u").Role)
}

func TestHandleCallback_RedirectTo(t *testing.T) {
	f := newFixture(&domain.Profile{ID: "u", Email: "u@example.com", Role: domain.RoleCreator})
	f.provider.AddCode("c", identity.Identity{UserID: "u", Email: "u@example.com"})

	res := f.svc.HandleCallback(context.Background(), CallbackRequest{Code: "c", RedirectTo: "/campaigns/7?tab=stats"})
	assert.Equal(t, "/campaigns/7?tab=stats", res.Location)

	res = f.svc.HandleCallback(context.Background(), CallbackRequest{Code: "c", RedirectTo: "https://evil.example/x"})
	assert.Equal(t, "/dashboard", res.Location)

	res = f.svc.HandleCallback(context.Background(), CallbackRequest{Code: "c", RedirectTo: "javascript:alert(1)"})
	assert.Equal(t, "/dashboard", res.Location)
}

func TestHandleCallback_ProfileFailureIsNonFatal(t *testing.T) {
	f := newFixture()
	f.store.InsertErr = errors.New("insert failed")
	f.provider.AddCode("c", identity.Identity{UserID: "u", Email: "u@example.com"})

	res := f.svc.HandleCallback(context.Background(), CallbackRequest{Code: "c", RedirectTo: "//evil.example"})

	assert.Equal(t, StateRedirected, res.State)
	assert.Equal(t, "/", res.Location)
	require.NotNil(t, res.Session, "session stays valid")
	assert.Error(t, res.ProfileErr)
	assert.Nil(t, res.Err)
}

func TestHandleCallback_SignUpWithReferral(t *testing.T) {
	f := newFixture(&domain.Profile{ID: "referrer", Email: "r@example.com", ReferralCode: profiletest.Ptr("refr2345")})
	f.provider.AddCode("c", identity.Identity{UserID: "newbie", Email: "n@example.com"})

	res := f.svc.HandleCallback(context.Background(), CallbackRequest{Code: "c", ReferralCode: "refr2345"})

	assert.Equal(t, StateRedirected, res.State)
	require.NotNil(t, res.Referral)
	p := f.store.Snapshot("newbie")
	assert.Equal(t, "referrer", *p.ReferrerL1ID)
	assert.Nil(t, p.ReferrerL2ID)
	assert.Nil(t, p.ReferrerL3ID)
}

func TestHandleCallback_ReferralFromMetadata(t *testing.T) {
	f := newFixture(&domain.Profile{ID: "referrer", Email: "r@example.com", ReferralCode: profiletest.Ptr("refr2345")})
	f.provider.AddCode("c", identity.Identity{
		UserID: "newbie", Email: "n@example.com",
		Metadata: identity.Metadata{ReferralCode: "refr2345"},
	})

	res := f.svc.HandleCallback(context.Background(), CallbackRequest{Code: "c"})

	require.NotNil(t, res.Referral)
	assert.Equal(t, "referrer", res.Referral.L1)
}

func TestHandleCallback_LinkedProfileKeepsItsChain(t *testing.T) {
	f := newFixture(
		&domain.Profile{ID: "first", Email: "f@example.com", ReferralCode: profiletest.Ptr("firs2345")},
		&domain.Profile{ID: "referrer", Email: "r@example.com", ReferralCode: profiletest.Ptr("refr2345")},
		&domain.Profile{ID: "old", Email: "o@example.com", ReferrerL1ID: profiletest.Ptr("first")},
	)
	f.provider.AddCode("c", identity.Identity{UserID: "old", Email: "o@example.com"})

	res := f.svc.HandleCallback(context.Background(), CallbackRequest{Code: "c", ReferralCode: "refr2345"})

	assert.Equal(t, StateRedirected, res.State)
	assert.Nil(t, res.Referral)
	assert.Equal(t, "first", *f.store.Snapshot("old").ReferrerL1ID)
	assert.Equal(t, 0, f.store.Attaches)
}

func TestHandleCallback_ReferralAttachedWhenWebhookCreatedProfileFirst(t *testing.T) {
	f := newFixture(&domain.Profile{ID: "referrer", Email: "r@example.com", ReferralCode: profiletest.Ptr("refr2345")})
	f.provider.AddCode("c", identity.Identity{UserID: "newbie", Email: "n@example.com"})

	// user.created arrives before the browser reaches the callback.
	_, err := profilesvc.NewProfileService(f.store).Sync(context.Background(), profilesvc.NewProfile{
		ID: "newbie", Email: "n@example.com",
	})
	require.NoError(t, err)

	res := f.svc.HandleCallback(context.Background(), CallbackRequest{Code: "c", ReferralCode: "refr2345"})

	assert.Equal(t, StateRedirected, res.State)
	assert.False(t, res.ProfileCreated)
	require.NotNil(t, res.Referral)
	p := f.store.Snapshot("newbie")
	require.NotNil(t, p.ReferrerL1ID)
	assert.Equal(t, "referrer", *p.ReferrerL1ID)
	assert.Nil(t, p.ReferrerL2ID)
	assert.Nil(t, p.ReferrerL3ID)
}

func TestHandleCallback_BadReferralDoesNotBlockSignIn(t *testing.T) {
	f := newFixture()
	f.provider.AddCode("c", identity.Identity{UserID: "newbie", Email: "n@example.com"})

	res := f.svc.HandleCallback(context.Background(), CallbackRequest{Code: "c", ReferralCode: "nope"})

	assert.Equal(t, StateRedirected, res.State)
	assert.Equal(t, "/dashboard", res.Location)
	assert.Nil(t, res.Referral)
	assert.NotNil(t, f.store.Snapshot("newbie"))
}
