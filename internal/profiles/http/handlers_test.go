package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/platform-api/internal/auth"
	"github.com/creatorhub/platform-api/internal/auth/identity"
	"github.com/creatorhub/platform-api/internal/profiles/domain"
	"github.com/creatorhub/platform-api/internal/profiles/profiletest"
	"github.com/creatorhub/platform-api/internal/profiles/service"
)

func setupRouter(store *profiletest.MemoryStore, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	session := func(c *gin.Context) {
		if userID != "" {
			auth.SetIdentity(c, &identity.Identity{UserID: userID})
		}
		c.Next()
	}
	New(service.NewProfileService(store)).Register(router.Group("/api/v1/profile"), session)
	return router
}

func newStore() *profiletest.MemoryStore {
	return profiletest.NewMemoryStore(&domain.Profile{
		ID:           "u1",
		Email:        "u1@example.com",
		Role:         domain.RoleBusiness,
		ReferralCode: profiletest.Ptr("code1234"),
		ReferrerL1ID: profiletest.Ptr("up"),
	})
}

func TestGetProfile(t *testing.T) {
	router := setupRouter(newStore(), "u1")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var p domain.Profile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, domain.RoleBusiness, p.Role)
	assert.Equal(t, "code1234", *p.ReferralCode)
}

func TestGetProfile_NotFound(t *testing.T) {
	router := setupRouter(newStore(), "ghost")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetProfile_Unauthenticated(t *testing.T) {
	router := setupRouter(newStore(), "")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func put(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestUpdateProfile(t *testing.T) {
	store := newStore()
	router := setupRouter(store, "u1")

	rr := put(router, `{"full_name":"  Uma One ","avatar_url":"https://cdn.example/u1.png","role":"admin","referrer_l1_id":"x"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	p := store.Snapshot("u1")
	assert.Equal(t, "Uma One", *p.FullName)
	assert.Equal(t, "https://cdn.example/u1.png", *p.AvatarURL)
	assert.Equal(t, domain.RoleBusiness, p.Role, "role is not self-service")
	assert.Equal(t, "up", *p.ReferrerL1ID, "referral fields are not updatable")
}

func TestUpdateProfile_Validation(t *testing.T) {
	router := setupRouter(newStore(), "u1")

	assert.Equal(t, http.StatusBadRequest, put(router, `{"avatar_url":"not a url"}`).Code)
	assert.Equal(t, http.StatusBadRequest, put(router, `{`).Code)
}

func TestUpdateProfile_StoreFailure(t *testing.T) {
	store := newStore()
	store.UpdateErr = errors.New("db down")
	router := setupRouter(store, "u1")

	assert.Equal(t, http.StatusInternalServerError, put(router, `{"full_name":"x"}`).Code)
}
