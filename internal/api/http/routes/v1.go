package routes

import (
	"github.com/gin-gonic/gin"

	profileshttp "github.com/creatorhub/platform-api/internal/profiles/http"
	referralshttp "github.com/creatorhub/platform-api/internal/referrals/http"
)

type V1Deps struct {
	RequireSession gin.HandlerFunc
	RateLimit      gin.HandlerFunc
	Profiles       profileshttp.ProfileService
	Referrals      referralshttp.ReferralService
}

func RegisterV1(r *gin.Engine, dep V1Deps) {
	api := r.Group("/api/v1")

	profileshttp.New(dep.Profiles).Register(api.Group("/profile"), dep.RequireSession)
	referralshttp.New(dep.Referrals).Register(api.Group("/referral"), dep.RateLimit, dep.RequireSession)
}
