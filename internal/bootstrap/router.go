package bootstrap

import (
	"database/sql"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/creatorhub/platform-api/config"
	httpapi "github.com/creatorhub/platform-api/internal/api/http"
	"github.com/creatorhub/platform-api/internal/api/http/middleware"
	"github.com/creatorhub/platform-api/internal/api/http/routes"
	authhttp "github.com/creatorhub/platform-api/internal/auth/http"
	"github.com/creatorhub/platform-api/internal/auth/identity"
	authmw "github.com/creatorhub/platform-api/internal/auth/middleware"
	"github.com/creatorhub/platform-api/internal/auth/service"
	"github.com/creatorhub/platform-api/internal/auth/webhook"
	profilesvc "github.com/creatorhub/platform-api/internal/profiles/service"
	"github.com/creatorhub/platform-api/internal/ratelimit"
	"github.com/creatorhub/platform-api/internal/reporting"
	referralsvc "github.com/creatorhub/platform-api/internal/referrals/service"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	Config      *config.Config
	DB          *sql.DB
	Redis       *redis.Client
	Provider    identity.Provider
	Profiles    *profilesvc.ProfileService
	Referrals   *referralsvc.ReferralService
	// Webhooks is nil when no signing secret is configured.
	Webhooks *webhook.Handler
	Sentry   bool
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	cfg := dep.Config
	r := gin.New()
	r.Use(gin.Recovery())
	if dep.Sentry {
		r.Use(reporting.Middleware())
	}
	r.Use(middleware.RequestIDMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{middleware.HeaderRequestID, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	requireSession := authmw.SessionAuth(dep.Provider, cfg.Auth.SessionCookieName)

	callbacks := service.NewCallbackService(dep.Provider, dep.Profiles, dep.Referrals, cfg.Auth.SignInPath)
	authhttp.New(callbacks, dep.Provider, authhttp.CookieOptions{
		Name:   cfg.Auth.SessionCookieName,
		Secure: cfg.IsProduction(),
	}).Register(r.Group("/auth"), requireSession)

	var rateLimit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.RateLimit.Enabled {
		rateLimit = ratelimit.Middleware(ratelimit.New(cfg.RateLimit, dep.Redis), cfg.RateLimit.Prefix, "referral-validate")
	}

	routes.RegisterV1(r, routes.V1Deps{
		RequireSession: requireSession,
		RateLimit:      rateLimit,
		Profiles:       dep.Profiles,
		Referrals:      dep.Referrals,
	})

	if dep.Webhooks != nil {
		dep.Webhooks.Register(r.Group("/webhooks"))
	}

	return r
}
