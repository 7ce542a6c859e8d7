// Package reporting forwards unexpected failures to Sentry when it is configured.
package reporting

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/creatorhub/platform-api/config"
	"github.com/creatorhub/platform-api/internal/logging"
)

// Init configures the Sentry client. It reports whether reporting is enabled.
func Init(cfg *config.AppConfig) (bool, error) {
	if cfg.SentryDSN == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     cfg.Version,
	})
	if err != nil {
		return false, fmt.Errorf("sentry init: %w", err)
	}
	return true, nil
}

// Middleware attaches a per-request hub and recovers panics into Sentry.
func Middleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{Repanic: true})
}

// Capture sends err to the request's hub. It is a no-op without Sentry.
func Capture(c *gin.Context, err error) {
	if err == nil {
		return
	}
	hub := sentrygin.GetHubFromContext(c)
	if hub == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		if rid := logging.RequestID(c.Request.Context()); rid != "" {
			scope.SetTag("request_id", rid)
		}
		scope.SetTag("route", c.FullPath())
		hub.CaptureException(err)
	})
}

// Flush waits for buffered events before shutdown.
func Flush() {
	sentry.Flush(2 * time.Second)
}
