package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/creatorhub/platform-api/internal/auth"
	"github.com/creatorhub/platform-api/internal/auth/identity"
	"github.com/creatorhub/platform-api/internal/auth/service"
	"github.com/creatorhub/platform-api/internal/reporting"
)

// Callback completes sign-in and always answers with a redirect.
func (h *Handler) Callback(c *gin.Context) {
	res := h.callbacks.HandleCallback(c.Request.Context(), service.CallbackRequest{
		Code:         c.Query("code"),
		RedirectTo:   c.Query("redirectTo"),
		ReferralCode: c.Query("ref"),
	})

	if res.Session != nil {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.cookie.Name, res.Session.Cookie, int(res.Session.ExpiresIn.Seconds()), "/", "", h.cookie.Secure, true)
	}

	if res.State == service.StateFailed && !isClientError(res.Err) {
		reporting.Capture(c, res.Err)
	}
	if res.ProfileErr != nil {
		reporting.Capture(c, res.ProfileErr)
	}

	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, res.Location)
}

// SignOut revokes the user's sessions and clears the cookie.
func (h *Handler) SignOut(c *gin.Context) {
	userID := auth.UserID(c)

	if err := h.provider.RevokeSessions(c.Request.Context(), userID); err != nil {
		// The cookie is cleared regardless; a stale session still expires on its own.
		slog.ErrorContext(c.Request.Context(), "sign-out: revoke failed", "user_id", userID, "error", err)
		reporting.Capture(c, err)
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{"status": "signed_out"})
}

// isClientError reports callback failures caused by the browser's request
// rather than by the identity provider.
func isClientError(err error) bool {
	return errors.Is(err, identity.ErrInvalidCode) || errors.Is(err, service.ErrMissingCode)
}
