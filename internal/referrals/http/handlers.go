package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/creatorhub/platform-api/internal/auth"
	"github.com/creatorhub/platform-api/internal/profiles/domain"
	"github.com/creatorhub/platform-api/internal/reporting"
)

// Validate reports whether a referral code belongs to someone.
func (h *Handler) Validate(c *gin.Context) {
	info, found, err := h.referrals.Resolve(c.Request.Context(), c.Query("code"))
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "referral validate failed", "error", err)
		reporting.Capture(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate referral code"})
		return
	}
	if !found {
		c.JSON(http.StatusOK, validateResponse{Valid: false})
		return
	}
	c.JSON(http.StatusOK, validateResponse{Valid: true, Referrer: info})
}

// Attach links the signed-in user to the owner of the posted code.
func (h *Handler) Attach(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req attachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	chain, err := h.referrals.Attach(c.Request.Context(), userID, req.Code)
	if err != nil {
		if reason, ok := domain.RejectionReason(err); ok {
			c.JSON(http.StatusBadRequest, gin.H{"status": "rejected", "reason": reason})
			return
		}
		if errors.Is(err, domain.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		slog.ErrorContext(c.Request.Context(), "referral attach failed", "user_id", userID, "error", err)
		reporting.Capture(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to attach referral"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "attached", "chain": chain})
}

// Network returns the signed-in user's downline counts.
func (h *Handler) Network(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	d, err := h.referrals.Network(c.Request.Context(), userID)
	if err != nil {
		reporting.Capture(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load referral network"})
		return
	}
	c.JSON(http.StatusOK, networkResponse{Downline: d, Total: d.Total()})
}
