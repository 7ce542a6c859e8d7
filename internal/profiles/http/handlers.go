package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/creatorhub/platform-api/internal/auth"
	"github.com/creatorhub/platform-api/internal/profiles/domain"
	"github.com/creatorhub/platform-api/internal/reporting"
)

// GetProfile returns the signed-in user's profile.
func (h *Handler) GetProfile(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	p, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, userID, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateProfile changes the signed-in user's name or avatar.
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if req.FullName != nil {
		trimmed := strings.TrimSpace(*req.FullName)
		req.FullName = &trimmed
	}

	p, err := h.profiles.Update(c.Request.Context(), userID, &domain.UpdateProfileRequest{
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		h.writeError(c, userID, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) writeError(c *gin.Context, userID string, err error) {
	switch {
	case errors.Is(err, domain.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
	case domain.IsConflict(err, ""):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		slog.ErrorContext(c.Request.Context(), "profile request failed", "user_id", userID, "error", err)
		reporting.Capture(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
