// Package webhook receives signed account lifecycle events from the identity
// provider and mirrors them into the profile store.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/creatorhub/platform-api/internal/profiles/domain"
	profilesvc "github.com/creatorhub/platform-api/internal/profiles/service"
	"github.com/creatorhub/platform-api/internal/reporting"
)

const maxBodyBytes = 1 << 20

type ProfileSyncer interface {
	Sync(ctx context.Context, np profilesvc.NewProfile) (*domain.Profile, error)
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	verifier *Verifier
	replay   ReplayGuard
	profiles ProfileSyncer
}

func NewHandler(verifier *Verifier, replay ReplayGuard, profiles ProfileSyncer) *Handler {
	return &Handler{verifier: verifier, replay: replay, profiles: profiles}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/identity", h.Identity)
}

// Identity verifies, de-duplicates and applies one lifecycle event.
func (h *Handler) Identity(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if err := h.verifier.Verify(body, c.Request.Header); err != nil {
		slog.WarnContext(ctx, "webhook rejected", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	deliveryID := c.GetHeader(HeaderID)
	first, err := h.replay.First(ctx, deliveryID)
	if err != nil {
		slog.ErrorContext(ctx, "webhook replay check failed", "delivery_id", deliveryID, "error", err)
		reporting.Capture(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "temporarily unavailable"})
		return
	}
	if !first {
		slog.InfoContext(ctx, "webhook duplicate ignored", "delivery_id", deliveryID, "event_type", evt.Type)
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}

	if err := h.apply(ctx, evt); err != nil {
		slog.ErrorContext(ctx, "webhook processing failed",
			"delivery_id", deliveryID, "event_type", evt.Type, "user_id", evt.Data.ID, "error", err)
		reporting.Capture(c, err)
		if ferr := h.replay.Forget(ctx, deliveryID); ferr != nil {
			slog.WarnContext(ctx, "webhook replay release failed", "delivery_id", deliveryID, "error", ferr)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
		return
	}

	slog.InfoContext(ctx, "webhook processed", "delivery_id", deliveryID, "event_type", evt.Type, "user_id", evt.Data.ID)
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) apply(ctx context.Context, evt Event) error {
	if evt.Data.ID == "" {
		return nil
	}
	switch evt.Type {
	case EventUserCreated, EventUserUpdated:
		_, err := h.profiles.Sync(ctx, evt.Data.toNewProfile())
		return err
	case EventUserDeleted:
		err := h.profiles.Delete(ctx, evt.Data.ID)
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil
		}
		return err
	default:
		return nil
	}
}
