package http

import (
	"context"

	"github.com/creatorhub/platform-api/internal/profiles/domain"
)

type ReferralService interface {
	Resolve(ctx context.Context, code string) (*domain.ReferrerInfo, bool, error)
	Attach(ctx context.Context, newUserID, code string) (*domain.ReferralChain, error)
	Network(ctx context.Context, id string) (domain.Downline, error)
}

type Handler struct {
	referrals ReferralService
}

func New(referrals ReferralService) *Handler {
	return &Handler{referrals: referrals}
}

type attachRequest struct {
	Code string `json:"code" binding:"required"`
}

type validateResponse struct {
	Valid    bool                 `json:"valid"`
	Referrer *domain.ReferrerInfo `json:"referrer,omitempty"`
}

type networkResponse struct {
	domain.Downline
	Total int `json:"total"`
}
