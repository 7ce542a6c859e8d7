package http

import (
	"context"

	"github.com/creatorhub/platform-api/internal/profiles/domain"
)

type ProfileService interface {
	Get(ctx context.Context, id string) (*domain.Profile, error)
	Update(ctx context.Context, id string, req *domain.UpdateProfileRequest) (*domain.Profile, error)
}

type Handler struct {
	profiles ProfileService
}

func New(profiles ProfileService) *Handler {
	return &Handler{profiles: profiles}
}

// updateProfileRequest is the self-service subset; email and role follow the
// identity provider.
type updateProfileRequest struct {
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url" binding:"omitempty,url"`
}
