package http

import (
	"github.com/creatorhub/platform-api/internal/auth/identity"
	"github.com/creatorhub/platform-api/internal/auth/service"
)

// CookieOptions controls the session cookie written after sign-in.
type CookieOptions struct {
	Name   string
	Secure bool
}

type Handler struct {
	callbacks *service.CallbackService
	provider  identity.Provider
	cookie    CookieOptions
}

func New(callbacks *service.CallbackService, provider identity.Provider, cookie CookieOptions) *Handler {
	if cookie.Name == "" {
		cookie.Name = "__session"
	}
	return &Handler{
		callbacks: callbacks,
		provider:  provider,
		cookie:    cookie,
	}
}
