package http

import "github.com/gin-gonic/gin"

// Register mounts the sign-in routes. requireSession guards sign-out.
func (h *Handler) Register(rg *gin.RouterGroup, requireSession gin.HandlerFunc) {
	rg.GET("/callback", h.Callback)
	rg.POST("/signout", requireSession, h.SignOut)
}
