package http

import "github.com/gin-gonic/gin"

// Register mounts the referral routes. limit guards the public lookup and
// requireSession guards everything tied to the signed-in user.
func (h *Handler) Register(rg *gin.RouterGroup, limit, requireSession gin.HandlerFunc) {
	rg.GET("/validate", limit, h.Validate)
	rg.POST("/attach", requireSession, h.Attach)
	rg.GET("/network", requireSession, h.Network)
}
