package http

import "github.com/gin-gonic/gin"

func (h *Handler) Register(rg *gin.RouterGroup, requireSession gin.HandlerFunc) {
	rg.GET("", requireSession, h.GetProfile)
	rg.PUT("", requireSession, h.UpdateProfile)
}
