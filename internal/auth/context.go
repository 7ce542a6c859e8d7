package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/creatorhub/platform-api/internal/auth/identity"
)

const (
	CtxUserID   = "user_id"
	CtxEmail    = "email"
	CtxIdentity = "identity"
)

// UserID extracts the authenticated user id from the Gin context.
// This is set by middleware.SessionAuth.
func UserID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxUserID))
}

// SetIdentity stores a verified identity on the Gin context.
func SetIdentity(c *gin.Context, id *identity.Identity) {
	c.Set(CtxUserID, id.UserID)
	c.Set(CtxEmail, id.Email)
	c.Set(CtxIdentity, id)
}

// CurrentIdentity returns the identity stored by SetIdentity, if any.
func CurrentIdentity(c *gin.Context) (*identity.Identity, bool) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return nil, false
	}
	id, ok := v.(*identity.Identity)
	return id, ok
}
