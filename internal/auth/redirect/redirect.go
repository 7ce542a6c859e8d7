// Package redirect picks post-authentication landing paths.
package redirect

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/creatorhub/platform-api/internal/profiles/domain"
)

const (
	AdminHome     = "/admin/dashboard"
	DashboardHome = "/dashboard"
	Home          = "/"
)

// For returns the default landing path for a role. Unknown or empty roles go home.
func For(role domain.Role) string {
	switch role {
	case domain.RoleAdmin:
		return AdminHome
	case domain.RoleCreator, domain.RoleBusiness:
		return DashboardHome
	default:
		return Home
	}
}

// Sanitize returns candidate if it is a same-origin relative path, otherwise For(role).
func Sanitize(candidate string, role domain.Role) string {
	if isLocalPath(candidate) {
		return candidate
	}
	return For(role)
}

func isLocalPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	// "//host" and "/\host" are protocol-relative in browsers.
	if len(p) > 1 && (p[1] == '/' || p[1] == '\\') {
		return false
	}
	if strings.ContainsRune(p, '\\') {
		return false
	}
	for _, r := range p {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return false
		}
	}

	u, err := url.Parse(p)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && u.User == nil
}
