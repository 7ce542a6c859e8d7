package redirect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/creatorhub/platform-api/internal/profiles/domain"
)

func TestFor(t *testing.T) {
	assert.Equal(t, "/admin/dashboard", For(domain.RoleAdmin))
	assert.Equal(t, "/dashboard", For(domain.RoleCreator))
	assert.Equal(t, For(domain.RoleCreator), For(domain.RoleBusiness))
	assert.Equal(t, "/", For(""))
	assert.Equal(t, "/", For(domain.Role("moderator")))
}

func TestSanitize(t *testing.T) {
	testCases := []struct {
		name      string
		candidate string
		role      domain.Role
		expected  string
	}{
		{"plain path", "/campaigns/42", domain.RoleCreator, "/campaigns/42"},
		{"path with query", "/dashboard?tab=referrals#top", domain.RoleBusiness, "/dashboard?tab=referrals#top"},
		{"empty falls back", "", domain.RoleAdmin, "/admin/dashboard"},
		{"javascript scheme", "javascript:alert(1)", domain.RoleCreator, "/dashboard"},
		{"absolute url", "https://evil.example/x", domain.RoleCreator, "/dashboard"},
		{"protocol relative", "//evil.example/x", domain.RoleAdmin, "/admin/dashboard"},
		{"backslash trick", "/\\evil.example", domain.RoleCreator, "/dashboard"},
		{"embedded backslash", "/ok\\..\\evil", domain.RoleCreator, "/dashboard"},
		{"relative without slash", "dashboard", "", "/"},
		{"data scheme", "data:text/html,<script>", "", "/"},
		{"control characters", "/\t/evil.example", domain.RoleCreator, "/dashboard"},
		{"newline injection", "/ok\r\nSet-Cookie: x=1", domain.RoleCreator, "/dashboard"},
		{"mixed case scheme", "JaVaScRiPt:alert(1)", domain.RoleBusiness, "/dashboard"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Sanitize(tc.candidate, tc.role)
			assert.Equal(t, tc.expected, got)
		})
	}
}
