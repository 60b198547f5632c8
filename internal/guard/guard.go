// Package guard decides, for a session and a path, whether the client may
// stay where it is or must be redirected. The policy is a pure function so
// the hosting navigation hook stays free of it.
package guard

import (
	"strings"

	"github.com/givetrack/givetrack/internal/models"
)

type User struct {
	Role                models.Role `json:"role"`
	OnboardingCompleted bool        `json:"onboarding_completed"`
}

// Session is the auth state already resolved by the identity provider.
type Session struct {
	Authenticated bool  `json:"is_authenticated"`
	Loading       bool  `json:"is_loading"`
	User          *User `json:"user,omitempty"`
}

// Decision is the outcome of evaluating the policy for one navigation.
// While a redirect fires nothing renders; the brief blank frame is expected.
type Decision struct {
	Wait       bool   `json:"wait"`
	RedirectTo string `json:"redirect_to,omitempty"`
	Render     bool   `json:"render"`
}

var publicExact = map[string]bool{
	"/":                true,
	"/login":           true,
	"/register":        true,
	"/forgot-password": true,
	"/admin-signup":    true,
}

var publicPrefixes = []string{
	"/programs/public",
	"/reset-password",
}

type roleRule struct {
	prefix  string
	allowed map[models.Role]bool
}

var roleRules = []roleRule{
	{"/users", map[models.Role]bool{models.RoleAdmin: true}},
	{"/finance", map[models.Role]bool{models.RoleAdmin: true}},
	{"/admin", map[models.Role]bool{models.RoleAdmin: true}},
	{"/my-donations", map[models.Role]bool{models.RoleDonor: true, models.RoleAdmin: true}},
	{"/impact", map[models.Role]bool{models.RoleDonor: true, models.RoleAdmin: true}},
	{"/volunteer-dashboard", map[models.Role]bool{models.RoleVolunteer: true, models.RoleAdmin: true}},
}

// IsPublic reports whether the path is reachable without a session.
func IsPublic(path string) bool {
	if publicExact[path] {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Decide evaluates the redirect rules in order once loading has completed.
func Decide(s Session, path string) Decision {
	if s.Loading {
		return Decision{Wait: true}
	}

	public := IsPublic(path)

	// Home is public but it is the authenticated dashboard, so it does not
	// exempt an unfinished user from onboarding.
	onboardingExempt := public && path != "/"
	if s.Authenticated && s.User != nil && !s.User.OnboardingCompleted &&
		!strings.HasPrefix(path, "/onboarding") && !onboardingExempt {
		return Decision{RedirectTo: "/onboarding"}
	}

	if !s.Authenticated && !public {
		return Decision{RedirectTo: "/login"}
	}

	// Signed-in users have no business on login/register pages.
	if s.Authenticated && public && path != "/" && !strings.HasPrefix(path, "/programs/public") {
		return Decision{RedirectTo: "/"}
	}

	if s.Authenticated && s.User != nil {
		for _, rule := range roleRules {
			if strings.HasPrefix(path, rule.prefix) && !rule.allowed[s.User.Role] {
				return Decision{RedirectTo: "/"}
			}
		}
	}

	return Decision{Render: s.Authenticated || public}
}
