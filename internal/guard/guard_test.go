package guard

import (
	"testing"

	"github.com/givetrack/givetrack/internal/models"
	"github.com/stretchr/testify/assert"
)

func authed(role models.Role, onboarded bool) Session {
	return Session{
		Authenticated: true,
		User:          &User{Role: role, OnboardingCompleted: onboarded},
	}
}

func anonymous() Session {
	return Session{}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		session  Session
		path     string
		wantWait bool
		wantTo   string
		wantShow bool
	}{
		{
			name:     "loading renders nothing and decides nothing",
			session:  Session{Loading: true, Authenticated: true},
			path:     "/users",
			wantWait: true,
		},
		{
			name:    "anonymous on protected path goes to login",
			session: anonymous(),
			path:    "/users",
			wantTo:  "/login",
		},
		{
			name:     "anonymous on login renders",
			session:  anonymous(),
			path:     "/login",
			wantShow: true,
		},
		{
			name:     "anonymous on public program page renders",
			session:  anonymous(),
			path:     "/programs/public/42",
			wantShow: true,
		},
		{
			name:     "anonymous on reset password renders",
			session:  anonymous(),
			path:     "/reset-password?token=abc",
			wantShow: true,
		},
		{
			name:    "donor cannot open admin user management",
			session: authed(models.RoleDonor, true),
			path:    "/users",
			wantTo:  "/",
		},
		{
			name:     "admin opens user management",
			session:  authed(models.RoleAdmin, true),
			path:     "/users",
			wantShow: true,
		},
		{
			name:    "volunteer cannot open finance",
			session: authed(models.RoleVolunteer, true),
			path:    "/finance/reports",
			wantTo:  "/",
		},
		{
			name:     "donor opens own donations",
			session:  authed(models.RoleDonor, true),
			path:     "/my-donations",
			wantShow: true,
		},
		{
			name:    "volunteer cannot open donor impact",
			session: authed(models.RoleVolunteer, true),
			path:    "/impact",
			wantTo:  "/",
		},
		{
			name:     "admin opens volunteer dashboard",
			session:  authed(models.RoleAdmin, true),
			path:     "/volunteer-dashboard",
			wantShow: true,
		},
		{
			name:     "volunteer opens volunteer dashboard",
			session:  authed(models.RoleVolunteer, true),
			path:     "/volunteer-dashboard/shifts",
			wantShow: true,
		},
		{
			name:    "unfinished onboarding on home goes to onboarding",
			session: authed(models.RoleDonor, false),
			path:    "/",
			wantTo:  "/onboarding",
		},
		{
			name:    "unfinished onboarding on protected path goes to onboarding",
			session: authed(models.RoleDonor, false),
			path:    "/my-donations",
			wantTo:  "/onboarding",
		},
		{
			name:     "unfinished onboarding already on onboarding renders",
			session:  authed(models.RoleDonor, false),
			path:     "/onboarding/profile",
			wantShow: true,
		},
		{
			name:    "signed-in user bounced off login",
			session: authed(models.RoleDonor, true),
			path:    "/login",
			wantTo:  "/",
		},
		{
			name:    "signed-in user bounced off register",
			session: authed(models.RoleAdmin, true),
			path:    "/register",
			wantTo:  "/",
		},
		{
			name:     "signed-in user stays on home",
			session:  authed(models.RoleDonor, true),
			path:     "/",
			wantShow: true,
		},
		{
			name:     "signed-in user stays on public program page",
			session:  authed(models.RoleVolunteer, true),
			path:     "/programs/public/42",
			wantShow: true,
		},
		{
			name:     "authenticated without profile renders protected path",
			session:  Session{Authenticated: true},
			path:     "/programs",
			wantShow: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.session, tt.path)
			assert.Equal(t, tt.wantWait, got.Wait, "wait")
			assert.Equal(t, tt.wantTo, got.RedirectTo, "redirect")
			assert.Equal(t, tt.wantShow, got.Render, "render")
		})
	}
}

func TestIsPublic(t *testing.T) {
	public := []string{"/", "/login", "/register", "/forgot-password", "/admin-signup", "/programs/public", "/programs/public/7", "/reset-password", "/reset-password/abc"}
	for _, path := range public {
		assert.True(t, IsPublic(path), path)
	}

	private := []string{"/users", "/programs", "/programs/7", "/my-donations", "/onboarding", "/finance"}
	for _, path := range private {
		assert.False(t, IsPublic(path), path)
	}
}
