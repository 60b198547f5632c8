package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/givetrack/givetrack/internal/middleware"
	"github.com/givetrack/givetrack/internal/models"
	"github.com/givetrack/givetrack/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOnboardingStore struct {
	stubUserReader
	completed map[string]bool
	avatars   map[string]string
}

func (s *stubOnboardingStore) SetOnboardingCompleted(_ context.Context, email string, completed bool) error {
	if s.completed == nil {
		s.completed = map[string]bool{}
	}
	s.completed[email] = completed
	return nil
}

func (s *stubOnboardingStore) UpdateAvatar(_ context.Context, email, avatarURL string) error {
	if s.avatars == nil {
		s.avatars = map[string]string{}
	}
	s.avatars[email] = avatarURL
	return nil
}

func newTestSessionHandlers(t *testing.T, user *models.User) (*SessionHandlers, *service.JWTService, *stubOnboardingStore) {
	t.Helper()
	jwtService := testJWTService(t)
	auth := middleware.NewAuthMiddleware(jwtService, testLogger())
	store := &stubOnboardingStore{stubUserReader: stubUserReader{user: user}}
	return NewSessionHandlers(auth, store, testLogger()), jwtService, store
}

func accessTokenFor(t *testing.T, jwtService *service.JWTService, user *models.User) string {
	t.Helper()
	pair, _, err := jwtService.GenerateTokenPair(user.ID, user.Email, user.Role, "")
	require.NoError(t, err)
	return pair.AccessToken
}

func TestSessionAnonymous(t *testing.T) {
	h, _, _ := newTestSessionHandlers(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	rec := httptest.NewRecorder()
	h.Session(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var parsed SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.False(t, parsed.IsAuthenticated)
	assert.Nil(t, parsed.User)
}

func TestSessionAuthenticated(t *testing.T) {
	user := &models.User{ID: "uid-1", Name: "Ada", Email: "a@b.com", Role: models.RoleAdmin, OnboardingCompleted: true}
	h, jwtService, _ := newTestSessionHandlers(t, user)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, jwtService, user))
	rec := httptest.NewRecorder()
	h.Session(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var parsed SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.True(t, parsed.IsAuthenticated)
	require.NotNil(t, parsed.User)
	assert.Equal(t, models.RoleAdmin, parsed.User.Role)
	assert.True(t, parsed.User.OnboardingCompleted)
}

func TestGuardRequiresPath(t *testing.T) {
	h, _, _ := newTestSessionHandlers(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/guard", nil)
	rec := httptest.NewRecorder()
	h.Guard(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGuardAnonymousProtectedPath(t *testing.T) {
	h, _, _ := newTestSessionHandlers(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/guard?path=/users", nil)
	rec := httptest.NewRecorder()
	h.Guard(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var parsed GuardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.Equal(t, "/login", parsed.Decision.RedirectTo)
	assert.False(t, parsed.Decision.Render)
}

func TestGuardDonorOnAdminPath(t *testing.T) {
	user := &models.User{ID: "uid-1", Email: "a@b.com", Role: models.RoleDonor, OnboardingCompleted: true}
	h, jwtService, _ := newTestSessionHandlers(t, user)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/guard?path=/users", nil)
	req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, jwtService, user))
	rec := httptest.NewRecorder()
	h.Guard(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var parsed GuardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.Equal(t, "/", parsed.Decision.RedirectTo)
}

func TestGuardOnboardingIncomplete(t *testing.T) {
	user := &models.User{ID: "uid-1", Email: "a@b.com", Role: models.RoleDonor, OnboardingCompleted: false}
	h, jwtService, _ := newTestSessionHandlers(t, user)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/guard?path=/", nil)
	req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, jwtService, user))
	rec := httptest.NewRecorder()
	h.Guard(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var parsed GuardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.Equal(t, "/onboarding", parsed.Decision.RedirectTo)
}

func TestCompleteOnboarding(t *testing.T) {
	user := &models.User{ID: "uid-1", Email: "a@b.com", Role: models.RoleDonor}
	h, _, store := newTestSessionHandlers(t, user)

	req := httptest.NewRequest(http.MethodPost, "/api/onboarding/complete", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.ContextKeyEmail, "a@b.com"))
	rec := httptest.NewRecorder()
	h.CompleteOnboarding(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, store.completed["a@b.com"])
}

func TestUpdateAvatar(t *testing.T) {
	user := &models.User{ID: "uid-1", Email: "a@b.com", Role: models.RoleDonor}
	h, _, store := newTestSessionHandlers(t, user)

	body := strings.NewReader(`{"avatar_url":"https://img.example.com/uploads/new42.png"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/profile/avatar", body)
	req = req.WithContext(context.WithValue(req.Context(), middleware.ContextKeyEmail, "a@b.com"))
	rec := httptest.NewRecorder()
	h.UpdateAvatar(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://img.example.com/uploads/new42.png", store.avatars["a@b.com"])
}

func TestUpdateAvatarRequiresURL(t *testing.T) {
	user := &models.User{ID: "uid-1", Email: "a@b.com", Role: models.RoleDonor}
	h, _, _ := newTestSessionHandlers(t, user)

	req := httptest.NewRequest(http.MethodPut, "/api/profile/avatar", strings.NewReader(`{}`))
	req = req.WithContext(context.WithValue(req.Context(), middleware.ContextKeyEmail, "a@b.com"))
	rec := httptest.NewRecorder()
	h.UpdateAvatar(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteOnboardingWithoutSession(t *testing.T) {
	h, _, _ := newTestSessionHandlers(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/onboarding/complete", nil)
	rec := httptest.NewRecorder()
	h.CompleteOnboarding(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
