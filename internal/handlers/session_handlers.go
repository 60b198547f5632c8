package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/givetrack/givetrack/internal/guard"
	"github.com/givetrack/givetrack/internal/middleware"
	"github.com/sirupsen/logrus"
)

type onboardingStore interface {
	userReader
	SetOnboardingCompleted(ctx context.Context, email string, completed bool) error
	UpdateAvatar(ctx context.Context, email, avatarURL string) error
}

// SessionHandlers serves the session state the client-side guard consumes,
// and evaluates the guard policy server-side for a given path.
type SessionHandlers struct {
	auth   *middleware.AuthMiddleware
	users  onboardingStore
	logger *logrus.Logger
}

func NewSessionHandlers(auth *middleware.AuthMiddleware, users onboardingStore, logger *logrus.Logger) *SessionHandlers {
	return &SessionHandlers{
		auth:   auth,
		users:  users,
		logger: logger,
	}
}

type SessionResponse struct {
	Success         bool          `json:"success"`
	IsAuthenticated bool          `json:"isAuthenticated"`
	IsLoading       bool          `json:"isLoading"`
	User            *UserResponse `json:"user,omitempty"`
}

// Session resolves the caller's auth state from an optional bearer token.
// Anonymous callers get an unauthenticated session, not an error.
func (h *SessionHandlers) Session(w http.ResponseWriter, r *http.Request) {
	session, user := h.resolve(r)

	resp := SessionResponse{Success: true, IsAuthenticated: session.Authenticated}
	if user != nil {
		resp.User = user
	}

	respondWithJSON(w, http.StatusOK, resp)
}

type GuardResponse struct {
	Success  bool           `json:"success"`
	Decision guard.Decision `json:"decision"`
}

// Guard evaluates the navigation policy for the path in the query string.
func (h *SessionHandlers) Guard(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		respondWithError(w, http.StatusBadRequest, "Path is required")
		return
	}

	session, _ := h.resolve(r)
	decision := guard.Decide(session, path)

	respondWithJSON(w, http.StatusOK, GuardResponse{Success: true, Decision: decision})
}

// CompleteOnboarding marks the signed-in user's onboarding as done. Runs
// behind RequireAuth.
func (h *SessionHandlers) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	email, ok := r.Context().Value(middleware.ContextKeyEmail).(string)
	if !ok || email == "" {
		respondWithError(w, http.StatusUnauthorized, "Missing session")
		return
	}

	if err := h.users.SetOnboardingCompleted(r.Context(), email, true); err != nil {
		h.logger.WithError(err).Error("Failed to complete onboarding")
		respondWithError(w, http.StatusInternalServerError, "Failed to complete onboarding")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse{Success: true, Message: "Onboarding completed"})
}

type UpdateAvatarRequest struct {
	AvatarURL string `json:"avatar_url"`
}

// UpdateAvatar points the signed-in user's profile at a new hosted image.
// Runs behind RequireAuth.
func (h *SessionHandlers) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	email, ok := r.Context().Value(middleware.ContextKeyEmail).(string)
	if !ok || email == "" {
		respondWithError(w, http.StatusUnauthorized, "Missing session")
		return
	}

	var req UpdateAvatarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.AvatarURL) == "" {
		respondWithError(w, http.StatusBadRequest, "Avatar url is required")
		return
	}

	if err := h.users.UpdateAvatar(r.Context(), email, req.AvatarURL); err != nil {
		h.logger.WithError(err).Error("Failed to update avatar")
		respondWithError(w, http.StatusInternalServerError, "Failed to update avatar")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse{Success: true, Message: "Avatar updated"})
}

func (h *SessionHandlers) resolve(r *http.Request) (guard.Session, *UserResponse) {
	claims := h.auth.ClaimsFromRequest(r)
	if claims == nil {
		return guard.Session{}, nil
	}

	session := guard.Session{Authenticated: true}

	user, err := h.users.GetByEmail(r.Context(), claims.Email)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to load profile for session")
	}
	if user == nil {
		return session, nil
	}

	session.User = &guard.User{
		Role:                user.Role,
		OnboardingCompleted: user.OnboardingCompleted,
	}

	return session, &UserResponse{
		ID:                  user.ID,
		Name:                user.Name,
		Email:               user.Email,
		Role:                user.Role,
		AvatarURL:           user.AvatarURL,
		OnboardingCompleted: user.OnboardingCompleted,
	}
}
