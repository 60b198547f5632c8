package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/givetrack/givetrack/internal/identity"
	"github.com/givetrack/givetrack/internal/models"
	"github.com/givetrack/givetrack/internal/service"
	"github.com/sirupsen/logrus"
)

const minPasswordLength = 6

type registrationService interface {
	RequestOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) error
	Register(ctx context.Context, input service.RegistrationInput) (string, error)
}

type refreshTokenStore interface {
	Store(ctx context.Context, jti, userID, email string, role models.Role, familyID string, expiresAt time.Time) error
	Get(ctx context.Context, jti string) (*models.RefreshTokenData, error)
	Revoke(ctx context.Context, jti string) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	RevokeFamily(ctx context.Context, familyID string) error
}

type userReader interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type AuthHandlers struct {
	registration  registrationService
	provider      identity.Provider
	jwtService    *service.JWTService
	refreshTokens refreshTokenStore
	users         userReader
	logger        *logrus.Logger
}

func NewAuthHandlers(
	registration registrationService,
	provider identity.Provider,
	jwtService *service.JWTService,
	refreshTokens refreshTokenStore,
	users userReader,
	logger *logrus.Logger,
) *AuthHandlers {
	return &AuthHandlers{
		registration:  registration,
		provider:      provider,
		jwtService:    jwtService,
		refreshTokens: refreshTokens,
		users:         users,
		logger:        logger,
	}
}

type CheckEmailRequest struct {
	Email string `json:"email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type RegisterResponse struct {
	Success bool   `json:"success"`
	UID     string `json:"uid"`
	Message string `json:"message"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success      bool         `json:"success"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	User         UserResponse `json:"user"`
}

type UserResponse struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	Email               string      `json:"email"`
	Role                models.Role `json:"role"`
	AvatarURL           string      `json:"avatar_url,omitempty"`
	OnboardingCompleted bool        `json:"onboarding_completed"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CheckEmail runs the duplicate checks and sends a verification code to the
// address when it is free.
func (h *AuthHandlers) CheckEmail(w http.ResponseWriter, r *http.Request) {
	var req CheckEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		respondWithError(w, http.StatusBadRequest, "Email is required")
		return
	}
	if !service.ValidEmail(email) {
		respondWithError(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	if err := h.registration.RequestOTP(r.Context(), email); err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateEmail):
			respondWithErrorCode(w, http.StatusBadRequest, CodeEmailAlreadyExists, "An account with this email already exists")
		case errors.Is(err, service.ErrRateLimited):
			respondWithError(w, http.StatusTooManyRequests, "Too many verification requests, try again later")
		default:
			h.logger.WithError(err).Error("Failed to issue verification code")
			respondWithError(w, http.StatusInternalServerError, "Failed to send verification code")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse{Success: true, Message: "Verification code sent"})
}

// VerifyOTP validates a submitted code. The duplicate check runs again here
// to close the race against a registration that completed in the meantime.
func (h *AuthHandlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	otp := strings.TrimSpace(req.OTP)
	if email == "" || otp == "" {
		respondWithError(w, http.StatusBadRequest, "Email and otp are required")
		return
	}

	if err := h.registration.VerifyOTP(r.Context(), email, otp); err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateEmail):
			respondWithErrorCode(w, http.StatusBadRequest, CodeEmailAlreadyExists, "An account with this email already exists")
		case errors.Is(err, service.ErrInvalidOTP):
			respondWithErrorCode(w, http.StatusBadRequest, CodeInvalidOTP, "Invalid or expired verification code")
		default:
			h.logger.WithError(err).Error("Failed to verify code")
			respondWithError(w, http.StatusInternalServerError, "Failed to verify code")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse{Success: true, Message: "Email verified"})
}

// Register finalizes account creation after the client has completed the
// verify-OTP round-trip.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	role := models.Role(strings.TrimSpace(req.Role))

	if name == "" || email == "" || req.Password == "" || role == "" {
		respondWithError(w, http.StatusBadRequest, "Name, email, password and role are required")
		return
	}
	if !service.ValidEmail(email) {
		respondWithError(w, http.StatusBadRequest, "Invalid email format")
		return
	}
	if len(req.Password) < minPasswordLength {
		respondWithError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	if !role.Valid() {
		respondWithError(w, http.StatusBadRequest, "Role must be admin, donor or volunteer")
		return
	}

	uid, err := h.registration.Register(r.Context(), service.RegistrationInput{
		Name:     name,
		Email:    email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		if errors.Is(err, service.ErrDuplicateEmail) {
			respondWithErrorCode(w, http.StatusBadRequest, CodeEmailAlreadyExists, "An account with this email already exists")
			return
		}
		h.logger.WithError(err).Error("Registration failed")
		respondWithError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	respondWithJSON(w, http.StatusOK, RegisterResponse{Success: true, UID: uid, Message: "Account created"})
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		respondWithError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	uid, err := h.provider.VerifyPassword(r.Context(), email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.WithError(err).Error("Credential verification failed")
		respondWithError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), email)
	if err != nil || user == nil {
		h.logger.WithError(err).Error("Failed to load user profile for login")
		respondWithError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	tokenPair, familyID, err := h.jwtService.GenerateTokenPair(uid, user.Email, user.Role, "")
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate tokens")
		respondWithError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	h.storeRefreshToken(r.Context(), tokenPair.RefreshToken, uid, familyID)

	respondWithJSON(w, http.StatusOK, LoginResponse{
		Success:      true,
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		TokenType:    tokenPair.TokenType,
		ExpiresIn:    tokenPair.ExpiresIn,
		User: UserResponse{
			ID:                  user.ID,
			Name:                user.Name,
			Email:               user.Email,
			Role:                user.Role,
			AvatarURL:           user.AvatarURL,
			OnboardingCompleted: user.OnboardingCompleted,
		},
	})
}

func (h *AuthHandlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.RefreshToken == "" {
		respondWithError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	claims, err := h.jwtService.VerifyToken(req.RefreshToken)
	if err != nil || claims.Type != "refresh" {
		respondWithError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	revoked, err := h.refreshTokens.IsRevoked(r.Context(), claims.JTI)
	if err == nil && revoked {
		// Replay of a revoked token burns the whole family.
		if tokenData, getErr := h.refreshTokens.Get(r.Context(), claims.JTI); getErr == nil && tokenData != nil {
			h.refreshTokens.RevokeFamily(r.Context(), tokenData.FamilyID)
		}
		respondWithError(w, http.StatusUnauthorized, "Refresh token has been revoked")
		return
	}

	familyID := ""
	if tokenData, getErr := h.refreshTokens.Get(r.Context(), claims.JTI); getErr == nil && tokenData != nil {
		familyID = tokenData.FamilyID
		h.refreshTokens.Revoke(r.Context(), claims.JTI)
	}

	tokenPair, familyID, err := h.jwtService.GenerateTokenPair(claims.Subject, claims.Email, claims.Role, familyID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate tokens")
		respondWithError(w, http.StatusInternalServerError, "Failed to refresh session")
		return
	}

	h.storeRefreshToken(r.Context(), tokenPair.RefreshToken, claims.Subject, familyID)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"access_token":  tokenPair.AccessToken,
		"refresh_token": tokenPair.RefreshToken,
		"token_type":    tokenPair.TokenType,
		"expires_in":    tokenPair.ExpiresIn,
	})
}

// Logout clears the session: the refresh token, if provided, is revoked.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	json.NewDecoder(r.Body).Decode(&req)

	if req.RefreshToken != "" {
		if claims, err := h.jwtService.VerifyToken(req.RefreshToken); err == nil && claims.Type == "refresh" {
			h.refreshTokens.Revoke(r.Context(), claims.JTI)
		}
	}

	respondWithJSON(w, http.StatusOK, successResponse{Success: true, Message: "Logged out"})
}

// ForgotPassword always reports success so the endpoint does not reveal
// which addresses have accounts.
func (h *AuthHandlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req CheckEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !service.ValidEmail(email) {
		respondWithError(w, http.StatusBadRequest, "A valid email is required")
		return
	}

	if err := h.provider.SendPasswordReset(r.Context(), email); err != nil {
		h.logger.WithError(err).Error("Failed to dispatch password reset")
	}

	respondWithJSON(w, http.StatusOK, successResponse{Success: true, Message: "If the address has an account, a reset email is on its way"})
}

func (h *AuthHandlers) storeRefreshToken(ctx context.Context, refreshToken, uid, familyID string) {
	claims, err := h.jwtService.VerifyToken(refreshToken)
	if err != nil {
		h.logger.WithError(err).Error("Failed to read back refresh token")
		return
	}

	if err := h.refreshTokens.Store(ctx, claims.JTI, uid, claims.Email, claims.Role, familyID, claims.RegisteredClaims.ExpiresAt.Time); err != nil {
		// Token is still usable; revocation just cannot see it.
		h.logger.WithError(err).Error("Failed to store refresh token")
	}
}
