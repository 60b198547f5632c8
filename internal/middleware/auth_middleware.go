package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/givetrack/givetrack/internal/models"
	"github.com/givetrack/givetrack/internal/service"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	ContextKeyClaims contextKey = "claims"
	ContextKeyEmail  contextKey = "email"
	ContextKeyRole   contextKey = "role"
)

type AuthMiddleware struct {
	jwtService *service.JWTService
	logger     *logrus.Logger
}

func NewAuthMiddleware(jwtService *service.JWTService, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		logger:     logger,
	}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := m.claimsFromRequest(r)
		if !ok {
			m.respondUnauthorized(w, "Missing or invalid authorization header")
			return
		}

		if claims.Type != "access" {
			m.respondUnauthorized(w, "Invalid token type")
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
		ctx = context.WithValue(ctx, ContextKeyEmail, claims.Email)
		ctx = context.WithValue(ctx, ContextKeyRole, claims.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a subtree to the listed roles. Must run after
// RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := r.Context().Value(ContextKeyRole).(models.Role)
			if !ok || !allowed[role] {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"success":false,"message":"Insufficient permissions"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromRequest resolves a bearer token without enforcing one. Used by
// endpoints that serve both anonymous and signed-in callers.
func (m *AuthMiddleware) ClaimsFromRequest(r *http.Request) *service.Claims {
	claims, ok := m.claimsFromRequest(r)
	if !ok || claims.Type != "access" {
		return nil
	}
	return claims
}

func (m *AuthMiddleware) claimsFromRequest(r *http.Request) (*service.Claims, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}

	claims, err := m.jwtService.VerifyToken(parts[1])
	if err != nil {
		m.logger.WithError(err).Debug("Token verification failed")
		return nil, false
	}

	return claims, true
}

func (m *AuthMiddleware) respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}
