package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// AuthMiddleware accepts either a service token, checked against a bcrypt
// hash, or a JWT.
type AuthMiddleware struct {
	jwtAuth     *JWTAuth
	serviceHash []byte
	optional    bool
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(jwtAuth *JWTAuth, serviceTokenHash string, optional bool) *AuthMiddleware {
	m := &AuthMiddleware{jwtAuth: jwtAuth, optional: optional}
	if serviceTokenHash != "" {
		m.serviceHash = []byte(serviceTokenHash)
	}
	return m
}

// Enabled reports whether any credential is configured
func (m *AuthMiddleware) Enabled() bool {
	return m.jwtAuth != nil || m.serviceHash != nil
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CORS preflight carries no credentials
		if r.Method == http.MethodOptions || !m.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		token := ExtractTokenFromHeader(r)
		if token == "" {
			token = ExtractTokenFromQuery(r)
		}

		if token == "" {
			if !m.optional {
				http.Error(w, "Unauthorized: missing authentication token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if m.serviceHash != nil && bcrypt.CompareHashAndPassword(m.serviceHash, []byte(token)) == nil {
			serviceUserCtx := &UserContext{UserID: "service_account", Service: true}
			if injectedUser := r.URL.Query().Get("user_id"); injectedUser != "" {
				serviceUserCtx.UserID = injectedUser
				slog.Debug("service call on behalf of user", slog.String("user_id", injectedUser))
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserContextKey, serviceUserCtx)))
			return
		}

		userCtx, err := m.jwtAuth.VerifyToken(token)
		if err != nil {
			if !m.optional {
				http.Error(w, fmt.Sprintf("Unauthorized: %v", err), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserContextKey, userCtx)))
	})
}

// RequireAuth creates middleware that requires authentication
func RequireAuth(jwtAuth *JWTAuth, serviceTokenHash string) *AuthMiddleware {
	return NewAuthMiddleware(jwtAuth, serviceTokenHash, false)
}

// OptionalAuth creates middleware that allows optional authentication
func OptionalAuth(jwtAuth *JWTAuth, serviceTokenHash string) *AuthMiddleware {
	return NewAuthMiddleware(jwtAuth, serviceTokenHash, true)
}

// HashServiceToken produces the value for MCP_SERVICE_TOKEN_HASH
func HashServiceToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
