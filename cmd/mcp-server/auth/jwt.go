package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Context keys for storing user information
type contextKey string

const (
	UserContextKey contextKey = "user"
)

// UserContext represents authenticated caller information
type UserContext struct {
	UserID    string
	Email     string
	SessionID string
	Service   bool
}

// Claims are the JWT claims accepted on the chat API
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid,omitempty"`
	Email     string `json:"email,omitempty"`
}

// JWTAuth verifies HS256 tokens signed with a shared secret
type JWTAuth struct {
	secret []byte
	issuer string
}

// NewJWTAuth returns nil when secret is empty
func NewJWTAuth(secret, issuer string) *JWTAuth {
	if secret == "" {
		return nil
	}
	return &JWTAuth{secret: []byte(secret), issuer: issuer}
}

// VerifyToken checks signature, expiry and issuer and returns the caller
func (a *JWTAuth) VerifyToken(tokenString string) (*UserContext, error) {
	if a == nil {
		return nil, errors.New("JWT authentication not configured")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("invalid token: missing subject")
	}

	return &UserContext{
		UserID:    claims.Subject,
		Email:     claims.Email,
		SessionID: claims.SessionID,
	}, nil
}

// IssueToken signs a token for userID valid for ttl
func (a *JWTAuth) IssueToken(userID, email string, ttl time.Duration) (string, error) {
	if a == nil {
		return "", errors.New("JWT authentication not configured")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ExtractUserFromContext returns the caller stored by the middleware
func ExtractUserFromContext(ctx context.Context) (*UserContext, bool) {
	userCtx, ok := ctx.Value(UserContextKey).(*UserContext)
	return userCtx, ok
}

// ExtractTokenFromHeader extracts the token from "Authorization: Bearer <token>"
func ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// ExtractTokenFromQuery extracts the token from the query string. EventSource
// clients cannot set headers, so /sse relies on it.
func ExtractTokenFromQuery(r *http.Request) string {
	return r.URL.Query().Get("token")
}
