package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aquasafe179-rgb/rapidcareBeta/models"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenTTL is how long an issued bearer token stays valid
const TokenTTL = 24 * time.Hour

func jwtSecret() ([]byte, error) {
	secret := []byte(os.Getenv("JWT_SECRET"))
	if len(secret) == 0 {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	return secret, nil
}

// SignToken issues a bearer token carrying the caller identity claims
func SignToken(identity models.Identity) (string, error) {
	secret, err := jwtSecret()
	if err != nil {
		return "", err
	}
	claims := jwt.MapClaims{
		"role": identity.Role,
		"sub":  identity.SubjectID,
		"ref":  identity.Ref,
		"jti":  uuid.New().String(),
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken validates a bearer token and resolves the caller identity. The
// same function authorizes REST calls and socket room joins.
func ParseToken(raw string) (models.Identity, error) {
	secret, err := jwtSecret()
	if err != nil {
		return models.Identity{}, err
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to parse token, %v", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.Identity{}, fmt.Errorf("invalid token")
	}
	role, _ := claims["role"].(string)
	sub, _ := claims["sub"].(string)
	ref, _ := claims["ref"].(string)
	if role == "" || ref == "" {
		return models.Identity{}, fmt.Errorf("token is missing identity claims")
	}
	return models.Identity{Role: role, SubjectID: sub, Ref: ref}, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

// Auth wraps a route with bearer authentication and an optional role
// allow-list. The resolved identity lands in the request context.
func Auth(next http.Handler, roles ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		raw := bearerToken(r)
		if raw == "" {
			zap.S().Errorw("unauthorized", "url", r.URL)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		identity, err := ParseToken(raw)
		if err != nil {
			zap.S().Errorw("unauthorized", "url", r.URL, "error", err)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		if len(roles) > 0 {
			allowed := false
			for _, role := range roles {
				if identity.Role == role {
					allowed = true
					break
				}
			}
			if !allowed {
				zap.S().Errorw("forbidden role", "url", r.URL, "role", identity.Role)
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error": "forbidden"}`))
				return
			}
		}
		zap.S().Debugf("%s %s authenticated", identity.Role, identity.Ref)
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// OptionalAuth resolves the identity when a bearer token is present but never
// rejects the request; scoped read handlers narrow their responses themselves.
func OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if raw := bearerToken(r); raw != "" {
			if identity, err := ParseToken(raw); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), identity))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity stores the caller identity on the context
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromRequest returns the caller identity resolved by Auth/OptionalAuth
func IdentityFromRequest(r *http.Request) (models.Identity, bool) {
	identity, ok := r.Context().Value(identityKey).(models.Identity)
	return identity, ok
}
