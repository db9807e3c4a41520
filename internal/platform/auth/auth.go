// Package auth verifies bearer tokens issued by the external identity
// provider and exposes the caller's identity through the request context.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

type ctxKeyUserID struct{}
type ctxKeyEmail struct{}

func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyUserID{}).(string)
	return v, ok
}

func EmailFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyEmail{}).(string)
	return v, ok
}

// WithIdentity injects user id and email into context. Useful for testing.
func WithIdentity(ctx context.Context, uid, email string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyUserID{}, uid)
	return context.WithValue(ctx, ctxKeyEmail{}, email)
}

// Claims is the subset of the identity provider's token this platform reads.
// Subject carries the stable user id; Email mirrors the provider's session.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

type JWTVerifier struct {
	Secret []byte
}

func (v JWTVerifier) Parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return v.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// RequireUser middleware validates Bearer token and injects the identity into context.
func RequireUser(verifier JWTVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if authz == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			claims, err := verifier.Parse(strings.TrimSpace(parts[1]))
			if err != nil || strings.TrimSpace(claims.Subject) == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyUserID{}, claims.Subject)
			if email := strings.TrimSpace(strings.ToLower(claims.Email)); email != "" {
				ctx = context.WithValue(ctx, ctxKeyEmail{}, email)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
