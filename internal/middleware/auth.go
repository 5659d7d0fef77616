package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dukerupert/trimquest/internal/auth"
)

// InternalKeyHeader carries the shared secret for service-to-service calls.
const InternalKeyHeader = "X-Internal-Key"

var errMissingToken = errors.New("missing bearer token")

// RequireAuth verifies an HMAC-signed bearer token issued by the auth
// provider and populates AuthContext from its claims. The sub claim must be
// the numeric user id. WebSocket upgrades may pass the token as ?token=
// because browsers cannot set headers on them.
func RequireAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, err := authenticate(r, secret)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="trimquest"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("token")
	}
	return ""
}

func authenticate(r *http.Request, secret []byte) (auth.AuthContext, error) {
	raw := tokenFromRequest(r)
	if raw == "" {
		return auth.AuthContext{}, errMissingToken
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return auth.AuthContext{}, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return auth.AuthContext{}, errors.New("invalid token claims")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return auth.AuthContext{}, fmt.Errorf("read subject: %w", err)
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return auth.AuthContext{}, fmt.Errorf("invalid subject %q", sub)
	}

	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	return auth.AuthContext{UserID: userID, Email: email, Role: role}, nil
}

// RequireInternalKey guards endpoints called by the rest of the application.
// With an empty key every request is refused.
func RequireInternalKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(InternalKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
