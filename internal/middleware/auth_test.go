package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dukerupert/trimquest/internal/auth"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "42",
		"email": "alice@example.com",
		"role":  "member",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func captureAuth(t *testing.T, got *auth.AuthContext) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Error("expected AuthContext")
		}
		*got = ac
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireAuthValidToken(t *testing.T) {
	var got auth.AuthContext
	handler := RequireAuth(testSecret)(captureAuth(t, &got))

	req := httptest.NewRequest("GET", "/api/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS256, testSecret, validClaims()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if got.UserID != 42 {
		t.Errorf("UserID = %d, want 42", got.UserID)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "alice@example.com")
	}
	if got.Role != "member" {
		t.Errorf("Role = %q, want %q", got.Role, "member")
	}
}

func TestRequireAuthRejects(t *testing.T) {
	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	badSub := validClaims()
	badSub["sub"] = "alice"
	noSub := validClaims()
	delete(noSub, "sub")

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage", "Bearer not-a-token"},
		{"wrong secret", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims())},
		{"expired", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, expired)},
		{"non numeric subject", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, badSub)},
		{"missing subject", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, noSub)},
		{"none algorithm", "Bearer " + signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("should not reach handler")
			}))
			req := httptest.NewRequest("GET", "/api/notifications", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestRequireAuthQueryTokenOnlyForUpgrade(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, testSecret, validClaims())

	var got auth.AuthContext
	handler := RequireAuth(testSecret)(captureAuth(t, &got))

	req := httptest.NewRequest("GET", "/ws?token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || got.UserID != 42 {
		t.Errorf("upgrade with query token: status = %d, user = %d", rec.Code, got.UserID)
	}

	plain := RequireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("query token must not authenticate plain requests")
	}))
	req = httptest.NewRequest("GET", "/api/notifications?token="+token, nil)
	rec = httptest.NewRecorder()
	plain.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireInternalKey(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name string
		key  string
		sent string
		want int
	}{
		{"match", "s3cret", "s3cret", http.StatusNoContent},
		{"mismatch", "s3cret", "guess", http.StatusForbidden},
		{"missing", "s3cret", "", http.StatusForbidden},
		{"unconfigured", "", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/internal/notifications", nil)
			if tt.sent != "" {
				req.Header.Set(InternalKeyHeader, tt.sent)
			}
			rec := httptest.NewRecorder()
			RequireInternalKey(tt.key)(ok).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
