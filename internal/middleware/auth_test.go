package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mohammeioi/Market-Management-sub000/pkg/logger"
)

var testSecret = []byte("super-secret-jwt-token-with-at-least-32-characters")

func signToken(t *testing.T, secret []byte, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func authedRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	m := NewAuthMiddleware(testSecret, logger.Nop(), nil)

	var gotUserID, gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = GetUserID(r.Context())
		gotRole = GetUserRole(r.Context())
	})

	token := signToken(t, testSecret, Claims{
		Email: "ali@example.com",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	rec := httptest.NewRecorder()
	m.Handler(next).ServeHTTP(rec, authedRequest(token))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUserID != "u1" || gotRole != "authenticated" {
		t.Fatalf("unexpected identity %q/%q", gotUserID, gotRole)
	}
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	m := NewAuthMiddleware(testSecret, logger.Nop(), nil)

	rec := httptest.NewRecorder()
	m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	})).ServeHTTP(rec, authedRequest(""))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareWrongSecret(t *testing.T) {
	m := NewAuthMiddleware(testSecret, logger.Nop(), nil)

	token := signToken(t, []byte("some-other-secret-that-is-long-enough!!"), Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	rec := httptest.NewRecorder()
	m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	})).ServeHTTP(rec, authedRequest(token))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	m := NewAuthMiddleware(testSecret, logger.Nop(), nil)

	token := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	rec := httptest.NewRecorder()
	m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	})).ServeHTTP(rec, authedRequest(token))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareSkipPaths(t *testing.T) {
	m := NewAuthMiddleware(testSecret, logger.Nop(), []string{"/health"})

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	m.Handler(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if !called || rec.Code != http.StatusOK {
		t.Fatalf("skip path must pass through, called=%v code=%d", called, rec.Code)
	}
}

type fakeIntrospector struct {
	identity TokenIdentity
	err      error
	tokens   []string
}

func (f *fakeIntrospector) Introspect(_ context.Context, token string) (TokenIdentity, error) {
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return TokenIdentity{}, f.err
	}
	return f.identity, nil
}

func TestAuthMiddlewareIntrospection(t *testing.T) {
	introspector := &fakeIntrospector{
		identity: TokenIdentity{UserID: "u1", Role: "authenticated"},
	}
	m := NewIntrospectingAuthMiddleware(introspector, logger.Nop(), nil)

	var gotUserID, gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = GetUserID(r.Context())
		gotRole = GetUserRole(r.Context())
	})

	rec := httptest.NewRecorder()
	m.Handler(next).ServeHTTP(rec, authedRequest("opaque-session-token"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUserID != "u1" || gotRole != "authenticated" {
		t.Fatalf("unexpected identity %q/%q", gotUserID, gotRole)
	}
	if len(introspector.tokens) != 1 || introspector.tokens[0] != "opaque-session-token" {
		t.Fatalf("expected the raw bearer token to be introspected, got %v", introspector.tokens)
	}
}

func TestAuthMiddlewareIntrospectionRejects(t *testing.T) {
	introspector := &fakeIntrospector{err: errors.New("token revoked")}
	m := NewIntrospectingAuthMiddleware(introspector, logger.Nop(), nil)

	rec := httptest.NewRecorder()
	m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	})).ServeHTTP(rec, authedRequest("opaque-session-token"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireUserID(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireUserID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
}
