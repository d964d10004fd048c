package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmpeavlerjr72/vbt-api/internal/auth"
)

type fakeVerifier struct {
	userID string
	err    error
}

func (f *fakeVerifier) Verify(token string) (string, error) {
	return f.userID, f.err
}

func TestAuthCheck_ValidToken(t *testing.T) {
	h := NewAuthMiddlewareHandler(&fakeVerifier{userID: "coach-1"})

	var gotUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = auth.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/teams", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()

	h.AuthCheck()(next).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "coach-1", gotUserID)
}

func TestAuthCheck_MissingToken(t *testing.T) {
	h := NewAuthMiddlewareHandler(&fakeVerifier{userID: "coach-1"})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be called")
	})

	req := httptest.NewRequest("GET", "/teams", nil)
	rec := httptest.NewRecorder()

	h.AuthCheck()(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthCheck_InvalidToken(t *testing.T) {
	h := NewAuthMiddlewareHandler(&fakeVerifier{err: errors.New("bad signature")})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be called")
	})

	req := httptest.NewRequest("GET", "/teams", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()

	h.AuthCheck()(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthCheck_AllowedPaths(t *testing.T) {
	h := NewAuthMiddlewareHandler(&fakeVerifier{err: errors.New("should not be consulted")})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, path := range []string{"/health", "/device/roster/team-1", "/device/sets"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		h.AuthCheck()(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "path %s should skip auth", path)
	}
}

func TestAuthCheck_Options(t *testing.T) {
	h := NewAuthMiddlewareHandler(&fakeVerifier{err: errors.New("should not be consulted")})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be called for preflight")
	})

	req := httptest.NewRequest(http.MethodOptions, "/teams", nil)
	rec := httptest.NewRecorder()

	h.AuthCheck()(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Allow"))
}
