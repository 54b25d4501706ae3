package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("correct password", func(t *testing.T) {
		mw := NewAdminMiddleware(string(hash))
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Admin-Password", "letmein")
		rec := httptest.NewRecorder()

		mw.Handler(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		mw := NewAdminMiddleware(string(hash))
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Admin-Password", "guess")
		rec := httptest.NewRecorder()

		mw.Handler(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		mw := NewAdminMiddleware(string(hash))
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()

		mw.Handler(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("no hash configured disables endpoints", func(t *testing.T) {
		mw := NewAdminMiddleware("")
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Admin-Password", "anything")
		rec := httptest.NewRecorder()

		mw.Handler(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
