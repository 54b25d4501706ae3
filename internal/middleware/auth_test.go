package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/stakepot/arena-server-go/internal/model"
	"github.com/stakepot/arena-server-go/internal/repository"
)

type stubUserRepo struct {
	repository.UserRepository

	users map[string]*model.User
	err   error
}

func (s *stubUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.users[id], nil
}

func (s *stubUserRepo) WithTx(tx *sqlx.Tx) repository.UserRepository { return s }

func okHandler(captured **model.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = GetUser(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	repo := &stubUserRepo{users: map[string]*model.User{
		"user-1": {ID: "user-1"},
	}}
	mw := NewAuthMiddleware(repo)

	t.Run("valid token resolves user", func(t *testing.T) {
		var got *model.User
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer user-1")
		rec := httptest.NewRecorder()

		mw.Handler(okHandler(&got)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotNil(t, got)
		assert.Equal(t, "user-1", got.ID)
	})

	t.Run("missing token", func(t *testing.T) {
		var got *model.User
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		mw.Handler(okHandler(&got)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, got)
	})

	t.Run("unknown token", func(t *testing.T) {
		var got *model.User
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()

		mw.Handler(okHandler(&got)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, got)
	})

	t.Run("repository error", func(t *testing.T) {
		broken := NewAuthMiddleware(&stubUserRepo{err: assert.AnError})
		var got *model.User
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer user-1")
		rec := httptest.NewRecorder()

		broken.Handler(okHandler(&got)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestGetUserWithoutContextValue(t *testing.T) {
	assert.Nil(t, GetUser(context.Background()))
}
