package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/stakepot/arena-server-go/internal/util"
)

// AdminMiddleware guards the operator endpoints with a shared password
// checked against a bcrypt hash. With no hash configured the endpoints
// are disabled outright.
type AdminMiddleware struct {
	passwordHash string
}

func NewAdminMiddleware(passwordHash string) *AdminMiddleware {
	return &AdminMiddleware{passwordHash: passwordHash}
}

func (m *AdminMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.passwordHash == "" {
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error": "Admin access is not configured",
			})
			return
		}

		password := r.Header.Get("X-Admin-Password")
		if password == "" || !util.CheckPasswordHash(password, m.passwordHash) {
			log.Warn().Str("path", r.URL.Path).Msg("admin middleware: rejected request")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid admin credentials",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
