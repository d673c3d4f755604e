package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/sourcemeter/server/internal/api/problem"
)

// AdminAuth guards mutating endpoints with a single bearer token checked
// against a bcrypt hash from configuration. An empty hash disables the
// guarded endpoints outright rather than leaving them open.
func AdminAuth(tokenHash, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" {
				problem.Write(w, r, http.StatusForbidden,
					"https://sourcemeter.dev/problems/admin-disabled",
					"Admin endpoints disabled", problem.ErrForbidden, env)
				return
			}

			token := bearerToken(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
				problem.Write(w, r, http.StatusUnauthorized,
					"https://sourcemeter.dev/problems/unauthorized",
					"Missing admin token", problem.ErrUnauthorized, env)
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)); err != nil {
				problem.Write(w, r, http.StatusUnauthorized,
					"https://sourcemeter.dev/problems/unauthorized",
					"Invalid admin token", problem.ErrUnauthorized, env)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
