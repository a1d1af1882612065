package httpapi

import (
	"context"
	"net/http"
	"strings"

	"taskboard/internal/model"
)

type contextKey int

const userKey contextKey = iota

// requireUser resolves the bearer token and stores the acting user in the
// request context.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.auth.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, *user)))
	})
}

func actorFrom(r *http.Request) model.User {
	return r.Context().Value(userKey).(model.User)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}
