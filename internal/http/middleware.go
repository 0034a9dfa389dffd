package http

import (
	"net/http"

	"fornitori/internal/auth"
	applog "fornitori/internal/log"
)

const sessionCookie = "session"

// requireSession rejects requests without a live session and stores the
// session in the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeMessage(w, http.StatusUnauthorized, "authentication required")
			return
		}
		sess, err := s.deps.Auth.Authenticate(token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx := auth.WithSession(r.Context(), sess)
		logger := applog.FromContext(ctx).With(applog.FieldUsername, sess.Username)
		ctx = applog.NewContext(ctx, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := auth.FromContext(r.Context())
		if !ok || !sess.IsAdmin {
			s.writeError(w, r, errForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func session(r *http.Request) auth.Session {
	sess, _ := auth.FromContext(r.Context())
	return sess
}
