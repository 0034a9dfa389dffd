package http

import (
	"net/http"
	"time"

	"fornitori/internal/auth"
	applog "fornitori/internal/log"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Year     int    `json:"year"`
}

type sessionResponse struct {
	Token   string       `json:"token,omitempty"`
	Session auth.Session `json:"session"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	token, sess, err := s.deps.Auth.Login(r.Context(), sanitizeInput(req.Username), req.Password, req.Year)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, Session: sess})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Auth.Logout(bearerToken(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Session closed",
		applog.FieldOperation, applog.OpLogout)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{Session: session(r)})
}

type setYearRequest struct {
	Year int `json:"year"`
}

func (s *Server) handleSetYear(w http.ResponseWriter, r *http.Request) {
	var req setYearRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.deps.Auth.SetYear(bearerToken(r), req.Year)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess})
}
