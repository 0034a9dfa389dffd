package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"fornitori/internal/auth"
	"fornitori/internal/core"
)

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	Current string `json:"current"`
	New     string `json:"new"`
	Confirm string `json:"confirm"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, meta, err := s.deps.Users.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setReadMeta(w, meta)
	if users == nil {
		users = []core.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.deps.Users.Create(r.Context(), sanitizeInput(req.Username), req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Users.Delete(r.Context(), mux.Vars(r)["id"], session(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	err := s.deps.Users.ChangePassword(r.Context(), session(r).Username, req.Current, req.New, req.Confirm)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		// The session is valid; a wrong current password is an input error.
		err = fmt.Errorf("%w: current password is incorrect", errValidation)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
