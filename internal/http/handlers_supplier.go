package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"fornitori/internal/core"
)

type supplierRequest struct {
	Name                 string `json:"name"`
	DefaultPaymentMethod string `json:"defaultPaymentMethod"`
}

func (req supplierRequest) method() (core.PaymentMethod, error) {
	return core.ParsePaymentMethod(req.DefaultPaymentMethod)
}

func (s *Server) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, meta, err := s.deps.Suppliers.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setReadMeta(w, meta)
	if suppliers == nil {
		suppliers = []core.Supplier{}
	}
	writeJSON(w, http.StatusOK, suppliers)
}

func (s *Server) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	pm, err := req.method()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sup, err := s.deps.Suppliers.Create(r.Context(), sanitizeInput(req.Name), pm)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sup)
}

func (s *Server) handleUpdateSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	pm, err := req.method()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sup, err := s.deps.Suppliers.Update(r.Context(), mux.Vars(r)["id"], sanitizeInput(req.Name), pm)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sup)
}

func (s *Server) handleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Suppliers.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
