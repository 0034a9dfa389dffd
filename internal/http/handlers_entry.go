package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"fornitori/internal/core"
	"fornitori/internal/store"
)

// entryRequest is the body of create and update calls. On update, absent
// fields are left unchanged.
type entryRequest struct {
	Date          *string     `json:"date"`
	SupplierID    *string     `json:"supplierId"`
	Amount        *core.Money `json:"amount"`
	Description   *string     `json:"description"`
	PaymentMethod *string     `json:"paymentMethod"`
}

func (req entryRequest) update() (store.EntryUpdate, error) {
	u := store.EntryUpdate{
		Date:       trimmed(req.Date),
		SupplierID: trimmed(req.SupplierID),
		Amount:     req.Amount,
	}
	if req.Description != nil {
		d := sanitizeInput(*req.Description)
		u.Description = &d
	}
	if req.PaymentMethod != nil {
		pm, err := core.ParsePaymentMethod(*req.PaymentMethod)
		if err != nil {
			return store.EntryUpdate{}, err
		}
		u.PaymentMethod = &pm
	}
	return u, nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := sanitizeInput(*p)
	return &v
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	year, err := s.yearParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, meta, err := s.deps.Entries.List(r.Context(), year)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setReadMeta(w, meta)
	if entries == nil {
		entries = []core.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Amount == nil {
		s.writeError(w, r, core.ErrInvalidAmount)
		return
	}
	u, err := req.update()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.deps.Entries.Create(r.Context(), u.Apply(core.Entry{}))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := req.update()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.deps.Entries.Update(r.Context(), mux.Vars(r)["id"], u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Entries.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// yearParam returns the ?year query parameter, falling back to the year
// selected in the session. year=0 lists every year.
func (s *Server) yearParam(r *http.Request) (int, error) {
	if _, ok := r.URL.Query()["year"]; ok {
		return queryInt(r, "year")
	}
	return session(r).SelectedYear, nil
}
