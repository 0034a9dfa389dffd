package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"fornitori/internal/auth"
	"fornitori/internal/core"
	applog "fornitori/internal/log"
	"fornitori/internal/report"
	"fornitori/internal/services"
	"fornitori/internal/store"
)

const (
	HeaderDataSource   = "X-Data-Source"
	HeaderDataStale    = "X-Data-Stale"
	HeaderMirrorSaved  = "X-Mirror-Saved-At"
	HeaderReportStatus = "X-Report-Status"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps err to a status code and logs it at a level matching the
// kind of failure: caller mistakes at warn, store outages and bugs at error.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := applog.FromContext(r.Context())
	fields := applog.NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "")
	if sess, ok := auth.FromContext(r.Context()); ok {
		fields.WithUsername(sess.Username)
	}

	msg := err.Error()
	switch {
	case status >= 500:
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err,
			r.Method+" "+r.URL.Path, fields)
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	default:
		logger.WarnContext(r.Context(), "Request rejected", fields.WithError(err).ToSlice()...)
	}
	writeMessage(w, status, msg)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, report.ErrInvalidSpec),
		errors.Is(err, auth.ErrInvalidYear):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSessionExpired),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden),
		errors.Is(err, services.ErrAdminProtected),
		errors.Is(err, services.ErrSelfDelete):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, services.ErrSupplierExists),
		errors.Is(err, services.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidPaymentMethod),
		errors.Is(err, core.ErrEmptySupplierName),
		errors.Is(err, core.ErrMissingSupplier),
		errors.Is(err, core.ErrEmptyUsername),
		errors.Is(err, core.ErrTooLong),
		errors.Is(err, services.ErrUnknownSupplier),
		errors.Is(err, services.ErrUsernameTooShort),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrPasswordMismatch),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, errValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// setReadMeta labels responses served from the local mirror.
func setReadMeta(w http.ResponseWriter, meta store.ReadMeta) {
	if meta.Source == "" {
		return
	}
	w.Header().Set(HeaderDataSource, string(meta.Source))
	w.Header().Set(HeaderDataStale, strconv.FormatBool(meta.Stale))
	if !meta.SavedAt.IsZero() {
		w.Header().Set(HeaderMirrorSaved, meta.SavedAt.UTC().Format(http.TimeFormat))
	}
}
