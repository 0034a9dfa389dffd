package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"fornitori/internal/core"
	applog "fornitori/internal/log"
	"fornitori/internal/report"
)

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	year, err := s.yearParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	month, err := queryInt(r, "month")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if month < 0 || month > 12 {
		s.writeError(w, r, fmt.Errorf("%w: month must be between 1 and 12", errBadRequest))
		return
	}
	f := core.Filter{Year: year, Month: month, Query: sanitizeInput(r.URL.Query().Get("q"))}

	agg, meta, err := s.deps.Reports.Aggregate(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setReadMeta(w, meta)
	writeJSON(w, http.StatusOK, agg)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year := q.Get("year")
	if _, ok := q["year"]; !ok {
		year = strconv.Itoa(session(r).SelectedYear)
	}
	spec, err := report.ParseSpec(q.Get("kind"), q.Get("period"), year, q.Get("month"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	wb, meta, err := s.deps.Reports.Export(r.Context(), spec)
	if errors.Is(err, report.ErrNoData) {
		setReadMeta(w, meta)
		w.Header().Set(HeaderReportStatus, "no-data")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer wb.Close()

	body, err := wb.Bytes()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setReadMeta(w, meta)
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", wb.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set(HeaderReportStatus, "ok")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Export download interrupted",
			applog.FieldError, err.Error())
	}
}
