package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"restobook/internal/audit"
	"restobook/internal/report"
)

const defaultEventsLimit = 100

// GET /panel/restaurants/{id}/events?limit=
func (s *HTTPServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := defaultEventsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit; expected a positive number")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"events": s.opts.Audit.Recent(id, limit)})
}

// GET /panel/restaurants/{id}/events/export
func (s *HTTPServer) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	book := report.NewWorkbook()
	defer book.Close()

	var buf bytes.Buffer
	if err := audit.WriteEntries(book, s.opts.Audit.Recent(id, 0)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if _, err := book.WriteTo(&buf); err != nil {
		writeServiceError(w, r, err)
		return
	}

	filename := audit.Filename(id, s.opts.Clock.Now().In(s.opts.Location))
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
