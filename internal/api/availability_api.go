package api

import (
	"bytes"
	"fmt"
	"net/http"

	"agenda/internal/availability"
	"agenda/internal/metrics"
	"agenda/internal/report"
)

// handleAvailability returns bookable slots grouped per team member.
// POST /api/v1/availability
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req availability.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ServiceID == "" {
		writeError(w, http.StatusBadRequest, "service_id is required")
		return
	}

	res, err := s.availability.AvailableSlots(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleTime returns the business clock.
// GET /api/v1/time
func (s *HTTPServer) handleTime(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("time")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.availability.CurrentTime(r.Context()))
}

// handleAvailabilityReport renders the slots of a service as a spreadsheet.
// GET /api/v1/report/availability.xlsx?service_id=...&team_member_id=...
func (s *HTTPServer) handleAvailabilityReport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_report")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req := availability.Request{
		ServiceID:    r.URL.Query().Get("service_id"),
		TeamMemberID: r.URL.Query().Get("team_member_id"),
	}
	if req.ServiceID == "" {
		writeError(w, http.StatusBadRequest, "service_id is required")
		return
	}

	res, err := s.availability.AvailableSlots(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteAvailability(&buf, res); err != nil {
		s.fail(w, r, fmt.Errorf("render availability report: %w", err))
		return
	}
	writeXLSX(w, fmt.Sprintf("disponibilidad_%s.xlsx", res.ServiceID), buf.Bytes())
}

// handleTablesReport dumps the database tables as a spreadsheet.
// GET /api/v1/report/tables.xlsx
func (s *HTTPServer) handleTablesReport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("tables_report")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var buf bytes.Buffer
	if _, err := report.ExportTables(r.Context(), s.store, &buf); err != nil {
		s.fail(w, r, fmt.Errorf("export tables: %w", err))
		return
	}
	writeXLSX(w, fmt.Sprintf("agenda_%s.xlsx", s.now().Format("20060102_150405")), buf.Bytes())
}

func writeXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
