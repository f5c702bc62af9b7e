package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"agenda/internal/availability"
	"agenda/internal/db"
	"agenda/internal/events"
	"agenda/internal/metrics"
	"agenda/internal/model"
)

// CreateAppointmentRequest books a slot previously offered by the availability endpoint.
type CreateAppointmentRequest struct {
	ClientID     string    `json:"client_id"`
	ServiceID    string    `json:"service_id"`
	TeamMemberID string    `json:"team_member_id"`
	StartAt      time.Time `json:"start_at"` // RFC 3339
	Address      string    `json:"address,omitempty"`
}

// UpdateStatusRequest changes the status of an appointment.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// handleCreateAppointment stores a pending appointment.
// POST /api/v1/appointments
func (s *HTTPServer) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_appointment")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req CreateAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ClientID == "" || req.ServiceID == "" || req.TeamMemberID == "" || req.StartAt.IsZero() {
		writeError(w, http.StatusBadRequest, "client_id, service_id, team_member_id and start_at are required")
		return
	}
	if req.StartAt.Before(s.now()) {
		writeError(w, http.StatusBadRequest, "start_at is in the past")
		return
	}

	ctx := r.Context()
	service, err := s.store.GetService(ctx, req.ServiceID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !service.IsAvailable() {
		writeError(w, http.StatusBadRequest, "service is not available")
		return
	}
	member, err := s.store.GetTeamMember(ctx, req.TeamMemberID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !member.IsActive || !member.Offers(service.ID) {
		writeError(w, http.StatusBadRequest, "team member does not offer this service")
		return
	}

	offered, err := s.isOffered(ctx, service.ID, member.ID, req.StartAt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !offered {
		writeError(w, http.StatusConflict, "start_at is not an available slot")
		return
	}

	appt := &model.Appointment{
		ClientID:     req.ClientID,
		ServiceID:    service.ID,
		ServiceName:  service.Name,
		TeamMemberID: member.ID,
		Address:      req.Address,
		StartAt:      req.StartAt.UTC(),
		EndAt:        req.StartAt.UTC().Add(service.Duration()),
		Status:       model.StatusPending,
	}
	before, after := s.availability.AppointmentBuffers()
	if err := s.store.BookAppointment(ctx, appt, before, after); err != nil {
		if errors.Is(err, db.ErrSlotTaken) {
			writeError(w, http.StatusConflict, "slot is no longer available")
			return
		}
		s.fail(w, r, err)
		return
	}

	s.logger.Info().
		Str("appointment_id", appt.ID).
		Str("team_member_id", appt.TeamMemberID).
		Time("start_at", appt.StartAt).
		Msg("appointment created")
	s.publishAppointment(appt)
	writeJSON(w, http.StatusCreated, appt)
}

// handleGetAppointment returns one appointment.
// GET /api/v1/appointments/{id}
func (s *HTTPServer) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_appointment")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	appt, err := s.store.GetAppointment(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// handleAppointmentStatus confirms, cancels or completes an appointment.
// PATCH /api/v1/appointments/{id}/status
func (s *HTTPServer) handleAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("appointment_status")
	if r.Method != http.MethodPatch && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use PATCH")
		return
	}

	var req UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !model.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	appt, err := s.store.UpdateAppointmentStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info().Str("appointment_id", appt.ID).Str("status", appt.Status).Msg("appointment status changed")
	s.publishAppointment(appt)
	writeJSON(w, http.StatusOK, appt)
}

// isOffered reports whether the availability engine currently offers a slot
// of memberID starting exactly at start.
func (s *HTTPServer) isOffered(ctx context.Context, serviceID, memberID string, start time.Time) (bool, error) {
	result, err := s.availability.AvailableSlots(ctx, availability.Request{ServiceID: serviceID, TeamMemberID: memberID})
	if err != nil {
		return false, err
	}
	startMs := start.UnixMilli()
	for _, m := range result.TeamMembers {
		if m.TeamMemberID != memberID {
			continue
		}
		for _, slot := range m.Slots {
			if slot.StartAt == startMs {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *HTTPServer) publishAppointment(a *model.Appointment) {
	s.publish(events.AppointmentChanged, events.AppointmentPayload{
		AppointmentID: a.ID,
		ServiceID:     a.ServiceID,
		TeamMemberID:  a.TeamMemberID,
		Status:        a.Status,
	})
}
