package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"restobook/internal/models"
	"restobook/internal/report"
	"restobook/internal/schema"
	"restobook/internal/service"
)

// GET /panel/restaurants/{id}/reservations?date=
func (s *HTTPServer) handleListReservations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := queryDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := s.svc.Reservations(r.Context(), id, date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reservations": list})
}

// POST /panel/restaurants/{id}/reservations
func (s *HTTPServer) handleCreateStaffReservation(w http.ResponseWriter, r *http.Request) {
	s.createReservation(w, r, s.svc.CreateStaffReservation)
}

// GET /panel/restaurants/{id}/reservations/queue
func (s *HTTPServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := s.svc.Queue(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reservations": list})
}

// handleExport returns the reservations of a day as an xlsx attachment.
// GET /panel/restaurants/{id}/reservations/export?date=
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := queryDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := s.svc.ExportReservations(r.Context(), id, date, &buf); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(id, date)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// GET /panel/restaurants/{id}/reservations/{reservationID}
func (s *HTTPServer) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	id, resID, ok := reservationPath(w, r)
	if !ok {
		return
	}

	res, err := s.svc.Reservation(r.Context(), id, resID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PUT /panel/restaurants/{id}/reservations/{reservationID}
func (s *HTTPServer) handleEditReservation(w http.ResponseWriter, r *http.Request) {
	id, resID, ok := reservationPath(w, r)
	if !ok {
		return
	}
	req, ok := s.decodeReservation(w, r)
	if !ok {
		return
	}

	res, err := s.svc.EditReservation(r.Context(), id, resID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DELETE /panel/restaurants/{id}/reservations/{reservationID}
func (s *HTTPServer) handleCancelReservation(w http.ResponseWriter, r *http.Request) {
	id, resID, ok := reservationPath(w, r)
	if !ok {
		return
	}

	res, err := s.svc.CancelReservation(r.Context(), id, resID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type stateRequest struct {
	State string `json:"state"`
}

// PUT /panel/restaurants/{id}/reservations/{reservationID}/state
func (s *HTTPServer) handleChangeState(w http.ResponseWriter, r *http.Request) {
	id, resID, ok := reservationPath(w, r)
	if !ok {
		return
	}
	var req stateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	to, valid := models.ParseReservationState(strings.ToUpper(strings.TrimSpace(req.State)))
	if !valid {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown state %q", req.State))
		return
	}

	res, err := s.svc.ChangeReservationState(r.Context(), id, resID, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func reservationPath(w http.ResponseWriter, r *http.Request) (id, reservationID int64, ok bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	reservationID, err = pathID(r, "reservationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return id, reservationID, true
}

func spotPath(w http.ResponseWriter, r *http.Request) (id, spotID int64, ok bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	spotID, err = pathID(r, "spotID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return id, spotID, true
}

// GET /panel/restaurants/{id}/spots/{spotID}/reservations?date=
func (s *HTTPServer) handleSpotReservations(w http.ResponseWriter, r *http.Request) {
	id, spotID, ok := spotPath(w, r)
	if !ok {
		return
	}
	date, err := queryDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := s.svc.SpotReservations(r.Context(), id, spotID, date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reservations": list})
}

// PUT /panel/restaurants/{id}/spots/{spotID}
func (s *HTTPServer) handleUpdateSpot(w http.ResponseWriter, r *http.Request) {
	id, spotID, ok := spotPath(w, r)
	if !ok {
		return
	}
	var info schema.SpotInfo
	if !decodeJSON(w, r, &info) {
		return
	}

	spot, err := s.svc.UpdateSpot(r.Context(), id, spotID, info)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, spot)
}

// DELETE /panel/restaurants/{id}/spots/{spotID}
func (s *HTTPServer) handleDeleteSpot(w http.ResponseWriter, r *http.Request) {
	id, spotID, ok := spotPath(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteSpot(r.Context(), id, spotID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /panel/restaurants/{id}/schema
func (s *HTTPServer) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := s.svc.Schema(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// PUT /panel/restaurants/{id}/schema
func (s *HTTPServer) handleUpdateSchema(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var proposal schema.Schema
	if !decodeJSON(w, r, &proposal) {
		return
	}

	plan, err := s.svc.UpdateSchema(r.Context(), id, proposal)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

type floorRequest struct {
	Name string `json:"name"`
}

// POST /panel/restaurants/{id}/floors
func (s *HTTPServer) handleAddFloor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req floorRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	floor, err := s.svc.AddFloor(r.Context(), id, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, floor)
}

// DELETE /panel/restaurants/{id}/floors/{floorID}
func (s *HTTPServer) handleDeleteFloor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	floorID, err := pathID(r, "floorID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.DeleteFloor(r.Context(), id, floorID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /panel/restaurants/{id}/base-info
func (s *HTTPServer) handleBaseInfo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.svc.BaseInfo(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// PUT /panel/restaurants/{id}/base-info
func (s *HTTPServer) handleUpdateBaseInfo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var info service.BaseInfo
	if !decodeJSON(w, r, &info) {
		return
	}

	updated, err := s.svc.UpdateBaseInfo(r.Context(), id, info)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
