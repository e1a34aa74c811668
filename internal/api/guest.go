package api

import (
	"context"
	"net/http"
	"strings"

	"restobook/internal/booking"
	"restobook/internal/models"
)

// handleSearch partitions the restaurants of a city by availability.
// GET /api/restaurants/search?city=&date=&people=
func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		writeError(w, http.StatusBadRequest, "city is required")
		return
	}
	instant, err := s.queryInstant(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	people, err := queryPeople(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.svc.Search(r.Context(), city, instant, people)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GET /api/restaurants/{id}/availability?date=&people=
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	instant, err := s.queryInstant(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	people, err := queryPeople(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.svc.Availability(r.Context(), id, instant, people)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"availability": result})
}

// GET /api/restaurants/{id}/spots?date=&people=
func (s *HTTPServer) handleAvailableSpots(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	instant, err := s.queryInstant(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	people, err := queryPeople(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	spots, err := s.svc.AvailableSpots(r.Context(), id, instant, people)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"spots": spots})
}

// handleAvailableDates lists bookable start times per day. Without a date the
// listing starts now.
// GET /api/restaurants/{id}/available-dates?date=&people=
func (s *HTTPServer) handleAvailableDates(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	from := s.opts.Clock.Now().In(s.opts.Location)
	if raw := r.URL.Query().Get("date"); raw != "" {
		if from, err = parseInstant(raw, s.opts.Location); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	people, err := queryPeople(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	days, err := s.svc.AvailableDates(r.Context(), id, from, people)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"dates": days})
}

// GET /api/restaurants/{id}/spots/{spotID}?date=
func (s *HTTPServer) handleSpotDay(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	spotID, err := pathID(r, "spotID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := queryDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	day, err := s.svc.SpotDay(r.Context(), id, spotID, date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// POST /api/restaurants/{id}/reservations
func (s *HTTPServer) handleCreateGuestReservation(w http.ResponseWriter, r *http.Request) {
	s.createReservation(w, r, s.svc.CreateGuestReservation)
}

func (s *HTTPServer) createReservation(
	w http.ResponseWriter,
	r *http.Request,
	create func(ctx context.Context, id int64, req booking.Request) (*models.Reservation, error),
) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, ok := s.decodeReservation(w, r)
	if !ok {
		return
	}

	res, err := create(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
