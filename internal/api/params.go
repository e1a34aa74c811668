package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"restobook/internal/booking"
	"restobook/internal/models"
)

// instantLayouts are tried in order for date-time query values without an offset.
var instantLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// parseInstant accepts RFC 3339 or a local date-time interpreted in loc.
// The result is always expressed in loc, whatever offset the client sent,
// since opening hours and calendar days are read off its wall clock.
func parseInstant(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date; expected RFC 3339 or YYYY-MM-DDTHH:MM")
}

func (s *HTTPServer) queryInstant(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	return parseInstant(raw, s.opts.Location)
}

// decodeReservation reads a reservation request body and moves its start
// into the restaurant location.
func (s *HTTPServer) decodeReservation(w http.ResponseWriter, r *http.Request) (booking.Request, bool) {
	var req booking.Request
	if !decodeJSON(w, r, &req) {
		return req, false
	}
	req.DateTime = req.DateTime.In(s.opts.Location)
	return req, true
}

func queryDate(r *http.Request) (models.Date, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return "", fmt.Errorf("date is required")
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return "", fmt.Errorf("invalid date format; expected YYYY-MM-DD")
	}
	return d, nil
}

// queryPeople reads the party size. Missing means any party size.
func queryPeople(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("people")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid people; expected a non-negative number")
	}
	return n, nil
}
