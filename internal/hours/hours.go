// Package hours resolves and validates restaurant opening hours.
package hours

import (
	"fmt"
	"strings"
	"time"

	"restobook/internal/idgen"
	"restobook/internal/models"
)

// Weekdays lists the days in the order they are validated and reported.
var Weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// DayName returns the upper-case weekday name used in error fields.
func DayName(d time.Weekday) string {
	return strings.ToUpper(d.String())
}

// Resolve returns the rule that applies to a calendar date.
// A special date for the day wins over the weekday rule.
func Resolve(r *models.Restaurant, day time.Time) (models.BusinessHour, bool) {
	date := models.DateOf(day)
	for _, sd := range r.SpecialDates {
		if sd.Date == date {
			return sd.BusinessHour, true
		}
	}
	bh, ok := r.BusinessHours[day.Weekday()]
	return bh, ok
}

// IsOpenAt reports whether a reservation starting at instant fits in the
// opening hours: open <= time of day <= close - avg, both bounds inclusive.
func IsOpenAt(r *models.Restaurant, instant time.Time) bool {
	bh, ok := Resolve(r, instant)
	if !ok || bh.IsClosed {
		return false
	}

	h, m, s := instant.Clock()
	offset := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(instant.Nanosecond())

	first := bh.OpenTime.Duration()
	last := bh.CloseTime.Duration() - r.AvgReservationTime()
	return offset >= first && offset <= last
}

// Window returns the first and last reservation start on day.
// ok is false when the restaurant does not take reservations that day.
func Window(r *models.Restaurant, day time.Time) (first, last time.Time, ok bool) {
	bh, found := Resolve(r, day)
	if !found || bh.IsClosed {
		return time.Time{}, time.Time{}, false
	}
	first = bh.OpenTime.On(day)
	last = bh.CloseTime.On(day).Add(-r.AvgReservationTime())
	if last.Before(first) {
		return time.Time{}, time.Time{}, false
	}
	return first, last, true
}

// ValidateBusinessHours checks that every weekday has a rule and that open
// days close after they open.
func ValidateBusinessHours(rules map[time.Weekday]models.BusinessHour) error {
	verr := &models.ValidationError{}
	for _, day := range Weekdays {
		field := "businessHours." + DayName(day)
		bh, ok := rules[day]
		if !ok {
			verr.Add(field, fmt.Sprintf("missing business hours for %s", DayName(day)))
			continue
		}
		if bh.IsClosed {
			continue
		}
		if bh.CloseTime <= bh.OpenTime {
			verr.Add(field, "close time must be greater than open time")
		}
	}
	return verr.OrNil()
}

// ReconcileSpecialDates merges the proposed special dates into the existing
// ones. A proposed entry matches an existing one by id first, then by date;
// matches keep their id, unmatched proposals get a fresh id and existing
// entries left unmatched are dropped. Nothing is returned on validation failure.
func ReconcileSpecialDates(existing, proposed []models.SpecialDate, ids idgen.Generator) ([]models.SpecialDate, error) {
	if err := validateSpecialDates(proposed); err != nil {
		return nil, err
	}

	used := make(map[int]bool, len(existing))
	find := func(match func(models.SpecialDate) bool) int {
		for i, e := range existing {
			if !used[i] && match(e) {
				return i
			}
		}
		return -1
	}

	result := make([]models.SpecialDate, 0, len(proposed))
	for _, p := range proposed {
		idx := -1
		if p.ID != 0 {
			idx = find(func(e models.SpecialDate) bool { return e.ID == p.ID })
		}
		if idx < 0 {
			idx = find(func(e models.SpecialDate) bool { return e.Date == p.Date })
		}

		if idx >= 0 {
			used[idx] = true
			result = append(result, models.SpecialDate{
				ID:           existing[idx].ID,
				Date:         p.Date,
				BusinessHour: p.BusinessHour,
			})
			continue
		}

		result = append(result, models.SpecialDate{
			ID:           ids.Next(),
			Date:         p.Date,
			BusinessHour: p.BusinessHour,
		})
	}
	return result, nil
}

func validateSpecialDates(proposed []models.SpecialDate) error {
	verr := &models.ValidationError{}
	seen := make(map[models.Date]bool, len(proposed))
	for i, p := range proposed {
		field := fmt.Sprintf("specialDates[%d]", i)
		if _, err := models.ParseDate(string(p.Date)); err != nil {
			verr.Add(field+".date", err.Error())
			continue
		}
		field = "specialDates." + string(p.Date)
		if seen[p.Date] {
			verr.Add(field, "duplicate special date")
			continue
		}
		seen[p.Date] = true
		if !p.BusinessHour.IsClosed && p.BusinessHour.CloseTime <= p.BusinessHour.OpenTime {
			verr.Add(field, "close time must be greater than open time")
		}
	}
	return verr.OrNil()
}
