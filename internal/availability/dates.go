package availability

import (
	"time"

	"restobook/internal/hours"
	"restobook/internal/models"
)

const (
	DefaultDays = 7
	DefaultStep = 15 * time.Minute
)

// DayTimes lists the reservation starts with an AVAILABLE tier on a date.
type DayTimes struct {
	Date  models.Date        `json:"date"`
	Times []models.TimeOfDay `json:"times"`
}

// AvailableDates walks days calendar days starting at from's date and
// returns, per day, every start time on the step grid (anchored at opening
// time) for which Get reports AVAILABLE. Starts before from are skipped.
func AvailableDates(r *models.Restaurant, from time.Time, partyOf, days int, step time.Duration) []DayTimes {
	if days <= 0 {
		days = DefaultDays
	}
	if step <= 0 {
		step = DefaultStep
	}

	midnight := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	out := make([]DayTimes, 0, days)
	for d := 0; d < days; d++ {
		day := midnight.AddDate(0, 0, d)
		entry := DayTimes{Date: models.DateOf(day), Times: []models.TimeOfDay{}}

		first, last, ok := hours.Window(r, day)
		if ok {
			for cursor := first; !cursor.After(last); cursor = cursor.Add(step) {
				if cursor.Before(from) {
					continue
				}
				if Get(r, cursor, partyOf) == models.Available {
					entry.Times = append(entry.Times, models.TimeOfDayOf(cursor))
				}
			}
		}
		out = append(out, entry)
	}
	return out
}

// SpotDay is a spot together with its reservations on one date.
type SpotDay struct {
	Spot         models.Spot          `json:"spot"`
	Date         models.Date          `json:"date"`
	Reservations []models.Reservation `json:"reservations"`
}

// GetSpotDay returns the spot and the reservations starting on date that hold it.
func GetSpotDay(r *models.Restaurant, spotID int64, date models.Date) (*SpotDay, error) {
	spot := r.Spot(spotID)
	if spot == nil {
		return nil, models.NewNotFound("spot", spotID)
	}

	out := &SpotDay{Spot: *spot, Date: date, Reservations: []models.Reservation{}}
	for _, res := range r.Reservations {
		if models.DateOf(res.StartDateTime) == date && res.HasSpot(spotID) {
			out.Reservations = append(out.Reservations, res)
		}
	}
	return out, nil
}
