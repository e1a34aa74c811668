// Package report renders reservation exports for restaurant staff.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"restobook/internal/models"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Filename names the export of one restaurant day, e.g. "reservations_1_2030-01-01.xlsx".
func Filename(restaurantID int64, date models.Date) string {
	return fmt.Sprintf("reservations_%d_%s.xlsx", restaurantID, date)
}

// WriteDay writes the reservations of a day followed by a per-state summary sheet.
func WriteDay(w SheetWriter, r *models.Restaurant, date models.Date, reservations []models.Reservation) error {
	if err := w.Sheet(ReservationsLayout(date)); err != nil {
		return err
	}

	counts := make(map[models.ReservationState]int)
	people := 0
	for _, res := range reservations {
		counts[res.State]++
		if res.HoldsSpots() {
			people += res.PeopleNumber
		}
		err := w.Row(
			res.ID,
			res.StartDateTime.Format("15:04"),
			res.EndDateTime.Format("15:04"),
			string(res.State),
			res.PeopleNumber,
			spotNumbers(r, res.SpotIDs),
			res.Customer.Name,
			res.Customer.PhoneNumber,
			res.Customer.Email,
			res.Note,
			res.IsVerified,
		)
		if err != nil {
			return fmt.Errorf("write reservation %d: %w", res.ID, err)
		}
	}

	if err := w.Sheet(SummaryLayout); err != nil {
		return err
	}
	states := make([]string, 0, len(counts))
	for state := range counts {
		states = append(states, string(state))
	}
	sort.Strings(states)
	for _, state := range states {
		if err := w.Row(state, counts[models.ReservationState(state)]); err != nil {
			return err
		}
	}
	return w.Row("Guests expected", people)
}

// spotNumbers renders the table numbers of the spots, falling back to the id
// for spots that were removed since.
func spotNumbers(r *models.Restaurant, ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if s := r.Spot(id); s != nil {
			parts = append(parts, strconv.Itoa(s.Number))
			continue
		}
		parts = append(parts, "#"+strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ", ")
}
