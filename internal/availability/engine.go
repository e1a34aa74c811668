// Package availability classifies restaurants and spots for a party at a
// point in time.
package availability

import (
	"time"

	"restobook/internal/hours"
	"restobook/internal/models"
)

// SpotInfo is the per-spot classification.
type SpotInfo struct {
	SpotID int64               `json:"id"`
	State  models.Availability `json:"state"`
}

// CandidateInterval is the span a reservation starting at instant would hold.
func CandidateInterval(r *models.Restaurant, instant time.Time) models.TimeInterval {
	return models.TimeInterval{Start: instant, End: instant.Add(r.AvgReservationTime())}
}

// TakenSpotsAt returns the spots held by reservations overlapping a
// reservation starting at instant. excludeID skips one reservation, which
// lets an edit keep the spots it already holds; pass 0 to exclude nothing.
func TakenSpotsAt(r *models.Restaurant, instant time.Time, excludeID int64) map[int64]bool {
	return TakenSpotsIn(r, CandidateInterval(r, instant), excludeID)
}

// TakenSpotsIn is TakenSpotsAt for an explicit interval.
func TakenSpotsIn(r *models.Restaurant, candidate models.TimeInterval, excludeID int64) map[int64]bool {
	taken := make(map[int64]bool)
	for i := range r.Reservations {
		res := &r.Reservations[i]
		if res.ID == excludeID || !res.HoldsSpots() {
			continue
		}
		if !models.Overlaps(res.Interval(), candidate) {
			continue
		}
		for _, id := range res.SpotIDs {
			taken[id] = true
		}
	}
	return taken
}

// Get returns the availability tier of the restaurant for partyOf at instant.
// Free spots are scanned in inventory order; the first spot that fits returns
// AVAILABLE, a spot that only fits loosely is remembered as POSSIBLE.
func Get(r *models.Restaurant, instant time.Time, partyOf int) models.Availability {
	if !hours.IsOpenAt(r, instant) {
		return models.Closed
	}

	taken := TakenSpotsAt(r, instant, 0)
	possible := false
	for _, spot := range r.Spots {
		if taken[spot.ID] {
			continue
		}
		if spot.Fits(partyOf) {
			return models.Available
		}
		if spot.FitsLoosely(partyOf) {
			possible = true
		}
	}

	if possible {
		return models.Possible
	}
	return models.NotAvailable
}

// SpotsAt classifies every spot for partyOf at instant. A party of 0 asks
// only whether the spot is free. All spots are NOT_AVAILABLE while closed.
func SpotsAt(r *models.Restaurant, instant time.Time, partyOf int) []SpotInfo {
	infos := make([]SpotInfo, 0, len(r.Spots))
	if !hours.IsOpenAt(r, instant) {
		for _, spot := range r.Spots {
			infos = append(infos, SpotInfo{SpotID: spot.ID, State: models.NotAvailable})
		}
		return infos
	}

	taken := TakenSpotsAt(r, instant, 0)
	for _, spot := range r.Spots {
		infos = append(infos, SpotInfo{SpotID: spot.ID, State: classify(spot, taken[spot.ID], partyOf)})
	}
	return infos
}

func classify(spot models.Spot, taken bool, partyOf int) models.Availability {
	switch {
	case taken:
		return models.NotAvailable
	case partyOf == 0:
		return models.Available
	case spot.Fits(partyOf):
		return models.Available
	case spot.FitsLoosely(partyOf):
		return models.Possible
	default:
		return models.NotAvailable
	}
}
