package models

import (
	"strings"
	"time"
)

// Restaurant is the aggregate root. It owns business hours, floors, the
// schema items placed on them, the spot inventory and the reservation ledger.
type Restaurant struct {
	ID                    int64                         `json:"id"`
	Name                  string                        `json:"name"`
	City                  string                        `json:"city"`
	PhoneNumber           string                        `json:"phoneNumber,omitempty"`
	IsActive              bool                          `json:"isActive"`
	AvgReservationMinutes int                           `json:"avgReservationMinutes"`
	BusinessHours         map[time.Weekday]BusinessHour `json:"businessHours"`
	SpecialDates          []SpecialDate                 `json:"specialDates"`
	Floors                []Floor                       `json:"floors"`
	Items                 []SchemaItem                  `json:"items"`
	Spots                 []Spot                        `json:"spots"`
	Reservations          []Reservation                 `json:"reservations"`
	Version               int64                         `json:"version"`
	UpdatedAt             time.Time                     `json:"updatedAt"`
}

// AvgReservationTime is the length of every reservation.
func (r *Restaurant) AvgReservationTime() time.Duration {
	return time.Duration(r.AvgReservationMinutes) * time.Minute
}

// InCity compares cities case-insensitively.
func (r *Restaurant) InCity(city string) bool {
	return strings.EqualFold(strings.TrimSpace(r.City), strings.TrimSpace(city))
}

// Spot returns the spot with id or nil.
func (r *Restaurant) Spot(id int64) *Spot {
	for i := range r.Spots {
		if r.Spots[i].ID == id {
			return &r.Spots[i]
		}
	}
	return nil
}

// Floor returns the floor with id or nil.
func (r *Restaurant) Floor(id int64) *Floor {
	for i := range r.Floors {
		if r.Floors[i].ID == id {
			return &r.Floors[i]
		}
	}
	return nil
}

// Reservation returns the reservation with id or nil.
func (r *Restaurant) Reservation(id int64) *Reservation {
	for i := range r.Reservations {
		if r.Reservations[i].ID == id {
			return &r.Reservations[i]
		}
	}
	return nil
}

// Item returns the schema item with id or nil.
func (r *Restaurant) Item(id int64) *SchemaItem {
	for i := range r.Items {
		if r.Items[i].ID == id {
			return &r.Items[i]
		}
	}
	return nil
}

// SpotsOnFloor returns ids of the spots placed on a floor.
func (r *Restaurant) SpotsOnFloor(floorID int64) []int64 {
	var ids []int64
	for _, s := range r.Spots {
		if s.FloorID == floorID {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// HaveReservationsInFuture reports whether any reservation linked to one of
// spotIDs starts after now.
func (r *Restaurant) HaveReservationsInFuture(spotIDs []int64, now time.Time) bool {
	for i := range r.Reservations {
		res := &r.Reservations[i]
		if !res.StartDateTime.After(now) {
			continue
		}
		for _, id := range spotIDs {
			if res.HasSpot(id) {
				return true
			}
		}
	}
	return false
}

// MaxID returns the highest id used by any entity of the aggregate.
func (r *Restaurant) MaxID() int64 {
	maxID := r.ID
	track := func(id int64) {
		if id > maxID {
			maxID = id
		}
	}
	for _, d := range r.SpecialDates {
		track(d.ID)
	}
	for _, f := range r.Floors {
		track(f.ID)
	}
	for _, it := range r.Items {
		track(it.ID)
	}
	for _, s := range r.Spots {
		track(s.ID)
	}
	for _, res := range r.Reservations {
		track(res.ID)
	}
	return maxID
}

// Clone returns a deep copy so callers can mutate a working set freely.
func (r *Restaurant) Clone() *Restaurant {
	if r == nil {
		return nil
	}
	c := *r
	if r.BusinessHours != nil {
		c.BusinessHours = make(map[time.Weekday]BusinessHour, len(r.BusinessHours))
		for k, v := range r.BusinessHours {
			c.BusinessHours[k] = v
		}
	}
	c.SpecialDates = cloneSlice(r.SpecialDates)
	c.Floors = cloneSlice(r.Floors)
	c.Spots = cloneSlice(r.Spots)
	c.Items = nil
	if r.Items != nil {
		c.Items = make([]SchemaItem, len(r.Items))
	}
	for i, it := range r.Items {
		if it.SpotID != nil {
			id := *it.SpotID
			it.SpotID = &id
		}
		c.Items[i] = it
	}
	c.Reservations = nil
	if r.Reservations != nil {
		c.Reservations = make([]Reservation, len(r.Reservations))
	}
	for i, res := range r.Reservations {
		res.SpotIDs = cloneSlice(res.SpotIDs)
		if res.VerificationCode != nil {
			code := *res.VerificationCode
			res.VerificationCode = &code
		}
		c.Reservations[i] = res
	}
	return &c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}
