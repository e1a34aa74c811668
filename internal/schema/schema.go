// Package schema reconciles floor plan edits with the spot inventory of a
// restaurant.
package schema

import (
	"fmt"
	"strings"
	"time"

	"restobook/internal/idgen"
	"restobook/internal/models"
)

// SpotInfo is the seating part of a table payload.
type SpotInfo struct {
	ID              *int64 `json:"id,omitempty"`
	Number          int    `json:"number"`
	Capacity        int    `json:"capacity"`
	MinPeopleNumber int    `json:"minPeopleNumber"`
}

// ItemPayload is a table, wall, wall item or item as exchanged with clients.
type ItemPayload struct {
	ID       *int64          `json:"id,omitempty"`
	FloorID  int64           `json:"floorId"`
	Position models.Position `json:"position"`
	Details  models.Details  `json:"details"`
	SubType  string          `json:"subType,omitempty"`
	SpotInfo *SpotInfo       `json:"spotInfo,omitempty"`
}

// Schema is the whole floor plan of a restaurant.
type Schema struct {
	Floors    []models.Floor `json:"floors,omitempty"`
	Tables    []ItemPayload  `json:"tables"`
	Walls     []ItemPayload  `json:"walls"`
	WallItems []ItemPayload  `json:"wallItems"`
	Items     []ItemPayload  `json:"items"`
}

// Get renders the current floor plan.
func Get(r *models.Restaurant) Schema {
	out := Schema{
		Floors:    append([]models.Floor{}, r.Floors...),
		Tables:    []ItemPayload{},
		Walls:     []ItemPayload{},
		WallItems: []ItemPayload{},
		Items:     []ItemPayload{},
	}
	for _, it := range r.Items {
		p := toPayload(r, it)
		switch it.Kind {
		case models.KindTable:
			out.Tables = append(out.Tables, p)
		case models.KindWall:
			out.Walls = append(out.Walls, p)
		case models.KindWallItem:
			out.WallItems = append(out.WallItems, p)
		case models.KindItem:
			out.Items = append(out.Items, p)
		}
	}
	return out
}

func toPayload(r *models.Restaurant, it models.SchemaItem) ItemPayload {
	id := it.ID
	p := ItemPayload{
		ID:       &id,
		FloorID:  it.FloorID,
		Position: it.Position,
		Details:  it.Details,
		SubType:  it.SubType,
	}
	if it.SpotID != nil {
		if spot := r.Spot(*it.SpotID); spot != nil {
			spotID := spot.ID
			p.SpotInfo = &SpotInfo{
				ID:              &spotID,
				Number:          spot.Number,
				Capacity:        spot.Capacity,
				MinPeopleNumber: spot.MinPeopleNumber,
			}
		}
	}
	return p
}

// AddFloor appends an empty floor.
func AddFloor(r *models.Restaurant, name string, ids idgen.Generator) (*models.Floor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("name", "floor name is required")
	}
	floor := models.Floor{ID: ids.Next(), Name: name}
	r.Floors = append(r.Floors, floor)
	return &floor, nil
}

// DeleteFloor removes a floor together with its items and spots. It fails
// while any spot on the floor has a reservation starting after now.
func DeleteFloor(r *models.Restaurant, floorID int64, now time.Time) error {
	if r.Floor(floorID) == nil {
		return models.NewNotFound("floor", floorID)
	}
	if r.HaveReservationsInFuture(r.SpotsOnFloor(floorID), now) {
		return &models.ConflictError{
			Resource: "floor",
			IDs:      []int64{floorID},
			Reason:   "there are reservations in the future including spots on that floor",
		}
	}

	floors := r.Floors[:0]
	for _, f := range r.Floors {
		if f.ID != floorID {
			floors = append(floors, f)
		}
	}
	r.Floors = floors

	items := r.Items[:0]
	for _, it := range r.Items {
		if it.FloorID != floorID {
			items = append(items, it)
		}
	}
	r.Items = items

	spots := r.Spots[:0]
	for _, s := range r.Spots {
		if s.FloorID != floorID {
			spots = append(spots, s)
		}
	}
	r.Spots = spots
	return nil
}

// DeleteSpot removes a spot and the tables referencing it. It fails while the
// spot has a reservation starting after now.
func DeleteSpot(r *models.Restaurant, spotID int64, now time.Time) error {
	if r.Spot(spotID) == nil {
		return models.NewNotFound("spot", spotID)
	}
	if r.HaveReservationsInFuture([]int64{spotID}, now) {
		return &models.ConflictError{
			Resource: "spot",
			IDs:      []int64{spotID},
			Reason:   "this spot has reservations in the future",
		}
	}

	spots := r.Spots[:0]
	for _, s := range r.Spots {
		if s.ID != spotID {
			spots = append(spots, s)
		}
	}
	r.Spots = spots

	items := r.Items[:0]
	for _, it := range r.Items {
		if it.SpotID == nil || *it.SpotID != spotID {
			items = append(items, it)
		}
	}
	r.Items = items
	return nil
}

// UpdateSpot changes the seating bounds of a spot, keeping its id.
func UpdateSpot(r *models.Restaurant, spotID int64, info SpotInfo, now time.Time) (*models.Spot, error) {
	spot := r.Spot(spotID)
	if spot == nil {
		return nil, models.NewNotFound("spot", spotID)
	}
	verr := &models.ValidationError{}
	validateSpotInfo(verr, "spotInfo", &info)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	if r.HaveReservationsInFuture([]int64{spotID}, now) {
		return nil, &models.ConflictError{
			Resource: "spot",
			IDs:      []int64{spotID},
			Reason:   "this spot has reservations in the future",
		}
	}

	spot.Number = info.Number
	spot.Capacity = info.Capacity
	spot.MinPeopleNumber = info.MinPeopleNumber
	out := *spot
	return &out, nil
}

func validateSpotInfo(verr *models.ValidationError, field string, info *SpotInfo) {
	if info == nil {
		verr.Add(field, "table must carry spot info")
		return
	}
	if info.Number < 0 {
		verr.Add(field+".number", "number cannot be negative")
	}
	if info.Capacity <= 0 {
		verr.Add(field+".capacity", "capacity must be positive")
	}
	if info.MinPeopleNumber <= 0 {
		verr.Add(field+".minPeopleNumber", "min people number must be positive")
	} else if info.MinPeopleNumber > info.Capacity {
		verr.Add(field+".minPeopleNumber", fmt.Sprintf("min people number %d exceeds capacity %d", info.MinPeopleNumber, info.Capacity))
	}
}
