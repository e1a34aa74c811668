package schema

import (
	"fmt"

	"restobook/internal/idgen"
	"restobook/internal/models"
)

type plannedTable struct {
	payload ItemPayload
	match   *models.SchemaItem
}

// Update applies a proposed floor plan to r.
//
// Tables are matched to existing tables by id. A matched table is updated in
// place and keeps its spot, so reservations holding the spot stay valid. An
// unmatched table becomes a new table with a new spot unless its spot id
// names a spot that already exists. Existing tables missing from the proposal
// are kept where they are; removing a table goes through DeleteSpot. Walls,
// wall items and items are replaced per floor: on every floor the proposal
// mentions (in its floors or through any item) the submitted fixtures become
// the new list, fixtures on other floors are left alone.
//
// The proposal is validated as a whole before anything is changed.
func Update(r *models.Restaurant, proposal Schema, ids idgen.Generator) (Schema, error) {
	tables, err := plan(r, proposal)
	if err != nil {
		return Schema{}, err
	}

	matched := make(map[int64]bool, len(tables))
	items := make([]models.SchemaItem, 0, len(r.Items)+len(proposal.Tables))

	for _, t := range tables {
		info := t.payload.SpotInfo
		if t.match != nil {
			matched[t.match.ID] = true
			item := *t.match
			item.FloorID = t.payload.FloorID
			item.Position = t.payload.Position
			item.Details = t.payload.Details
			item.SubType = t.payload.SubType
			if item.SpotID != nil {
				if spot := r.Spot(*item.SpotID); spot != nil {
					spot.Number = info.Number
					spot.Capacity = info.Capacity
					spot.MinPeopleNumber = info.MinPeopleNumber
					spot.FloorID = item.FloorID
				}
			}
			items = append(items, item)
			continue
		}

		spot := models.Spot{
			ID:              ids.Next(),
			Number:          info.Number,
			Capacity:        info.Capacity,
			MinPeopleNumber: info.MinPeopleNumber,
			FloorID:         t.payload.FloorID,
		}
		r.Spots = append(r.Spots, spot)
		spotID := spot.ID
		items = append(items, models.SchemaItem{
			ID:       ids.Next(),
			FloorID:  t.payload.FloorID,
			Kind:     models.KindTable,
			Position: t.payload.Position,
			Details:  t.payload.Details,
			SubType:  t.payload.SubType,
			SpotID:   &spotID,
		})
	}

	for _, it := range r.Items {
		if it.IsTable() && !matched[it.ID] {
			items = append(items, it)
		}
	}

	touched := touchedFloors(proposal)
	used := make(map[int64]bool)
	for _, it := range r.Items {
		if !it.IsTable() && !touched[it.FloorID] {
			used[it.ID] = true
			items = append(items, it)
		}
	}

	fixtures := func(kind models.ItemKind, list []ItemPayload) {
		for _, p := range list {
			id := int64(0)
			if p.ID != nil && !used[*p.ID] {
				if existing := r.Item(*p.ID); existing != nil && existing.Kind == kind {
					id = existing.ID
				}
			}
			if id == 0 {
				id = ids.Next()
			}
			used[id] = true
			items = append(items, models.SchemaItem{
				ID:       id,
				FloorID:  p.FloorID,
				Kind:     kind,
				Position: p.Position,
				Details:  p.Details,
				SubType:  p.SubType,
			})
		}
	}
	fixtures(models.KindWall, proposal.Walls)
	fixtures(models.KindWallItem, proposal.WallItems)
	fixtures(models.KindItem, proposal.Items)

	r.Items = items
	return Get(r), nil
}

func touchedFloors(proposal Schema) map[int64]bool {
	touched := make(map[int64]bool)
	for _, f := range proposal.Floors {
		touched[f.ID] = true
	}
	for _, list := range [][]ItemPayload{proposal.Tables, proposal.Walls, proposal.WallItems, proposal.Items} {
		for _, p := range list {
			touched[p.FloorID] = true
		}
	}
	return touched
}

// plan validates the proposal and pairs every proposed table with the
// existing table it updates, if any.
func plan(r *models.Restaurant, proposal Schema) ([]plannedTable, error) {
	verr := &models.ValidationError{}

	checkFloor := func(field string, floorID int64) {
		if r.Floor(floorID) == nil {
			verr.Add(field+".floorId", fmt.Sprintf("unknown floor %d", floorID))
		}
	}
	for name, list := range map[string][]ItemPayload{
		"walls":     proposal.Walls,
		"wallItems": proposal.WallItems,
		"items":     proposal.Items,
	} {
		for i, p := range list {
			checkFloor(fmt.Sprintf("%s[%d]", name, i), p.FloorID)
		}
	}

	existing := make(map[int64]*models.SchemaItem)
	for i := range r.Items {
		if r.Items[i].IsTable() {
			existing[r.Items[i].ID] = &r.Items[i]
		}
	}

	tables := make([]plannedTable, 0, len(proposal.Tables))
	claimed := make(map[int64]bool)
	for i, p := range proposal.Tables {
		field := fmt.Sprintf("tables[%d]", i)
		checkFloor(field, p.FloorID)
		validateSpotInfo(verr, field+".spotInfo", p.SpotInfo)

		var match *models.SchemaItem
		if p.ID != nil {
			match = existing[*p.ID]
		}
		if match != nil {
			if claimed[match.ID] {
				verr.Add(field+".id", fmt.Sprintf("table %d is listed twice", match.ID))
			}
			claimed[match.ID] = true
		} else if p.SpotInfo != nil && p.SpotInfo.ID != nil && r.Spot(*p.SpotInfo.ID) != nil {
			verr.Add(field+".spotInfo.id", fmt.Sprintf("spot %d already belongs to another table", *p.SpotInfo.ID))
		}
		tables = append(tables, plannedTable{payload: p, match: match})
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return tables, nil
}
