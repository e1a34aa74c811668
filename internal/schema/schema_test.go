package schema

import (
	"testing"
	"time"

	"restobook/internal/idgen"
	"restobook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func ptr(v int64) *int64 { return &v }

// newRestaurant has floors 1 and 2, tables 100 (spot 10) and 101 (spot 11)
// on floor 1, a wall 200 on floor 1 and a bar 300 on floor 2.
func newRestaurant() *models.Restaurant {
	return &models.Restaurant{
		ID:                    1,
		AvgReservationMinutes: 60,
		Floors:                []models.Floor{{ID: 1, Name: "Ground"}, {ID: 2, Name: "Terrace"}},
		Spots: []models.Spot{
			{ID: 10, Number: 1, Capacity: 4, MinPeopleNumber: 2, FloorID: 1},
			{ID: 11, Number: 2, Capacity: 6, MinPeopleNumber: 3, FloorID: 1},
		},
		Items: []models.SchemaItem{
			{ID: 100, FloorID: 1, Kind: models.KindTable, Position: models.Position{X: 1, Y: 1}, Details: models.Details{Width: 2, Height: 2}, SubType: "SQUARE_4", SpotID: ptr(10)},
			{ID: 101, FloorID: 1, Kind: models.KindTable, Position: models.Position{X: 5, Y: 1}, Details: models.Details{Width: 3, Height: 2}, SubType: "RECT_6", SpotID: ptr(11)},
			{ID: 200, FloorID: 1, Kind: models.KindWall, Details: models.Details{Width: 10, Height: 1}},
			{ID: 300, FloorID: 2, Kind: models.KindItem, SubType: "BAR"},
		},
	}
}

func TestUpdate_Idempotent(t *testing.T) {
	r := newRestaurant()
	before := r.Clone()
	ids := idgen.NewSequence(1000)

	got, err := Update(r, Get(r), ids)
	require.NoError(t, err)

	assert.Equal(t, Get(before), got)
	assert.Equal(t, before.Spots, r.Spots)
	assert.ElementsMatch(t, before.Items, r.Items)
	assert.Equal(t, int64(1001), ids.Next(), "no ids were consumed")
}

func TestUpdate_MatchedTableKeepsSpotIdentity(t *testing.T) {
	r := newRestaurant()
	proposal := Get(r)
	proposal.Tables[0].FloorID = 2
	proposal.Tables[0].Position = models.Position{X: 7, Y: 8}
	proposal.Tables[0].Details.Rotation = 90
	proposal.Tables[0].SubType = "ROUND_8"
	proposal.Tables[0].SpotInfo = &SpotInfo{ID: ptr(999), Number: 5, Capacity: 8, MinPeopleNumber: 4}

	_, err := Update(r, proposal, idgen.NewSequence(1000))
	require.NoError(t, err)

	item := r.Item(100)
	require.NotNil(t, item)
	assert.Equal(t, int64(2), item.FloorID)
	assert.Equal(t, models.Position{X: 7, Y: 8}, item.Position)
	assert.Equal(t, 90, item.Details.Rotation)
	assert.Equal(t, "ROUND_8", item.SubType)
	require.NotNil(t, item.SpotID)
	assert.Equal(t, int64(10), *item.SpotID)

	spot := r.Spot(10)
	require.NotNil(t, spot)
	assert.Equal(t, models.Spot{ID: 10, Number: 5, Capacity: 8, MinPeopleNumber: 4, FloorID: 2}, *spot)
	assert.Nil(t, r.Spot(999))
}

func TestUpdate_UnknownTableIDCreatesTable(t *testing.T) {
	r := newRestaurant()
	proposal := Get(r)
	proposal.Tables = append(proposal.Tables, ItemPayload{
		ID:       ptr(999),
		FloorID:  2,
		SubType:  "SQUARE_2",
		SpotInfo: &SpotInfo{Number: 9, Capacity: 2, MinPeopleNumber: 1},
	})

	got, err := Update(r, proposal, idgen.NewSequence(1000))
	require.NoError(t, err)

	require.Len(t, got.Tables, 3)
	created := got.Tables[2]
	assert.Equal(t, int64(1002), *created.ID)
	require.NotNil(t, created.SpotInfo)
	assert.Equal(t, int64(1001), *created.SpotInfo.ID)
	assert.Equal(t, models.Spot{ID: 1001, Number: 9, Capacity: 2, MinPeopleNumber: 1, FloorID: 2}, *r.Spot(1001))
	assert.Nil(t, r.Item(999))
}

func TestUpdate_NewTableWithoutIDs(t *testing.T) {
	r := newRestaurant()
	proposal := Get(r)
	proposal.Tables = append(proposal.Tables, ItemPayload{
		FloorID:  1,
		SpotInfo: &SpotInfo{Number: 3, Capacity: 4, MinPeopleNumber: 1},
	})

	_, err := Update(r, proposal, idgen.NewSequence(1000))
	require.NoError(t, err)
	assert.Len(t, r.Spots, 3)
}

func TestUpdate_UnknownTableWithExistingSpotIsRejected(t *testing.T) {
	r := newRestaurant()
	before := r.Clone()
	proposal := Get(r)
	proposal.Tables = append(proposal.Tables, ItemPayload{
		ID:       ptr(999),
		FloorID:  1,
		SpotInfo: &SpotInfo{ID: ptr(10), Number: 1, Capacity: 4, MinPeopleNumber: 2},
	})

	_, err := Update(r, proposal, idgen.NewSequence(1000))
	require.True(t, models.IsValidation(err))
	assert.Contains(t, err.(*models.ValidationError).Fields, "tables[2].spotInfo.id")
	assert.Equal(t, before, r)
}

func TestUpdate_UnknownFloorFailsWholeUpdate(t *testing.T) {
	r := newRestaurant()
	before := r.Clone()
	proposal := Get(r)
	proposal.Tables[0].Position = models.Position{X: 50, Y: 50}
	proposal.Walls = append(proposal.Walls, ItemPayload{FloorID: 7})

	_, err := Update(r, proposal, idgen.NewSequence(1000))
	require.True(t, models.IsValidation(err))
	assert.Contains(t, err.(*models.ValidationError).Fields, "walls[1].floorId")
	assert.Equal(t, before, r, "no partial commit")
}

func TestUpdate_InvalidSpotInfo(t *testing.T) {
	r := newRestaurant()
	proposal := Get(r)
	proposal.Tables[0].SpotInfo = &SpotInfo{Number: 1, Capacity: 2, MinPeopleNumber: 3}
	proposal.Tables[1].SpotInfo = nil

	_, err := Update(r, proposal, idgen.NewSequence(1000))
	require.True(t, models.IsValidation(err))
	fields := err.(*models.ValidationError).Fields
	assert.Contains(t, fields, "tables[0].spotInfo.minPeopleNumber")
	assert.Contains(t, fields, "tables[1].spotInfo")
}

func TestUpdate_DuplicateTable(t *testing.T) {
	r := newRestaurant()
	proposal := Get(r)
	proposal.Tables = append(proposal.Tables, proposal.Tables[0])

	_, err := Update(r, proposal, idgen.NewSequence(1000))
	require.True(t, models.IsValidation(err))
	assert.Contains(t, err.(*models.ValidationError).Fields, "tables[2].id")
}

func TestUpdate_MissingTablesAreKeptFixturesReplaced(t *testing.T) {
	r := newRestaurant()
	proposal := Schema{
		Tables: []ItemPayload{},
		Walls: []ItemPayload{
			{ID: ptr(200), FloorID: 1, Details: models.Details{Width: 12, Height: 1}},
			{ID: ptr(300), FloorID: 2},
		},
		WallItems: []ItemPayload{{FloorID: 1, SubType: "DOOR"}},
	}

	got, err := Update(r, proposal, idgen.NewSequence(1000))
	require.NoError(t, err)

	assert.Len(t, got.Tables, 2, "tables are never deleted by a schema update")
	require.Len(t, got.Walls, 2)
	assert.Equal(t, int64(200), *got.Walls[0].ID)
	assert.Equal(t, 12, got.Walls[0].Details.Width)
	assert.Equal(t, int64(1001), *got.Walls[1].ID, "id of an item of another kind is not reused")
	require.Len(t, got.WallItems, 1)
	assert.Equal(t, "DOOR", got.WallItems[0].SubType)
	assert.Empty(t, got.Items, "bar was not resubmitted")
	assert.Len(t, r.Spots, 2)
}

func TestUpdate_FixturesOfUnmentionedFloorsKept(t *testing.T) {
	r := newRestaurant()
	proposal := Schema{
		Tables: []ItemPayload{},
		Walls:  []ItemPayload{{FloorID: 1, Details: models.Details{Width: 4, Height: 1}}},
	}

	got, err := Update(r, proposal, idgen.NewSequence(1000))
	require.NoError(t, err)

	require.Len(t, got.Walls, 1)
	assert.Equal(t, int64(1001), *got.Walls[0].ID, "wall 200 was not resubmitted")
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(300), *got.Items[0].ID)
}

func TestAddFloor(t *testing.T) {
	r := newRestaurant()

	floor, err := AddFloor(r, " Cellar ", idgen.NewSequence(40))
	require.NoError(t, err)
	assert.Equal(t, models.Floor{ID: 41, Name: "Cellar"}, *floor)
	assert.Len(t, r.Floors, 3)

	_, err = AddFloor(r, "  ", idgen.NewSequence(40))
	assert.True(t, models.IsValidation(err))
}

func TestDeleteSpot(t *testing.T) {
	t.Run("future reservation blocks", func(t *testing.T) {
		r := newRestaurant()
		r.Reservations = []models.Reservation{{ID: 1, StartDateTime: now.Add(time.Hour), SpotIDs: []int64{10}}}

		err := DeleteSpot(r, 10, now)
		require.True(t, models.IsConflict(err))
		assert.NotNil(t, r.Spot(10))
	})

	t.Run("past reservation does not block", func(t *testing.T) {
		r := newRestaurant()
		r.Reservations = []models.Reservation{{ID: 1, StartDateTime: now.Add(-time.Hour), SpotIDs: []int64{10}}}

		require.NoError(t, DeleteSpot(r, 10, now))
		assert.Nil(t, r.Spot(10))
		assert.Nil(t, r.Item(100), "table referencing the spot is removed")
		assert.NotNil(t, r.Item(101))
		assert.Len(t, r.Reservations, 1)
	})

	t.Run("unknown spot", func(t *testing.T) {
		r := newRestaurant()
		assert.True(t, models.IsNotFound(DeleteSpot(r, 77, now)))
	})
}

func TestDeleteFloor(t *testing.T) {
	t.Run("future reservation blocks", func(t *testing.T) {
		r := newRestaurant()
		r.Reservations = []models.Reservation{{ID: 1, StartDateTime: now.Add(24 * time.Hour), SpotIDs: []int64{11}}}

		err := DeleteFloor(r, 1, now)
		require.True(t, models.IsConflict(err))
		assert.Len(t, r.Floors, 2)
	})

	t.Run("removes items and spots", func(t *testing.T) {
		r := newRestaurant()
		r.Reservations = []models.Reservation{{ID: 1, StartDateTime: now, SpotIDs: []int64{11}}}

		require.NoError(t, DeleteFloor(r, 1, now))
		assert.Equal(t, []models.Floor{{ID: 2, Name: "Terrace"}}, r.Floors)
		assert.Empty(t, r.Spots)
		require.Len(t, r.Items, 1)
		assert.Equal(t, int64(300), r.Items[0].ID)
	})

	t.Run("floor without tables", func(t *testing.T) {
		r := newRestaurant()
		require.NoError(t, DeleteFloor(r, 2, now))
		assert.Len(t, r.Items, 3)
	})

	t.Run("unknown floor", func(t *testing.T) {
		r := newRestaurant()
		assert.True(t, models.IsNotFound(DeleteFloor(r, 9, now)))
	})
}

func TestUpdateSpot(t *testing.T) {
	r := newRestaurant()

	spot, err := UpdateSpot(r, 10, SpotInfo{ID: ptr(5), Number: 100, Capacity: 4, MinPeopleNumber: 1}, now)
	require.NoError(t, err)
	assert.Equal(t, models.Spot{ID: 10, Number: 100, Capacity: 4, MinPeopleNumber: 1, FloorID: 1}, *spot)

	_, err = UpdateSpot(r, 10, SpotInfo{Number: 1, Capacity: 0, MinPeopleNumber: 1}, now)
	assert.True(t, models.IsValidation(err))

	r.Reservations = []models.Reservation{{ID: 1, StartDateTime: now.Add(time.Hour), SpotIDs: []int64{10}}}
	_, err = UpdateSpot(r, 10, SpotInfo{Number: 1, Capacity: 4, MinPeopleNumber: 1}, now)
	assert.True(t, models.IsConflict(err))

	_, err = UpdateSpot(r, 42, SpotInfo{Number: 1, Capacity: 4, MinPeopleNumber: 1}, now)
	assert.True(t, models.IsNotFound(err))
}
