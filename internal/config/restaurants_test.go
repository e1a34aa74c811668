package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restobook/internal/idgen"
	"restobook/internal/models"
)

const sampleRestaurants = `
defaults:
  avg_reservation_minutes: 90
  hours:
    open: "10:00"
    close: "22:00"
  days_off: [1]
restaurants:
  - id: 1
    name: "Bistro"
    city: "Warsaw"
    is_active: true
    special_dates:
      - date: "2030-12-24"
        closed: true
      - date: "2030-12-31"
        open: "18:00"
        close: "23:30"
    floors:
      - name: "Main"
        tables:
          - number: 1
            capacity: 4
          - number: 2
            capacity: 8
            min_people: 5
            type: "RECT_8"
  - id: 2
    name: "Trattoria"
    city: "Krakow"
    avg_reservation_minutes: 60
    hours:
      open: "12:00"
      close: "20:00"
    days_off: []
`

func TestLoadRestaurantsConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "restaurants.yaml", sampleRestaurants)

	cfg, err := LoadRestaurantsConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Restaurants, 2)

	bistro := cfg.GetRestaurantByID(1)
	require.NotNil(t, bistro)
	assert.Equal(t, 90, bistro.AvgReservationMinutes)
	assert.Equal(t, "10:00", bistro.Hours.Open)
	assert.Equal(t, []int{1}, bistro.DaysOff)
	assert.Equal(t, 1, bistro.Floors[0].Tables[0].MinPeople)

	trattoria := cfg.GetRestaurantByID(2)
	require.NotNil(t, trattoria)
	assert.Equal(t, 60, trattoria.AvgReservationMinutes)
	assert.Empty(t, trattoria.DaysOff)
	assert.Nil(t, cfg.GetRestaurantByID(3))

	assert.Equal(t, "RestaurantsConfig: 2 restaurants (1 active)", cfg.String())
}

func TestRestaurantsConfigValidate(t *testing.T) {
	valid := func() RestaurantConfig {
		return RestaurantConfig{
			ID:    1,
			Name:  "Bistro",
			City:  "Warsaw",
			Hours: &HoursConfig{Open: "10:00", Close: "22:00"},
			Floors: []FloorConfig{{
				Name:   "Main",
				Tables: []TableConfig{{Number: 1, Capacity: 4, MinPeople: 1}},
			}},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *RestaurantsConfig)
	}{
		{"Empty", func(c *RestaurantsConfig) { c.Restaurants = nil }},
		{"NonPositiveID", func(c *RestaurantsConfig) { c.Restaurants[0].ID = 0 }},
		{"DuplicateID", func(c *RestaurantsConfig) { c.Restaurants = append(c.Restaurants, valid()) }},
		{"MissingName", func(c *RestaurantsConfig) { c.Restaurants[0].Name = "" }},
		{"MissingCity", func(c *RestaurantsConfig) { c.Restaurants[0].City = "" }},
		{"MissingHours", func(c *RestaurantsConfig) { c.Restaurants[0].Hours = nil }},
		{"BadOpen", func(c *RestaurantsConfig) { c.Restaurants[0].Hours.Open = "25:00" }},
		{"CloseBeforeOpen", func(c *RestaurantsConfig) { c.Restaurants[0].Hours.Close = "09:00" }},
		{"BadDayOff", func(c *RestaurantsConfig) { c.Restaurants[0].DaysOff = []int{8} }},
		{"BadSpecialDate", func(c *RestaurantsConfig) {
			c.Restaurants[0].SpecialDates = []SpecialDateConfig{{Date: "24.12.2030", Closed: true}}
		}},
		{"DuplicateSpecialDate", func(c *RestaurantsConfig) {
			c.Restaurants[0].SpecialDates = []SpecialDateConfig{
				{Date: "2030-12-24", Closed: true},
				{Date: "2030-12-24", Closed: true},
			}
		}},
		{"SpecialDateHours", func(c *RestaurantsConfig) {
			c.Restaurants[0].SpecialDates = []SpecialDateConfig{{Date: "2030-12-24", Open: "20:00", Close: "18:00"}}
		}},
		{"FloorName", func(c *RestaurantsConfig) { c.Restaurants[0].Floors[0].Name = "" }},
		{"CapacityBelowMin", func(c *RestaurantsConfig) { c.Restaurants[0].Floors[0].Tables[0].Capacity = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &RestaurantsConfig{Restaurants: []RestaurantConfig{valid()}}
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("Valid", func(t *testing.T) {
		cfg := &RestaurantsConfig{Restaurants: []RestaurantConfig{valid()}}
		assert.NoError(t, cfg.Validate())
	})
}

func TestRestaurantConfigToModel(t *testing.T) {
	path := writeFile(t, t.TempDir(), "restaurants.yaml", sampleRestaurants)
	cfg, err := LoadRestaurantsConfig(path)
	require.NoError(t, err)

	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	r := cfg.GetRestaurantByID(1).ToModel(idgen.NewSequence(100), now)

	assert.Equal(t, int64(1), r.ID)
	assert.Equal(t, 90, r.AvgReservationMinutes)
	assert.Equal(t, now, r.UpdatedAt)

	require.Len(t, r.BusinessHours, 7)
	assert.True(t, r.BusinessHours[time.Monday].IsClosed)
	assert.Equal(t, models.MustTimeOfDay("10:00"), r.BusinessHours[time.Sunday].OpenTime)
	assert.Equal(t, models.MustTimeOfDay("22:00"), r.BusinessHours[time.Sunday].CloseTime)

	require.Len(t, r.SpecialDates, 2)
	assert.Equal(t, int64(101), r.SpecialDates[0].ID)
	assert.True(t, r.SpecialDates[0].BusinessHour.IsClosed)
	assert.Equal(t, models.MustTimeOfDay("23:30"), r.SpecialDates[1].BusinessHour.CloseTime)

	require.Len(t, r.Floors, 1)
	require.Len(t, r.Spots, 2)
	require.Len(t, r.Items, 2)
	assert.Equal(t, r.Floors[0].ID, r.Spots[1].FloorID)
	assert.Equal(t, 5, r.Spots[1].MinPeopleNumber)
	assert.Equal(t, "SQUARE_4", r.Items[0].SubType)
	assert.Equal(t, "RECT_8", r.Items[1].SubType)
	for i, item := range r.Items {
		require.NotNil(t, item.SpotID)
		assert.Equal(t, r.Spots[i].ID, *item.SpotID)
		assert.True(t, item.IsTable())
	}
}

func TestWatchRestaurants(t *testing.T) {
	path := writeFile(t, t.TempDir(), "restaurants.yaml", sampleRestaurants)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan RestaurantsUpdate, 4)
	err := WatchRestaurants(ctx, path, 10*time.Millisecond, zerolog.Nop(), func(upd RestaurantsUpdate) {
		updates <- upd
	})
	require.NoError(t, err)

	first := <-updates
	assert.True(t, first.Initial)
	assert.Len(t, first.Changed, 2)

	touch := func(content string, offset time.Duration) {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		at := time.Now().Add(offset)
		require.NoError(t, os.Chtimes(path, at, at))
	}

	// same content, newer mod time: nothing is delivered
	touch(sampleRestaurants, time.Minute)

	changed := sampleRestaurants + `
  - id: 3
    name: "Pierogarnia"
    city: "Gdansk"
    hours:
      open: "11:00"
      close: "21:00"
`
	touch(changed, 2*time.Minute)

	select {
	case upd := <-updates:
		assert.False(t, upd.Initial)
		require.Len(t, upd.Changed, 1)
		assert.Equal(t, int64(3), upd.Changed[0].ID)
		assert.Empty(t, upd.Removed)
		assert.Len(t, upd.Config.Restaurants, 3)
	case <-time.After(2 * time.Second):
		t.Fatal("restaurants config was not reloaded")
	}
}

func TestDiffRestaurants(t *testing.T) {
	path := writeFile(t, t.TempDir(), "restaurants.yaml", sampleRestaurants)
	prev, err := LoadRestaurantsConfig(path)
	require.NoError(t, err)

	t.Run("Initial", func(t *testing.T) {
		upd := DiffRestaurants(nil, prev)
		assert.True(t, upd.Initial)
		assert.Len(t, upd.Changed, 2)
		assert.False(t, upd.Empty())
	})

	t.Run("Unchanged", func(t *testing.T) {
		next, err := LoadRestaurantsConfig(path)
		require.NoError(t, err)
		assert.True(t, DiffRestaurants(prev, next).Empty())
	})

	t.Run("EditedAndRemoved", func(t *testing.T) {
		next, err := LoadRestaurantsConfig(path)
		require.NoError(t, err)
		next.Restaurants[0].Floors[0].Tables[0].Capacity = 6
		next.Restaurants = next.Restaurants[:1]

		upd := DiffRestaurants(prev, next)
		require.Len(t, upd.Changed, 1)
		assert.Equal(t, int64(1), upd.Changed[0].ID)
		assert.Equal(t, []int64{2}, upd.Removed)
	})
}
