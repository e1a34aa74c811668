package service

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"restobook/internal/booking"
	"restobook/internal/clock"
	"restobook/internal/config"
	"restobook/internal/events"
	"restobook/internal/idgen"
	"restobook/internal/models"
	"restobook/internal/repository"
	"restobook/internal/schema"
)

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(et string, p interface{}) error { return m.Called(et, p).Error(0) }

// 2025-06-02 is a Monday.
func monday(hour, minute int) time.Time {
	return time.Date(2025, 6, 2, hour, minute, 0, 0, time.UTC)
}

func fixture(id int64, city string) *models.Restaurant {
	rules := make(map[time.Weekday]models.BusinessHour, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		rules[d] = models.BusinessHour{OpenTime: models.MustTimeOfDay("13:00"), CloseTime: models.MustTimeOfDay("23:00")}
	}
	spotA, spotB := id*100+10, id*100+11
	return &models.Restaurant{
		ID:                    id,
		Name:                  "Bistro",
		City:                  city,
		IsActive:              true,
		AvgReservationMinutes: 60,
		BusinessHours:         rules,
		Floors:                []models.Floor{{ID: id*100 + 2, Name: "Main"}},
		Spots: []models.Spot{
			{ID: spotA, Number: 1, Capacity: 4, MinPeopleNumber: 2, FloorID: id*100 + 2},
			{ID: spotB, Number: 2, Capacity: 2, MinPeopleNumber: 1, FloorID: id*100 + 2},
		},
		Items: []models.SchemaItem{
			{ID: id*100 + 20, FloorID: id*100 + 2, Kind: models.KindTable, SubType: "SQUARE_4", SpotID: &spotA},
			{ID: id*100 + 21, FloorID: id*100 + 2, Kind: models.KindTable, SubType: "SQUARE_2", SpotID: &spotB},
		},
	}
}

type testEnv struct {
	svc   *RestaurantService
	repo  *repository.MemoryRepository
	clock *clock.Fixed
	bus   *mockEventBus
}

func newEnv(t *testing.T, restaurants ...*models.Restaurant) *testEnv {
	t.Helper()
	repo := repository.NewMemoryRepository()
	for _, r := range restaurants {
		_, err := repo.Save(context.Background(), r)
		require.NoError(t, err)
	}
	clk := clock.NewFixed(monday(9, 0))
	bus := new(mockEventBus)
	bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil).Maybe()
	svc := NewRestaurantService(repo, idgen.NewSequence(1000), clk, bus,
		Options{AvailableDatesDays: 2, AvailableDatesStep: time.Hour}, zerolog.New(io.Discard))
	return &testEnv{svc: svc, repo: repo, clock: clk, bus: bus}
}

func request(start time.Time, people int, spots ...int64) booking.Request {
	return booking.Request{
		DateTime:     start,
		PeopleNumber: people,
		SpotIDs:      spots,
		Customer:     models.Customer{Name: "Jan Kowalski", PhoneNumber: "+48 600 100 200"},
	}
}

func TestReservationFlow(t *testing.T) {
	env := newEnv(t, fixture(1, "Warsaw"))
	ctx := context.Background()

	guest, err := env.svc.CreateGuestReservation(ctx, 1, request(monday(14, 0), 3, 110))
	require.NoError(t, err)
	assert.Equal(t, models.StatePending, guest.State)
	require.NotNil(t, guest.VerificationCode)
	env.bus.AssertCalled(t, "PublishJSON", events.ReservationCreated, mock.Anything)

	t.Run("DoubleBookingRejected", func(t *testing.T) {
		_, err := env.svc.CreateStaffReservation(ctx, 1, request(monday(14, 30), 2, 110))
		assert.True(t, models.IsConflict(err))

		stored, err := env.repo.Load(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, stored.Reservations, 1)
	})

	t.Run("UnknownRestaurant", func(t *testing.T) {
		_, err := env.svc.CreateGuestReservation(ctx, 99, request(monday(14, 0), 2, 110))
		assert.True(t, models.IsNotFound(err))
	})

	t.Run("Accept", func(t *testing.T) {
		res, err := env.svc.ChangeReservationState(ctx, 1, guest.ID, models.StateAccepted)
		require.NoError(t, err)
		assert.Equal(t, models.StateAccepted, res.State)
		env.bus.AssertCalled(t, "PublishJSON", events.ReservationStateChanged, mock.Anything)

		_, err = env.svc.ChangeReservationState(ctx, 1, guest.ID, models.StatePending)
		assert.True(t, models.IsConflict(err))
	})

	t.Run("EditIgnoresItself", func(t *testing.T) {
		res, err := env.svc.EditReservation(ctx, 1, guest.ID, request(monday(14, 30), 2, 110, 111))
		require.NoError(t, err)
		assert.Equal(t, monday(15, 30), res.EndDateTime)
		assert.Equal(t, []int64{110, 111}, res.SpotIDs)
		env.bus.AssertCalled(t, "PublishJSON", events.ReservationEdited, mock.Anything)
	})

	t.Run("Queries", func(t *testing.T) {
		staff, err := env.svc.CreateStaffReservation(ctx, 1, request(monday(18, 0), 2, 111))
		require.NoError(t, err)
		assert.Equal(t, models.StateAccepted, staff.State)
		assert.True(t, staff.IsVerified)

		day, err := env.svc.Reservations(ctx, 1, "2025-06-02")
		require.NoError(t, err)
		require.Len(t, day, 2)
		assert.Equal(t, guest.ID, day[0].ID)

		onSpot, err := env.svc.SpotReservations(ctx, 1, 111, "2025-06-02")
		require.NoError(t, err)
		assert.Len(t, onSpot, 2)

		_, err = env.svc.SpotReservations(ctx, 1, 999, "2025-06-02")
		assert.True(t, models.IsNotFound(err))

		queue, err := env.svc.Queue(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, queue)

		got, err := env.svc.Reservation(ctx, 1, staff.ID)
		require.NoError(t, err)
		assert.Equal(t, staff.ID, got.ID)
	})

	t.Run("Cancel", func(t *testing.T) {
		res, err := env.svc.CancelReservation(ctx, 1, guest.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StateCanceled, res.State)

		stored, err := env.repo.Load(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, models.StateCanceled, stored.Reservation(guest.ID).State)
	})
}

func TestAdvanceAll(t *testing.T) {
	env := newEnv(t, fixture(1, "Warsaw"), fixture(2, "Warsaw"))
	ctx := context.Background()

	res, err := env.svc.CreateStaffReservation(ctx, 1, request(monday(14, 0), 2, 110))
	require.NoError(t, err)
	_, err = env.svc.CreateGuestReservation(ctx, 2, request(monday(14, 0), 2, 210))
	require.NoError(t, err)

	n, err := env.svc.AdvanceAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.clock.Set(monday(14, 30))
	n, err = env.svc.AdvanceAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := env.svc.Reservation(ctx, 1, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateDuring, got.State)

	env.clock.Set(monday(15, 0))
	n, err = env.svc.AdvanceAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err = env.svc.Reservation(ctx, 1, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateFinished, got.State)

	queue, err := env.svc.Queue(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, queue, 1, "pending reservations are not advanced")
}

func TestGuestQueries(t *testing.T) {
	closed := fixture(2, "warsaw")
	for d := range closed.BusinessHours {
		closed.BusinessHours[d] = models.BusinessHour{IsClosed: true}
	}
	env := newEnv(t, fixture(1, "Warsaw"), closed, fixture(3, "Krakow"))
	ctx := context.Background()

	result, err := env.svc.Search(ctx, "WARSAW", monday(14, 0), 2)
	require.NoError(t, err)
	require.Len(t, result.Available, 1)
	assert.Equal(t, int64(1), result.Available[0].ID)
	require.Len(t, result.Closed, 1)
	assert.Equal(t, int64(2), result.Closed[0].ID)

	tier, err := env.svc.Availability(ctx, 1, monday(14, 0), 2)
	require.NoError(t, err)
	assert.Equal(t, models.Available, tier)

	tier, err = env.svc.Availability(ctx, 1, monday(10, 0), 2)
	require.NoError(t, err)
	assert.Equal(t, models.Closed, tier)

	_, err = env.svc.Availability(ctx, 42, monday(14, 0), 2)
	assert.True(t, models.IsNotFound(err))

	spots, err := env.svc.AvailableSpots(ctx, 1, monday(14, 0), 2)
	require.NoError(t, err)
	assert.Len(t, spots, 2)

	dates, err := env.svc.AvailableDates(ctx, 1, monday(9, 0), 2)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, models.Date("2025-06-02"), dates[0].Date)
	assert.Len(t, dates[0].Times, 10, "13:00 through 22:00 hourly")

	day, err := env.svc.SpotDay(ctx, 1, 110, "2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, int64(110), day.Spot.ID)

	_, err = env.svc.SpotDay(ctx, 1, 999, "2025-06-02")
	assert.True(t, models.IsNotFound(err))
}

func TestSchemaOperations(t *testing.T) {
	env := newEnv(t, fixture(1, "Warsaw"))
	ctx := context.Background()

	plan, err := env.svc.Schema(ctx, 1)
	require.NoError(t, err)
	require.Len(t, plan.Tables, 2)

	updated, err := env.svc.UpdateSchema(ctx, 1, plan)
	require.NoError(t, err)
	assert.Len(t, updated.Tables, 2)
	env.bus.AssertCalled(t, "PublishJSON", events.SchemaUpdated, mock.Anything)

	floor, err := env.svc.AddFloor(ctx, 1, "Terrace")
	require.NoError(t, err)
	assert.Equal(t, "Terrace", floor.Name)

	_, err = env.svc.AddFloor(ctx, 1, "  ")
	assert.True(t, models.IsValidation(err))

	_, err = env.svc.CreateStaffReservation(ctx, 1, request(monday(14, 0), 2, 110))
	require.NoError(t, err)

	_, err = env.svc.UpdateSpot(ctx, 1, 110, schema.SpotInfo{Number: 5, Capacity: 6, MinPeopleNumber: 2})
	assert.True(t, models.IsConflict(err))

	spot, err := env.svc.UpdateSpot(ctx, 1, 111, schema.SpotInfo{Number: 5, Capacity: 6, MinPeopleNumber: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, spot.Capacity)

	assert.True(t, models.IsConflict(env.svc.DeleteSpot(ctx, 1, 110)))
	assert.True(t, models.IsConflict(env.svc.DeleteFloor(ctx, 1, 102)))
	require.NoError(t, env.svc.DeleteSpot(ctx, 1, 111))
	require.NoError(t, env.svc.DeleteFloor(ctx, 1, floor.ID))

	stored, err := env.repo.Load(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, stored.Spots, 1)
	assert.Len(t, stored.Floors, 1)
}

func validBaseInfo() BaseInfo {
	week := make(map[string]models.BusinessHour, 7)
	for _, d := range []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "sunday"} {
		week[d] = models.BusinessHour{OpenTime: models.MustTimeOfDay("12:00"), CloseTime: models.MustTimeOfDay("20:00")}
	}
	return BaseInfo{
		Name:                  "Bistro Nowe",
		City:                  "Warsaw",
		PhoneNumber:           "+48 22 000 00 00",
		IsActive:              true,
		AvgReservationMinutes: 90,
		BusinessHours:         week,
		SpecialDates: []models.SpecialDate{
			{Date: "2025-12-24", BusinessHour: models.BusinessHour{IsClosed: true}},
		},
	}
}

func TestUpdateBaseInfo(t *testing.T) {
	env := newEnv(t, fixture(1, "Warsaw"))
	ctx := context.Background()

	t.Run("MissingDay", func(t *testing.T) {
		info := validBaseInfo()
		delete(info.BusinessHours, "FRIDAY")
		_, err := env.svc.UpdateBaseInfo(ctx, 1, info)
		assert.True(t, models.IsValidation(err))
	})

	t.Run("UnknownDay", func(t *testing.T) {
		info := validBaseInfo()
		info.BusinessHours["FUNDAY"] = models.BusinessHour{IsClosed: true}
		_, err := env.svc.UpdateBaseInfo(ctx, 1, info)
		assert.True(t, models.IsValidation(err))
	})

	t.Run("InvalidSpecialDateKeepsState", func(t *testing.T) {
		info := validBaseInfo()
		info.SpecialDates = []models.SpecialDate{{
			Date:         "2025-12-31",
			BusinessHour: models.BusinessHour{OpenTime: models.MustTimeOfDay("20:00"), CloseTime: models.MustTimeOfDay("18:00")},
		}}
		_, err := env.svc.UpdateBaseInfo(ctx, 1, info)
		assert.True(t, models.IsValidation(err))

		stored, err := env.repo.Load(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Bistro", stored.Name)
	})

	t.Run("Valid", func(t *testing.T) {
		got, err := env.svc.UpdateBaseInfo(ctx, 1, validBaseInfo())
		require.NoError(t, err)
		assert.Equal(t, "Bistro Nowe", got.Name)
		assert.Equal(t, models.MustTimeOfDay("12:00"), got.BusinessHours["SUNDAY"].OpenTime)
		require.Len(t, got.SpecialDates, 1)
		assert.NotZero(t, got.SpecialDates[0].ID)

		again, err := env.svc.BaseInfo(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, got, again)
		env.bus.AssertCalled(t, "PublishJSON", events.RestaurantUpdated, mock.Anything)
	})
}

func TestSyncRestaurants(t *testing.T) {
	env := newEnv(t, fixture(9, "Gdansk"))
	ctx := context.Background()

	cfg := &config.RestaurantsConfig{Restaurants: []config.RestaurantConfig{{
		ID:                    1,
		Name:                  "Bistro",
		City:                  "Warsaw",
		IsActive:              true,
		AvgReservationMinutes: 90,
		Hours:                 &config.HoursConfig{Open: "10:00", Close: "22:00"},
		Floors: []config.FloorConfig{{
			Name:   "Main",
			Tables: []config.TableConfig{{Number: 1, Capacity: 4, MinPeople: 1, Width: 1, Height: 1}},
		}},
	}}}

	require.NoError(t, env.svc.SyncRestaurants(ctx, cfg))

	created, err := env.repo.Load(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, created.Spots, 1)
	assert.Len(t, created.Items, 1)

	removed, err := env.repo.Load(ctx, 9)
	require.NoError(t, err)
	assert.False(t, removed.IsActive)

	cfg.Restaurants[0].Name = "Bistro Renamed"
	cfg.Restaurants[0].Floors = nil
	require.NoError(t, env.svc.SyncRestaurants(ctx, cfg))

	refreshed, err := env.repo.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Bistro Renamed", refreshed.Name)
	assert.Equal(t, created.Spots, refreshed.Spots, "floor plan survives a resync")

	assert.Error(t, env.svc.SyncRestaurants(ctx, nil))

	maxID, err := env.svc.MaxID(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, maxID, int64(1000))
}

func TestExportReservations(t *testing.T) {
	env := newEnv(t, fixture(1, "Warsaw"))
	ctx := context.Background()

	_, err := env.svc.CreateStaffReservation(ctx, 1, request(monday(14, 0), 2, 110))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, env.svc.ExportReservations(ctx, 1, "2025-06-02", &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PK")))

	assert.True(t, models.IsNotFound(env.svc.ExportReservations(ctx, 5, "2025-06-02", &buf)))
}

func TestApplyRestaurantsUpdate(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	entry := func(id int64, name string) config.RestaurantConfig {
		return config.RestaurantConfig{
			ID:                    id,
			Name:                  name,
			City:                  "Warsaw",
			IsActive:              true,
			AvgReservationMinutes: 60,
			Hours:                 &config.HoursConfig{Open: "12:00", Close: "22:00"},
		}
	}
	first := &config.RestaurantsConfig{Restaurants: []config.RestaurantConfig{entry(1, "Bistro"), entry(2, "Trattoria")}}
	require.NoError(t, env.svc.ApplyRestaurantsUpdate(ctx, config.DiffRestaurants(nil, first)))

	untouched, err := env.repo.Load(ctx, 2)
	require.NoError(t, err)

	t.Run("OnlyChangedRestaurantsAreWritten", func(t *testing.T) {
		next := &config.RestaurantsConfig{Restaurants: []config.RestaurantConfig{entry(1, "Bistro Nowe"), entry(2, "Trattoria")}}
		upd := config.DiffRestaurants(first, next)
		require.Len(t, upd.Changed, 1)

		require.NoError(t, env.svc.ApplyRestaurantsUpdate(ctx, upd))

		renamed, err := env.repo.Load(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Bistro Nowe", renamed.Name)

		same, err := env.repo.Load(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, untouched.Version, same.Version)
		first = next
	})

	t.Run("RemovedRestaurantIsDeactivated", func(t *testing.T) {
		next := &config.RestaurantsConfig{Restaurants: []config.RestaurantConfig{entry(1, "Bistro Nowe")}}
		upd := config.DiffRestaurants(first, next)
		assert.Equal(t, []int64{2}, upd.Removed)

		require.NoError(t, env.svc.ApplyRestaurantsUpdate(ctx, upd))

		removed, err := env.repo.Load(ctx, 2)
		require.NoError(t, err)
		assert.False(t, removed.IsActive)
	})

	t.Run("RemovedUnknownRestaurantIsIgnored", func(t *testing.T) {
		assert.NoError(t, env.svc.ApplyRestaurantsUpdate(ctx, config.RestaurantsUpdate{Removed: []int64{77}}))
	})
}

type failingLoadRepo struct {
	*repository.MemoryRepository
	err error
}

func (f *failingLoadRepo) Load(context.Context, int64) (*models.Restaurant, error) {
	return nil, f.err
}

func TestSyncRestaurants_LoadFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	repo := &failingLoadRepo{MemoryRepository: repository.NewMemoryRepository(), err: io.ErrUnexpectedEOF}
	svc := NewRestaurantService(repo, idgen.NewSequence(1), clock.NewFixed(monday(9, 0)), new(mockEventBus),
		Options{}, zerolog.New(&logs))

	cfg := &config.RestaurantsConfig{Restaurants: []config.RestaurantConfig{{ID: 1, Name: "Bistro", City: "Warsaw"}}}
	err := svc.SyncRestaurants(context.Background(), cfg)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	assert.Contains(t, logs.String(), `"level":"error"`)
	assert.Contains(t, logs.String(), `"operation":"sync"`)
	assert.Contains(t, logs.String(), `"restaurant_id":1`)
}
