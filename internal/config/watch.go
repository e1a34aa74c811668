package config

import (
	"context"
	"os"
	"reflect"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// RestaurantsUpdate is the outcome of one load of restaurants.yaml.
type RestaurantsUpdate struct {
	Config *RestaurantsConfig
	// Initial is set for the first load; Changed then holds every restaurant.
	Initial bool
	// Changed lists restaurants that are new or whose entry differs from the previous load.
	Changed []RestaurantConfig
	// Removed lists ids present in the previous load and missing now.
	Removed []int64
}

// Empty reports whether a reload changed nothing.
func (u RestaurantsUpdate) Empty() bool {
	return !u.Initial && len(u.Changed) == 0 && len(u.Removed) == 0
}

// DiffRestaurants compares two loads entry by entry, keyed by restaurant id.
// Defaults are already applied to both, so a defaults change shows up on
// every restaurant it reaches.
func DiffRestaurants(prev, next *RestaurantsConfig) RestaurantsUpdate {
	upd := RestaurantsUpdate{Config: next}
	if prev == nil {
		upd.Initial = true
		if next != nil {
			upd.Changed = append(upd.Changed, next.Restaurants...)
		}
		return upd
	}

	before := make(map[int64]RestaurantConfig, len(prev.Restaurants))
	for _, rc := range prev.Restaurants {
		before[rc.ID] = rc
	}
	for _, rc := range next.Restaurants {
		old, ok := before[rc.ID]
		delete(before, rc.ID)
		if ok && reflect.DeepEqual(old, rc) {
			continue
		}
		upd.Changed = append(upd.Changed, rc)
	}
	for id := range before {
		upd.Removed = append(upd.Removed, id)
	}
	sort.Slice(upd.Removed, func(i, j int) bool { return upd.Removed[i] < upd.Removed[j] })
	return upd
}

// WatchRestaurants loads restaurants.yaml, hands the initial load to onUpdate
// and then polls the file's mod time. Reloads that fail validation are logged
// and skipped so the last good file stays in effect; reloads that change no
// restaurant are not delivered.
func WatchRestaurants(ctx context.Context, path string, interval time.Duration, logger zerolog.Logger, onUpdate func(RestaurantsUpdate)) error {
	if path == "" {
		path = "configs/restaurants.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	logger = logger.With().Str("component", "restaurants_watch").Str("path", path).Logger()

	current, err := LoadRestaurantsConfig(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	seen := info.ModTime()

	if onUpdate != nil {
		onUpdate(DiffRestaurants(nil, current))
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			info, err := os.Stat(path)
			if err != nil {
				logger.Warn().Err(err).Msg("Restaurants file unavailable")
				continue
			}
			if !info.ModTime().After(seen) {
				continue
			}
			seen = info.ModTime()

			next, err := LoadRestaurantsConfig(path)
			if err != nil {
				logger.Error().Err(err).Msg("Restaurants file rejected, keeping previous version")
				continue
			}
			upd := DiffRestaurants(current, next)
			current = next
			if upd.Empty() {
				logger.Debug().Msg("Restaurants file touched without changes")
				continue
			}
			logger.Info().Int("changed", len(upd.Changed)).Ints64("removed", upd.Removed).Msg("Restaurants file reloaded")
			if onUpdate != nil {
				onUpdate(upd)
			}
		}
	}()

	return nil
}
