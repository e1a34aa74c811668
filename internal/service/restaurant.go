package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"restobook/internal/config"
	"restobook/internal/events"
	"restobook/internal/hours"
	"restobook/internal/models"
	"restobook/internal/repository"
)

// BaseInfo is the editable identity and opening hours of a restaurant.
// Business hours are keyed by upper-case weekday name.
type BaseInfo struct {
	Name                  string                         `json:"name"`
	City                  string                         `json:"city"`
	PhoneNumber           string                         `json:"phoneNumber"`
	IsActive              bool                           `json:"isActive"`
	AvgReservationMinutes int                            `json:"avgReservationMinutes"`
	BusinessHours         map[string]models.BusinessHour `json:"businessHours"`
	SpecialDates          []models.SpecialDate           `json:"specialDates"`
}

func baseInfoOf(r *models.Restaurant) BaseInfo {
	week := make(map[string]models.BusinessHour, len(r.BusinessHours))
	for day, bh := range r.BusinessHours {
		week[hours.DayName(day)] = bh
	}
	special := make([]models.SpecialDate, len(r.SpecialDates))
	copy(special, r.SpecialDates)
	return BaseInfo{
		Name:                  r.Name,
		City:                  r.City,
		PhoneNumber:           r.PhoneNumber,
		IsActive:              r.IsActive,
		AvgReservationMinutes: r.AvgReservationMinutes,
		BusinessHours:         week,
		SpecialDates:          special,
	}
}

// BaseInfo returns the base info of a restaurant.
func (s *RestaurantService) BaseInfo(ctx context.Context, id int64) (BaseInfo, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return BaseInfo{}, err
	}
	return baseInfoOf(r), nil
}

// UpdateBaseInfo replaces the identity, business hours and special dates of a
// restaurant in one step. Nothing changes when any part is invalid.
func (s *RestaurantService) UpdateBaseInfo(ctx context.Context, id int64, info BaseInfo) (BaseInfo, error) {
	week, err := parseWeek(info)
	if err != nil {
		s.logFailure("update_base_info", id, err)
		return BaseInfo{}, err
	}

	saved, err := s.update(ctx, id, "update_base_info", func(r *models.Restaurant) error {
		special, err := hours.ReconcileSpecialDates(r.SpecialDates, info.SpecialDates, s.ids)
		if err != nil {
			return err
		}
		r.Name = strings.TrimSpace(info.Name)
		r.City = strings.TrimSpace(info.City)
		r.PhoneNumber = strings.TrimSpace(info.PhoneNumber)
		r.IsActive = info.IsActive
		r.AvgReservationMinutes = info.AvgReservationMinutes
		r.BusinessHours = week
		r.SpecialDates = special
		return nil
	})
	if err != nil {
		return BaseInfo{}, err
	}

	s.publish(events.RestaurantUpdated, RestaurantEvent{RestaurantID: id, Operation: "base_info"})
	s.logger.Info().Int64("restaurant_id", id).Msg("Restaurant base info updated")
	return baseInfoOf(saved), nil
}

// parseWeek validates the non-hour fields and turns the named business hours
// into a weekday map.
func parseWeek(info BaseInfo) (map[time.Weekday]models.BusinessHour, error) {
	verr := &models.ValidationError{}
	if strings.TrimSpace(info.Name) == "" {
		verr.Add("name", "name is required")
	}
	if strings.TrimSpace(info.City) == "" {
		verr.Add("city", "city is required")
	}
	if info.AvgReservationMinutes <= 0 {
		verr.Add("avgReservationMinutes", "average reservation time must be positive")
	}

	week := make(map[time.Weekday]models.BusinessHour, len(info.BusinessHours))
	for name, bh := range info.BusinessHours {
		day, ok := weekdayByName(name)
		if !ok {
			verr.Add("businessHours."+name, "unknown day")
			continue
		}
		week[day] = bh
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	if err := hours.ValidateBusinessHours(week); err != nil {
		return nil, err
	}
	return week, nil
}

func weekdayByName(name string) (time.Weekday, bool) {
	for _, d := range hours.Weekdays {
		if strings.EqualFold(hours.DayName(d), strings.TrimSpace(name)) {
			return d, true
		}
	}
	return 0, false
}

// SyncRestaurants applies restaurants.yaml. Unknown restaurants are created
// with their floors and tables; known ones get their base attributes and
// weekly hours refreshed while the floor plan and reservations are kept.
// Restaurants missing from the file are deactivated.
func (s *RestaurantService) SyncRestaurants(ctx context.Context, cfg *config.RestaurantsConfig) error {
	if cfg == nil {
		return fmt.Errorf("restaurants config is nil")
	}

	seen := make(map[int64]struct{}, len(cfg.Restaurants))
	for _, rc := range cfg.Restaurants {
		seen[rc.ID] = struct{}{}
		if err := s.syncRestaurant(ctx, rc); err != nil {
			return fmt.Errorf("sync restaurant %d: %w", rc.ID, err)
		}
	}

	all, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	for _, r := range all {
		if _, ok := seen[r.ID]; ok || !r.IsActive {
			continue
		}
		if err := s.deactivate(ctx, r.ID); err != nil {
			return fmt.Errorf("deactivate restaurant %d: %w", r.ID, err)
		}
	}

	s.logger.Info().Str("config", cfg.String()).Msg("Restaurants synced")
	return nil
}

// ApplyRestaurantsUpdate applies one reload of restaurants.yaml. The initial
// load is a full SyncRestaurants; later reloads touch only the restaurants
// whose entries changed and deactivate the ones removed from the file.
func (s *RestaurantService) ApplyRestaurantsUpdate(ctx context.Context, upd config.RestaurantsUpdate) error {
	if upd.Initial {
		return s.SyncRestaurants(ctx, upd.Config)
	}
	for _, rc := range upd.Changed {
		if err := s.syncRestaurant(ctx, rc); err != nil {
			return fmt.Errorf("sync restaurant %d: %w", rc.ID, err)
		}
	}
	for _, id := range upd.Removed {
		if err := s.deactivate(ctx, id); err != nil {
			return fmt.Errorf("deactivate restaurant %d: %w", id, err)
		}
	}
	s.logger.Info().Int("changed", len(upd.Changed)).Int("removed", len(upd.Removed)).Msg("Restaurants update applied")
	return nil
}

func (s *RestaurantService) deactivate(ctx context.Context, id int64) error {
	_, err := s.update(ctx, id, "deactivate", func(r *models.Restaurant) error {
		r.IsActive = false
		return nil
	})
	if models.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	s.publish(events.RestaurantUpdated, RestaurantEvent{RestaurantID: id, Operation: "deactivate"})
	s.logger.Info().Int64("restaurant_id", id).Msg("Restaurant deactivated")
	return nil
}

func (s *RestaurantService) syncRestaurant(ctx context.Context, rc config.RestaurantConfig) error {
	_, err := s.repo.Load(ctx, rc.ID)
	if models.IsNotFound(err) {
		created, err := s.repo.Save(ctx, rc.ToModel(s.ids, s.clock.Now()))
		if err != nil && !errors.Is(err, repository.ErrConcurrentModification) {
			return err
		}
		if err == nil {
			s.publish(events.RestaurantUpdated, RestaurantEvent{RestaurantID: created.ID, Operation: "create"})
			s.logger.Info().Int64("restaurant_id", created.ID).Str("name", created.Name).Msg("Restaurant created")
			return nil
		}
		// created concurrently, fall through to the refresh
	} else if err != nil {
		s.logFailure("sync", rc.ID, err)
		return err
	}

	_, err = s.update(ctx, rc.ID, "sync", func(r *models.Restaurant) error {
		r.Name = rc.Name
		r.City = rc.City
		r.PhoneNumber = rc.Phone
		r.IsActive = rc.IsActive
		r.AvgReservationMinutes = rc.AvgReservationMinutes
		r.BusinessHours = rc.BusinessHours()
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(events.RestaurantUpdated, RestaurantEvent{RestaurantID: rc.ID, Operation: "sync"})
	return nil
}
