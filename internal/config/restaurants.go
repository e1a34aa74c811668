package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"restobook/internal/idgen"
	"restobook/internal/models"
)

// HoursConfig is a daily opening window.
type HoursConfig struct {
	Open  string `yaml:"open"`  // "10:00"
	Close string `yaml:"close"` // "22:00"
}

// SpecialDateConfig overrides the weekly hours for one calendar date.
type SpecialDateConfig struct {
	Date   string `yaml:"date"` // "2026-12-24"
	Closed bool   `yaml:"closed"`
	Open   string `yaml:"open,omitempty"`
	Close  string `yaml:"close,omitempty"`
}

// TableConfig describes a table and the spot behind it.
type TableConfig struct {
	Number    int    `yaml:"number"`
	Capacity  int    `yaml:"capacity"`
	MinPeople int    `yaml:"min_people"`
	Type      string `yaml:"type,omitempty"`
	X         int    `yaml:"x"`
	Y         int    `yaml:"y"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
}

type FloorConfig struct {
	Name   string        `yaml:"name"`
	Tables []TableConfig `yaml:"tables"`
}

// RestaurantConfig represents a single restaurant in restaurants.yaml.
type RestaurantConfig struct {
	ID                    int64               `yaml:"id"`
	Name                  string              `yaml:"name"`
	City                  string              `yaml:"city"`
	Phone                 string              `yaml:"phone"`
	IsActive              bool                `yaml:"is_active"`
	AvgReservationMinutes int                 `yaml:"avg_reservation_minutes"`
	Hours                 *HoursConfig        `yaml:"hours,omitempty"`
	DaysOff               []int               `yaml:"days_off"` // 1=Mon, 7=Sun
	SpecialDates          []SpecialDateConfig `yaml:"special_dates"`
	Floors                []FloorConfig       `yaml:"floors"`
}

type RestaurantDefaults struct {
	AvgReservationMinutes int          `yaml:"avg_reservation_minutes"`
	Hours                 *HoursConfig `yaml:"hours"`
	DaysOff               []int        `yaml:"days_off"`
}

// RestaurantsConfig is the root configuration for restaurants.yaml.
type RestaurantsConfig struct {
	Restaurants []RestaurantConfig `yaml:"restaurants"`
	Defaults    RestaurantDefaults `yaml:"defaults"`
}

// LoadRestaurantsConfig loads and validates the restaurant seed file.
func LoadRestaurantsConfig(path string) (*RestaurantsConfig, error) {
	if path == "" {
		path = "configs/restaurants.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read restaurants config: %w", err)
	}

	var cfg RestaurantsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse restaurants config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate restaurants config: %w", err)
	}

	return &cfg, nil
}

func (c *RestaurantsConfig) applyDefaults() {
	for i := range c.Restaurants {
		r := &c.Restaurants[i]
		if r.Hours == nil {
			r.Hours = c.Defaults.Hours
		}
		if r.DaysOff == nil {
			r.DaysOff = c.Defaults.DaysOff
		}
		if r.AvgReservationMinutes == 0 {
			r.AvgReservationMinutes = c.Defaults.AvgReservationMinutes
		}
		if r.AvgReservationMinutes == 0 {
			r.AvgReservationMinutes = 120
		}
		for f := range r.Floors {
			for t := range r.Floors[f].Tables {
				table := &r.Floors[f].Tables[t]
				if table.MinPeople == 0 {
					table.MinPeople = 1
				}
				if table.Width == 0 {
					table.Width = 1
				}
				if table.Height == 0 {
					table.Height = 1
				}
			}
		}
	}
}

// Validate checks the configuration for errors.
func (c *RestaurantsConfig) Validate() error {
	if len(c.Restaurants) == 0 {
		return fmt.Errorf("no restaurants defined")
	}

	ids := make(map[int64]bool)

	for i, r := range c.Restaurants {
		if r.ID <= 0 {
			return fmt.Errorf("restaurant[%d]: id must be positive, got %d", i, r.ID)
		}
		if ids[r.ID] {
			return fmt.Errorf("restaurant[%d]: duplicate id %d", i, r.ID)
		}
		ids[r.ID] = true

		if r.Name == "" {
			return fmt.Errorf("restaurant[%d]: name is required", i)
		}
		if r.City == "" {
			return fmt.Errorf("restaurant[%d]: city is required", i)
		}
		if r.AvgReservationMinutes < 0 {
			return fmt.Errorf("restaurant[%d]: avg_reservation_minutes cannot be negative", i)
		}
		if r.Hours == nil {
			return fmt.Errorf("restaurant[%d]: hours are required", i)
		}
		if err := validateHours(r.Hours.Open, r.Hours.Close, fmt.Sprintf("restaurant[%d].hours", i)); err != nil {
			return err
		}

		for j, d := range r.DaysOff {
			if d < 1 || d > 7 {
				return fmt.Errorf("restaurant[%d].days_off[%d]: invalid day %d, must be 1-7 (1=Mon, 7=Sun)", i, j, d)
			}
		}

		dates := make(map[string]bool)
		for j, sd := range r.SpecialDates {
			prefix := fmt.Sprintf("restaurant[%d].special_dates[%d]", i, j)
			if _, err := time.Parse("2006-01-02", sd.Date); err != nil {
				return fmt.Errorf("%s: invalid date format '%s', expected YYYY-MM-DD", prefix, sd.Date)
			}
			if dates[sd.Date] {
				return fmt.Errorf("%s: duplicate date %s", prefix, sd.Date)
			}
			dates[sd.Date] = true
			if !sd.Closed {
				if err := validateHours(sd.Open, sd.Close, prefix); err != nil {
					return err
				}
			}
		}

		for j, f := range r.Floors {
			if f.Name == "" {
				return fmt.Errorf("restaurant[%d].floors[%d]: name is required", i, j)
			}
			for k, t := range f.Tables {
				prefix := fmt.Sprintf("restaurant[%d].floors[%d].tables[%d]", i, j, k)
				if t.MinPeople < 1 {
					return fmt.Errorf("%s: min_people must be at least 1", prefix)
				}
				if t.Capacity < t.MinPeople {
					return fmt.Errorf("%s: capacity %d is below min_people %d", prefix, t.Capacity, t.MinPeople)
				}
			}
		}
	}

	return nil
}

func validateHours(open, closing, prefix string) error {
	o, err := models.ParseTimeOfDay(open)
	if err != nil {
		return fmt.Errorf("%s.open: invalid format '%s', expected HH:MM", prefix, open)
	}
	c, err := models.ParseTimeOfDay(closing)
	if err != nil {
		return fmt.Errorf("%s.close: invalid format '%s', expected HH:MM", prefix, closing)
	}
	if c <= o {
		return fmt.Errorf("%s: close must be after open", prefix)
	}
	return nil
}

// ToModel builds a fresh restaurant aggregate. Floors, spots, tables and
// special dates get ids from ids.
func (rc RestaurantConfig) ToModel(ids idgen.Generator, now time.Time) *models.Restaurant {
	r := &models.Restaurant{
		ID:                    rc.ID,
		Name:                  rc.Name,
		City:                  rc.City,
		PhoneNumber:           rc.Phone,
		IsActive:              rc.IsActive,
		AvgReservationMinutes: rc.AvgReservationMinutes,
		BusinessHours:         rc.BusinessHours(),
		UpdatedAt:             now,
	}

	for _, sd := range rc.SpecialDates {
		r.SpecialDates = append(r.SpecialDates, models.SpecialDate{
			ID:           ids.Next(),
			Date:         models.Date(sd.Date),
			BusinessHour: hourOf(sd.Open, sd.Close, sd.Closed),
		})
	}

	for _, f := range rc.Floors {
		floor := models.Floor{ID: ids.Next(), Name: f.Name}
		r.Floors = append(r.Floors, floor)
		for _, t := range f.Tables {
			spotID := ids.Next()
			r.Spots = append(r.Spots, models.Spot{
				ID:              spotID,
				Number:          t.Number,
				Capacity:        t.Capacity,
				MinPeopleNumber: t.MinPeople,
				FloorID:         floor.ID,
			})
			subType := t.Type
			if subType == "" {
				subType = fmt.Sprintf("SQUARE_%d", t.Capacity)
			}
			r.Items = append(r.Items, models.SchemaItem{
				ID:       ids.Next(),
				FloorID:  floor.ID,
				Kind:     models.KindTable,
				Position: models.Position{X: t.X, Y: t.Y},
				Details:  models.Details{Width: t.Width, Height: t.Height},
				SubType:  subType,
				SpotID:   &spotID,
			})
		}
	}

	return r
}

// BusinessHours expands the daily window and days off into a full week.
func (rc RestaurantConfig) BusinessHours() map[time.Weekday]models.BusinessHour {
	off := make(map[time.Weekday]bool, len(rc.DaysOff))
	for _, d := range rc.DaysOff {
		off[time.Weekday(d%7)] = true
	}

	week := make(map[time.Weekday]models.BusinessHour, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if off[d] || rc.Hours == nil {
			week[d] = models.BusinessHour{IsClosed: true}
			continue
		}
		week[d] = hourOf(rc.Hours.Open, rc.Hours.Close, false)
	}
	return week
}

func hourOf(open, closing string, closed bool) models.BusinessHour {
	if closed {
		return models.BusinessHour{IsClosed: true}
	}
	o, _ := models.ParseTimeOfDay(open)
	c, _ := models.ParseTimeOfDay(closing)
	return models.BusinessHour{OpenTime: o, CloseTime: c}
}

// GetRestaurantByID returns restaurant config by ID.
func (c *RestaurantsConfig) GetRestaurantByID(id int64) *RestaurantConfig {
	for i := range c.Restaurants {
		if c.Restaurants[i].ID == id {
			return &c.Restaurants[i]
		}
	}
	return nil
}

// String returns a summary of the configuration.
func (c *RestaurantsConfig) String() string {
	active := 0
	for _, r := range c.Restaurants {
		if r.IsActive {
			active++
		}
	}
	return fmt.Sprintf("RestaurantsConfig: %d restaurants (%d active)", len(c.Restaurants), active)
}
