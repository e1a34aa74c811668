// Package service runs every restaurant operation as load, mutate and save
// against the repository, and reports the outcome through logs, metrics and
// events.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"restobook/internal/booking"
	"restobook/internal/clock"
	"restobook/internal/idgen"
	"restobook/internal/models"
	"restobook/internal/repository"
)

// EventPublisher delivers domain events.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Options tunes the guest-facing queries.
type Options struct {
	AvailableDatesDays int
	AvailableDatesStep time.Duration
}

// RestaurantService is the entry point used by the HTTP layer and the workers.
type RestaurantService struct {
	repo   repository.RestaurantRepository
	ledger *booking.Ledger
	clock  clock.Clock
	ids    idgen.Generator
	events EventPublisher
	opts   Options
	logger zerolog.Logger
}

func NewRestaurantService(
	repo repository.RestaurantRepository,
	ids idgen.Generator,
	clk clock.Clock,
	events EventPublisher,
	opts Options,
	logger zerolog.Logger,
) *RestaurantService {
	return &RestaurantService{
		repo:   repo,
		ledger: booking.NewLedger(ids, clk),
		clock:  clk,
		ids:    ids,
		events: events,
		opts:   opts,
		logger: logger.With().Str("component", "restaurant_service").Logger(),
	}
}

// ReservationEvent is published for every reservation change.
type ReservationEvent struct {
	RestaurantID  int64                   `json:"restaurantId"`
	ReservationID int64                   `json:"reservationId"`
	State         models.ReservationState `json:"state"`
	SpotIDs       []int64                 `json:"spots"`
	StartDateTime time.Time               `json:"startDateTime"`
}

// RestaurantEvent is published for floor plan and base info changes.
type RestaurantEvent struct {
	RestaurantID int64  `json:"restaurantId"`
	Operation    string `json:"operation"`
}

func reservationEvent(restaurantID int64, res *models.Reservation) ReservationEvent {
	return ReservationEvent{
		RestaurantID:  restaurantID,
		ReservationID: res.ID,
		State:         res.State,
		SpotIDs:       res.SpotIDs,
		StartDateTime: res.StartDateTime,
	}
}

func (s *RestaurantService) load(ctx context.Context, id int64) (*models.Restaurant, error) {
	r, err := s.repo.Load(ctx, id)
	if err != nil {
		s.logFailure("load", id, err)
		return nil, err
	}
	return r, nil
}

// update applies fn through the repository's optimistic update and stamps the
// modification time.
func (s *RestaurantService) update(ctx context.Context, id int64, op string, fn func(r *models.Restaurant) error) (*models.Restaurant, error) {
	saved, err := repository.Update(ctx, s.repo, id, func(r *models.Restaurant) error {
		if err := fn(r); err != nil {
			return err
		}
		r.UpdatedAt = s.clock.Now()
		return nil
	})
	if err != nil {
		if !errors.Is(err, errUnchanged) {
			s.logFailure(op, id, err)
		}
		return nil, err
	}
	return saved, nil
}

func (s *RestaurantService) logFailure(op string, restaurantID int64, err error) {
	event := s.logger.Error()
	if models.IsValidation(err) || models.IsConflict(err) || models.IsNotFound(err) {
		event = s.logger.Warn()
	}
	event.Err(err).Str("operation", op).Int64("restaurant_id", restaurantID).Msg("Restaurant operation rejected")
}

func (s *RestaurantService) publish(eventType string, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}

// MaxID returns the highest id stored in any restaurant. It seeds the id sequence at startup.
func (s *RestaurantService) MaxID(ctx context.Context) (int64, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	var maxID int64
	for _, r := range all {
		if id := r.MaxID(); id > maxID {
			maxID = id
		}
	}
	return maxID, nil
}
