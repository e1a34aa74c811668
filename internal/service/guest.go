package service

import (
	"context"
	"time"

	"restobook/internal/availability"
	"restobook/internal/booking"
	"restobook/internal/events"
	"restobook/internal/metrics"
	"restobook/internal/models"
)

// Search partitions the active restaurants of a city by availability.
func (s *RestaurantService) Search(ctx context.Context, city string, instant time.Time, partyOf int) (availability.SearchResult, error) {
	restaurants, err := s.repo.ListByCity(ctx, city)
	if err != nil {
		s.logger.Error().Err(err).Str("city", city).Msg("Failed to list restaurants")
		return availability.SearchResult{}, err
	}
	metrics.IncAvailabilityQuery("search")
	return availability.Search(restaurants, city, instant, partyOf), nil
}

// Availability returns the tier of a restaurant at instant.
func (s *RestaurantService) Availability(ctx context.Context, id int64, instant time.Time, partyOf int) (models.Availability, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	result := availability.Get(r, instant, partyOf)
	metrics.IncAvailabilityQuery(string(result))
	return result, nil
}

// AvailableSpots classifies every spot of a restaurant at instant.
func (s *RestaurantService) AvailableSpots(ctx context.Context, id int64, instant time.Time, partyOf int) ([]availability.SpotInfo, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.IncAvailabilityQuery("spots")
	return availability.SpotsAt(r, instant, partyOf), nil
}

// AvailableDates lists the bookable start times of the coming days.
func (s *RestaurantService) AvailableDates(ctx context.Context, id int64, from time.Time, partyOf int) ([]availability.DayTimes, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.IncAvailabilityQuery("dates")
	return availability.AvailableDates(r, from, partyOf, s.opts.AvailableDatesDays, s.opts.AvailableDatesStep), nil
}

// SpotDay returns a spot with its reservations on date.
func (s *RestaurantService) SpotDay(ctx context.Context, id, spotID int64, date models.Date) (*availability.SpotDay, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	day, err := availability.GetSpotDay(r, spotID, date)
	if err != nil {
		s.logFailure("spot_day", id, err)
		return nil, err
	}
	return day, nil
}

// CreateGuestReservation books a reservation on behalf of a guest. It stays
// PENDING until staff accept it.
func (s *RestaurantService) CreateGuestReservation(ctx context.Context, id int64, req booking.Request) (*models.Reservation, error) {
	return s.createReservation(ctx, id, req, "guest", s.ledger.Create)
}

func (s *RestaurantService) createReservation(
	ctx context.Context,
	id int64,
	req booking.Request,
	source string,
	create func(*models.Restaurant, booking.Request) (*models.Reservation, error),
) (*models.Reservation, error) {
	var created *models.Reservation
	_, err := s.update(ctx, id, "create_reservation", func(r *models.Restaurant) error {
		res, err := create(r, req)
		if err != nil {
			return err
		}
		created = res
		return nil
	})
	if err != nil {
		if models.IsConflict(err) {
			metrics.IncConflict()
		}
		return nil, err
	}

	metrics.IncReservationCreated(source)
	s.logger.Info().
		Int64("restaurant_id", id).
		Int64("reservation_id", created.ID).
		Str("source", source).
		Str("state", string(created.State)).
		Time("start", created.StartDateTime).
		Msg("Reservation created")
	s.publish(events.ReservationCreated, reservationEvent(id, created))
	return created, nil
}
