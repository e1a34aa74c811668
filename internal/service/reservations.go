package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"restobook/internal/booking"
	"restobook/internal/events"
	"restobook/internal/metrics"
	"restobook/internal/models"
	"restobook/internal/report"
)

var errUnchanged = errors.New("unchanged")

// CreateStaffReservation books a reservation from the panel. It is accepted right away.
func (s *RestaurantService) CreateStaffReservation(ctx context.Context, id int64, req booking.Request) (*models.Reservation, error) {
	return s.createReservation(ctx, id, req, "staff", s.ledger.CreateByStaff)
}

// EditReservation moves a reservation to a new time, party size or spots.
func (s *RestaurantService) EditReservation(ctx context.Context, id, reservationID int64, req booking.Request) (*models.Reservation, error) {
	var edited *models.Reservation
	_, err := s.update(ctx, id, "edit_reservation", func(r *models.Restaurant) error {
		res, err := s.ledger.Edit(r, reservationID, req)
		if err != nil {
			return err
		}
		edited = res
		return nil
	})
	if err != nil {
		if models.IsConflict(err) {
			metrics.IncConflict()
		}
		return nil, err
	}

	s.logger.Info().Int64("restaurant_id", id).Int64("reservation_id", reservationID).Msg("Reservation edited")
	s.publish(events.ReservationEdited, reservationEvent(id, edited))
	return edited, nil
}

// CancelReservation cancels a reservation. The record is kept.
func (s *RestaurantService) CancelReservation(ctx context.Context, id, reservationID int64) (*models.Reservation, error) {
	return s.ChangeReservationState(ctx, id, reservationID, models.StateCanceled)
}

// ChangeReservationState moves a reservation along the state machine.
func (s *RestaurantService) ChangeReservationState(ctx context.Context, id, reservationID int64, to models.ReservationState) (*models.Reservation, error) {
	var changed *models.Reservation
	_, err := s.update(ctx, id, "change_state", func(r *models.Restaurant) error {
		res, err := s.ledger.ChangeState(r, reservationID, to)
		if err != nil {
			return err
		}
		changed = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncStateChange(string(to))
	s.logger.Info().
		Int64("restaurant_id", id).
		Int64("reservation_id", reservationID).
		Str("state", string(to)).
		Msg("Reservation state changed")
	s.publish(events.ReservationStateChanged, reservationEvent(id, changed))
	return changed, nil
}

// Reservation returns one reservation.
func (s *RestaurantService) Reservation(ctx context.Context, id, reservationID int64) (*models.Reservation, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return booking.Get(r, reservationID)
}

// Reservations returns the reservations starting on date.
func (s *RestaurantService) Reservations(ctx context.Context, id int64, date models.Date) ([]models.Reservation, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return booking.ByDate(r, date), nil
}

// SpotReservations returns the reservations of one spot starting on date.
func (s *RestaurantService) SpotReservations(ctx context.Context, id, spotID int64, date models.Date) ([]models.Reservation, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return booking.SpotReservations(r, spotID, date)
}

// Queue returns the reservations waiting for approval.
func (s *RestaurantService) Queue(ctx context.Context, id int64) ([]models.Reservation, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return booking.Queue(r), nil
}

// ExportReservations writes the reservations of a day as an xlsx workbook.
func (s *RestaurantService) ExportReservations(ctx context.Context, id int64, date models.Date, w io.Writer) error {
	r, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	book := report.NewWorkbook()
	defer book.Close()

	if err := report.WriteDay(book, r, date, booking.ByDate(r, date)); err != nil {
		return fmt.Errorf("render reservations of %s: %w", date, err)
	}
	_, err = book.WriteTo(w)
	return err
}

// AdvanceAll applies the clock-driven transitions to every restaurant and
// returns the number of reservations that moved.
func (s *RestaurantService) AdvanceAll(ctx context.Context) (int, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	var errs []error
	for _, listed := range all {
		var changed []int64
		saved, err := s.update(ctx, listed.ID, "advance", func(r *models.Restaurant) error {
			changed = s.ledger.Advance(r, s.clock.Now())
			if len(changed) == 0 {
				return errUnchanged
			}
			return nil
		})
		if errors.Is(err, errUnchanged) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("advance restaurant %d: %w", listed.ID, err))
			continue
		}

		for _, resID := range changed {
			res := saved.Reservation(resID)
			if res == nil {
				continue
			}
			metrics.IncStateChange(string(res.State))
			s.publish(events.ReservationStateChanged, reservationEvent(saved.ID, res))
		}
		total += len(changed)
		s.logger.Info().Int64("restaurant_id", saved.ID).Int("reservations", len(changed)).Msg("Reservations advanced")
	}

	metrics.AddLifecycleTransitions(total)
	return total, errors.Join(errs...)
}
