package models

import "time"

// ReservationState is the lifecycle state of a reservation.
type ReservationState string

const (
	StatePending  ReservationState = "PENDING"
	StateAccepted ReservationState = "ACCEPTED"
	StateCanceled ReservationState = "CANCELED"
	StateDuring   ReservationState = "DURING"
	StateFinished ReservationState = "FINISHED"
)

// ParseReservationState validates a state name.
func ParseReservationState(s string) (ReservationState, bool) {
	switch st := ReservationState(s); st {
	case StatePending, StateAccepted, StateCanceled, StateDuring, StateFinished:
		return st, true
	}
	return "", false
}

// IsTerminal reports whether no further transition is possible.
func (s ReservationState) IsTerminal() bool {
	return s == StateCanceled || s == StateFinished
}

// Customer is the guest the reservation is made for.
type Customer struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email,omitempty"`
}

// Reservation books one or more spots for [StartDateTime, EndDateTime).
type Reservation struct {
	ID               int64            `json:"id"`
	StartDateTime    time.Time        `json:"startDateTime"`
	EndDateTime      time.Time        `json:"endDateTime"`
	PeopleNumber     int              `json:"peopleNumber"`
	State            ReservationState `json:"state"`
	SpotIDs          []int64          `json:"spotIds"`
	Customer         Customer         `json:"customer"`
	Note             string           `json:"note,omitempty"`
	VerificationCode *int             `json:"verificationCode,omitempty"`
	IsVerified       bool             `json:"isVerified"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// Interval returns the reserved span.
func (r *Reservation) Interval() TimeInterval {
	return TimeInterval{Start: r.StartDateTime, End: r.EndDateTime}
}

// HasSpot reports whether spotID is assigned to the reservation.
func (r *Reservation) HasSpot(spotID int64) bool {
	for _, id := range r.SpotIDs {
		if id == spotID {
			return true
		}
	}
	return false
}

// HoldsSpots reports whether the reservation blocks its spots.
func (r *Reservation) HoldsSpots() bool {
	return r.State != StateCanceled
}
