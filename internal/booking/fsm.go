// Package booking implements the reservation ledger of a restaurant.
package booking

import "restobook/internal/models"

// FSM holds the allowed reservation state transitions.
type FSM struct {
	transitions map[models.ReservationState][]models.ReservationState
}

// NewFSM creates the reservation state machine.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[models.ReservationState][]models.ReservationState{
			models.StatePending:  {models.StateAccepted, models.StateCanceled},
			models.StateAccepted: {models.StateDuring, models.StateCanceled},
			models.StateDuring:   {models.StateFinished, models.StateCanceled},
			models.StateCanceled: {},
			models.StateFinished: {},
		},
	}
}

// CanTransition checks if transition is allowed.
func (f *FSM) CanTransition(from, to models.ReservationState) bool {
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Next returns the states reachable from a state.
func (f *FSM) Next(from models.ReservationState) []models.ReservationState {
	return append([]models.ReservationState(nil), f.transitions[from]...)
}
