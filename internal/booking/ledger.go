package booking

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"restobook/internal/availability"
	"restobook/internal/clock"
	"restobook/internal/hours"
	"restobook/internal/idgen"
	"restobook/internal/models"
)

// Request describes a reservation to create or the new shape of an edited one.
type Request struct {
	DateTime     time.Time       `json:"dateTime"`
	PeopleNumber int             `json:"peopleNumber"`
	SpotIDs      []int64         `json:"spots"`
	Customer     models.Customer `json:"customer"`
	Note         string          `json:"note,omitempty"`
}

// Ledger mutates the reservations of a loaded restaurant. It holds no state
// of its own; callers persist the restaurant afterwards.
type Ledger struct {
	fsm   *FSM
	ids   idgen.Generator
	clock clock.Clock
	codes func() int
}

// NewLedger creates a ledger.
func NewLedger(ids idgen.Generator, clk clock.Clock) *Ledger {
	return &Ledger{
		fsm:   NewFSM(),
		ids:   ids,
		clock: clk,
		codes: verificationCode,
	}
}

// FSM exposes the state machine.
func (l *Ledger) FSM() *FSM {
	return l.fsm
}

func verificationCode() int {
	return int(uuid.New().ID()%9000) + 1000
}

// Create books a guest reservation. It waits in PENDING for staff approval
// and carries a verification code.
func (l *Ledger) Create(r *models.Restaurant, req Request) (*models.Reservation, error) {
	res, err := l.create(r, req, models.StatePending)
	if err != nil {
		return nil, err
	}
	code := l.codes()
	res.VerificationCode = &code
	return l.append(r, res), nil
}

// CreateByStaff books a reservation made by restaurant staff, which is
// already confirmed.
func (l *Ledger) CreateByStaff(r *models.Restaurant, req Request) (*models.Reservation, error) {
	res, err := l.create(r, req, models.StateAccepted)
	if err != nil {
		return nil, err
	}
	res.IsVerified = true
	return l.append(r, res), nil
}

func (l *Ledger) create(r *models.Restaurant, req Request, state models.ReservationState) (models.Reservation, error) {
	if err := l.check(r, req, 0); err != nil {
		return models.Reservation{}, err
	}

	now := l.clock.Now()
	return models.Reservation{
		ID:            l.ids.Next(),
		StartDateTime: req.DateTime,
		EndDateTime:   req.DateTime.Add(r.AvgReservationTime()),
		PeopleNumber:  req.PeopleNumber,
		State:         state,
		SpotIDs:       append([]int64(nil), req.SpotIDs...),
		Customer:      req.Customer,
		Note:          req.Note,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (l *Ledger) append(r *models.Restaurant, res models.Reservation) *models.Reservation {
	r.Reservations = append(r.Reservations, res)
	out := res
	return &out
}

// Edit moves a PENDING or ACCEPTED reservation to a new time, party size or
// set of spots. The reservation itself does not count as taking its spots.
func (l *Ledger) Edit(r *models.Restaurant, id int64, req Request) (*models.Reservation, error) {
	res := r.Reservation(id)
	if res == nil {
		return nil, models.NewNotFound("reservation", id)
	}
	if res.State != models.StatePending && res.State != models.StateAccepted {
		return nil, &models.ConflictError{
			Resource: "reservation",
			IDs:      []int64{id},
			Reason:   fmt.Sprintf("cannot edit a %s reservation", res.State),
		}
	}
	if err := l.check(r, req, id); err != nil {
		return nil, err
	}

	res.StartDateTime = req.DateTime
	res.EndDateTime = req.DateTime.Add(r.AvgReservationTime())
	res.PeopleNumber = req.PeopleNumber
	res.SpotIDs = append([]int64(nil), req.SpotIDs...)
	res.Customer = req.Customer
	res.Note = req.Note
	res.UpdatedAt = l.clock.Now()

	out := *res
	return &out, nil
}

// Cancel moves a reservation to CANCELED. The record is kept.
func (l *Ledger) Cancel(r *models.Restaurant, id int64) (*models.Reservation, error) {
	return l.ChangeState(r, id, models.StateCanceled)
}

// ChangeState applies a state transition allowed by the FSM.
func (l *Ledger) ChangeState(r *models.Restaurant, id int64, to models.ReservationState) (*models.Reservation, error) {
	res := r.Reservation(id)
	if res == nil {
		return nil, models.NewNotFound("reservation", id)
	}
	if !l.fsm.CanTransition(res.State, to) {
		return nil, &models.ConflictError{
			Resource: "reservation",
			IDs:      []int64{id},
			Reason:   fmt.Sprintf("transition %s -> %s is not allowed", res.State, to),
		}
	}

	res.State = to
	res.UpdatedAt = l.clock.Now()
	out := *res
	return &out, nil
}

// Advance applies the clock driven transitions: ACCEPTED reservations whose
// start has passed become DURING, DURING ones whose end has passed become
// FINISHED. It returns the ids of the changed reservations.
func (l *Ledger) Advance(r *models.Restaurant, now time.Time) []int64 {
	var changed []int64
	for i := range r.Reservations {
		res := &r.Reservations[i]
		moved := false
		if res.State == models.StateAccepted && !res.StartDateTime.After(now) {
			res.State = models.StateDuring
			moved = true
		}
		if res.State == models.StateDuring && !res.EndDateTime.After(now) {
			res.State = models.StateFinished
			moved = true
		}
		if moved {
			res.UpdatedAt = now
			changed = append(changed, res.ID)
		}
	}
	return changed
}

// check validates a request and enforces that its spots are free.
func (l *Ledger) check(r *models.Restaurant, req Request, excludeID int64) error {
	verr := &models.ValidationError{}
	if req.DateTime.IsZero() {
		verr.Add("dateTime", "date time is required")
	} else if req.DateTime.Before(l.clock.Now()) {
		verr.Add("dateTime", "reservation cannot start in the past")
	} else if !hours.IsOpenAt(r, req.DateTime) {
		verr.Add("dateTime", fmt.Sprintf("restaurant does not take reservations at %s", req.DateTime.Format("2006-01-02 15:04")))
	}
	if req.PeopleNumber <= 0 {
		verr.Add("peopleNumber", "people number must be positive")
	}
	if strings.TrimSpace(req.Customer.Name) == "" {
		verr.Add("customer.name", "customer name is required")
	}
	if len(req.SpotIDs) == 0 {
		verr.Add("spots", "at least one spot is required")
	}
	seen := make(map[int64]bool, len(req.SpotIDs))
	for _, id := range req.SpotIDs {
		if seen[id] {
			verr.Add("spots", fmt.Sprintf("spot %d is listed twice", id))
		}
		seen[id] = true
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	for _, id := range req.SpotIDs {
		if r.Spot(id) == nil {
			return models.NewNotFound("spot", id)
		}
	}

	candidate := availability.CandidateInterval(r, req.DateTime)
	taken := availability.TakenSpotsIn(r, candidate, excludeID)
	var conflicting []int64
	for _, id := range req.SpotIDs {
		if taken[id] {
			conflicting = append(conflicting, id)
		}
	}
	if len(conflicting) > 0 {
		return &models.ConflictError{
			Resource: "spot",
			IDs:      conflicting,
			Reason: fmt.Sprintf("already reserved between %s and %s",
				candidate.Start.Format("15:04"), candidate.End.Format("15:04")),
		}
	}
	return nil
}

// Get returns a copy of a reservation.
func Get(r *models.Restaurant, id int64) (*models.Reservation, error) {
	res := r.Reservation(id)
	if res == nil {
		return nil, models.NewNotFound("reservation", id)
	}
	out := *res
	return &out, nil
}

// ByDate returns the reservations starting on date, earliest first.
func ByDate(r *models.Restaurant, date models.Date) []models.Reservation {
	return filter(r, func(res *models.Reservation) bool {
		return models.DateOf(res.StartDateTime) == date
	})
}

// SpotReservations returns the reservations of one spot starting on date.
func SpotReservations(r *models.Restaurant, spotID int64, date models.Date) ([]models.Reservation, error) {
	if r.Spot(spotID) == nil {
		return nil, models.NewNotFound("spot", spotID)
	}
	return filter(r, func(res *models.Reservation) bool {
		return res.HasSpot(spotID) && models.DateOf(res.StartDateTime) == date
	}), nil
}

// Queue returns the reservations waiting for staff approval, earliest first.
func Queue(r *models.Restaurant) []models.Reservation {
	return filter(r, func(res *models.Reservation) bool {
		return res.State == models.StatePending
	})
}

func filter(r *models.Restaurant, keep func(*models.Reservation) bool) []models.Reservation {
	out := []models.Reservation{}
	for i := range r.Reservations {
		if keep(&r.Reservations[i]) {
			out = append(out, r.Reservations[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDateTime.Before(out[j].StartDateTime)
	})
	return out
}
