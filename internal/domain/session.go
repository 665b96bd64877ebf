package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionState is a step of the booking workflow.
type SessionState string

const (
	StateSearching        SessionState = "searching"
	StateResults          SessionState = "results"
	StateLegSelected      SessionState = "leg_selected"
	StateSeatSelecting    SessionState = "seat_selecting"
	StateSeatsComplete    SessionState = "seats_complete"
	StateCheckout         SessionState = "checkout"
	StateSubmittedSuccess SessionState = "submitted_success"
	StateSubmittedFailure SessionState = "submitted_failure"
)

// Session is one booking session of one staff member:
//
//	searching → results → leg_selected → seat_selecting → seats_complete
//	  → checkout → submitted_success | submitted_failure
//
// The methods below are the only transitions. They are pure; services do the
// network calls and persist the session through a store.
//
// Version is owned by the session store (optimistic concurrency).
// Generation changes whenever the chosen itinerary changes, so seat maps
// fetched for an abandoned itinerary can be recognised and dropped.
type Session struct {
	ID         uuid.UUID    `json:"id"`
	Actor      ActingUser   `json:"actor"`
	State      SessionState `json:"state"`
	Version    int64        `json:"version"`
	Generation int64        `json:"generation"`

	Filter    *SearchFilter      `json:"filter,omitempty"`
	Results   *SearchResult      `json:"results,omitempty"`
	Itinerary *Itinerary         `json:"itinerary,omitempty"`
	Seats     SeatMap            `json:"seats,omitempty"`
	Selection SeatSelection      `json:"selection,omitempty"`
	SeatError string             `json:"seat_error,omitempty"`
	Result    *ReservationResult `json:"result,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession returns an empty session in the searching state.
func NewSession(actor ActingUser, now time.Time) Session {
	return Session{
		ID:        uuid.New(),
		Actor:     actor,
		State:     StateSearching,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Ready reports whether every leg of the chosen itinerary has a seat.
// Computed from the selection on every call.
func (s *Session) Ready() bool {
	if s.Itinerary == nil {
		return false
	}
	return s.Selection.AllLegsHaveSeat(s.Itinerary.Legs)
}

// TotalPrice is the price of one passenger on the chosen itinerary.
func (s *Session) TotalPrice() int64 {
	if s.Itinerary == nil {
		return 0
	}
	return s.Itinerary.TotalPrice()
}

// AmountDue is the price of every selected seat on every leg.
func (s *Session) AmountDue() int64 {
	if s.Itinerary == nil {
		return 0
	}
	var total int64
	for _, l := range s.Itinerary.Legs {
		total += l.Price * int64(len(s.Selection[l.ID]))
	}
	return total
}

// SeatCount is the number of selected seats across all legs.
func (s *Session) SeatCount() int {
	n := 0
	for _, seats := range s.Selection {
		n += len(seats)
	}
	return n
}

// BeginSearch starts a new search, discarding everything of the previous one.
// Allowed in every state except checkout.
func (s *Session) BeginSearch(f SearchFilter) error {
	if s.State == StateCheckout {
		return s.invalid("search")
	}
	s.resetItinerary()
	s.Filter = &f
	s.Results = nil
	s.State = StateSearching
	return nil
}

// SetResults records a successful search.
func (s *Session) SetResults(r SearchResult) error {
	if s.State != StateSearching {
		return s.invalid("set results")
	}
	s.Results = &r
	s.State = StateResults
	return nil
}

// SelectItinerary chooses an itinerary from the current results and returns
// the new generation. Choosing again from any seat-selection state abandons
// the previous itinerary and its selection.
func (s *Session) SelectItinerary(it Itinerary) (int64, error) {
	switch s.State {
	case StateResults, StateLegSelected, StateSeatSelecting, StateSeatsComplete, StateSubmittedFailure:
	default:
		return 0, s.invalid("select itinerary")
	}
	s.resetItinerary()
	s.Itinerary = &it
	s.State = StateLegSelected
	return s.Generation, nil
}

// ApplySeats installs the seat maps loaded for generation gen.
// It reports false, leaving the session untouched, when gen is stale.
func (s *Session) ApplySeats(gen int64, m SeatMap) bool {
	if gen != s.Generation || s.State != StateLegSelected {
		return false
	}
	s.Seats = m
	s.Selection = SeatSelection{}
	s.SeatError = ""
	s.State = StateSeatSelecting
	return true
}

// FailSeats records a failed seat load for generation gen. The session stays
// in leg_selected; the caller must select an itinerary again.
func (s *Session) FailSeats(gen int64, msg string) bool {
	if gen != s.Generation || s.State != StateLegSelected {
		return false
	}
	s.SeatError = msg
	return true
}

// ToggleSeat flips one seat of one leg. Toggling an unavailable seat changes
// nothing. It reports whether the selection changed.
func (s *Session) ToggleSeat(legID int64, code string) (bool, error) {
	switch s.State {
	case StateSeatSelecting, StateSeatsComplete, StateSubmittedFailure:
	default:
		return false, s.invalid("toggle seat")
	}
	if _, ok := s.Itinerary.Leg(legID); !ok {
		return false, fmt.Errorf("%w: leg %d is not part of the itinerary", ErrNotFound, legID)
	}
	seat, ok := s.Seats.Find(legID, code)
	if !ok {
		return false, fmt.Errorf("%w: seat %q on leg %d", ErrNotFound, code, legID)
	}
	if s.Selection == nil {
		s.Selection = SeatSelection{}
	}
	changed := s.Selection.Toggle(legID, seat)
	if changed {
		s.Result = nil
		s.settleSelection()
	}
	return changed, nil
}

// BeginCheckout moves to checkout. It requires a seat on every leg and the
// same number of seats on every leg. Retrying after a failed submission is
// allowed without searching again.
func (s *Session) BeginCheckout() error {
	if s.State != StateSeatsComplete && s.State != StateSubmittedFailure {
		return s.invalid("checkout")
	}
	if !s.Ready() {
		return fmt.Errorf("%w: every leg needs at least one seat", ErrValidation)
	}
	if !s.Selection.SeatCountsMatch(s.Itinerary.Legs) {
		return fmt.Errorf("%w: every leg must have the same number of seats", ErrValidation)
	}
	s.Result = nil
	s.State = StateCheckout
	return nil
}

// FinishCheckout records the submission outcome. The selection is kept in
// both outcomes.
func (s *Session) FinishCheckout(r ReservationResult) error {
	if s.State != StateCheckout {
		return s.invalid("finish checkout")
	}
	s.Result = &r
	if r.Success {
		s.State = StateSubmittedSuccess
	} else {
		s.State = StateSubmittedFailure
	}
	return nil
}

// AbortCheckout leaves checkout without an outcome, returning to seat
// selection.
func (s *Session) AbortCheckout() {
	if s.State != StateCheckout {
		return
	}
	s.settleSelection()
}

// BackToResults returns to the result list, discarding the chosen itinerary,
// its seat maps and its selection.
func (s *Session) BackToResults() error {
	switch s.State {
	case StateLegSelected, StateSeatSelecting, StateSeatsComplete, StateSubmittedSuccess, StateSubmittedFailure:
	default:
		return s.invalid("back to results")
	}
	s.resetItinerary()
	s.State = StateResults
	return nil
}

func (s *Session) resetItinerary() {
	s.Generation++
	s.Itinerary = nil
	s.Seats = nil
	s.Selection = nil
	s.SeatError = ""
	s.Result = nil
}

func (s *Session) settleSelection() {
	if s.Ready() {
		s.State = StateSeatsComplete
	} else {
		s.State = StateSeatSelecting
	}
}

func (s *Session) invalid(op string) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidState, op, s.State)
}
