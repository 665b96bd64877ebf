package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/busops/ticket-counter/internal/domain"
	"github.com/busops/ticket-counter/internal/receipt"
	"github.com/busops/ticket-counter/internal/repo"
	"github.com/busops/ticket-counter/internal/session"
)

// SeatLoadFailedMessage is stored on the session when its seat maps could
// not be loaded.
const SeatLoadFailedMessage = "Could not load the seat maps. Select the itinerary again to retry."

// settleTimeout bounds saving a checkout outcome after the request that
// started it is gone.
const settleTimeout = 10 * time.Second

// defaultCheckoutTimeout is used when BookingDeps.CheckoutTimeout is zero.
const defaultCheckoutTimeout = 2 * time.Minute

// BookingDeps are the collaborators of a BookingService.
type BookingDeps struct {
	Sessions     session.Store
	Search       *SearchService
	Seats        *SeatService
	Reservations *ReservationService
	Sales        repo.SaleRepo // nil disables the sales journal
	Logger       *slog.Logger

	// RecheckSeats re-fetches every seat map at checkout and refuses to
	// submit seats that became unavailable.
	RecheckSeats bool

	// CheckoutTimeout is how long a session may sit in checkout before it
	// is treated as abandoned and returned to seats_complete. It must
	// exceed the longest submission, re-check included.
	CheckoutTimeout time.Duration
}

// BookingService runs the booking workflow of a session: search, pick an
// itinerary, pick seats, check out. Each operation loads the session, applies
// one domain transition and saves it; network calls happen between loads, so
// results that arrive after the session moved on are dropped.
type BookingService struct {
	sessions     session.Store
	search       *SearchService
	seats        *SeatService
	reservations *ReservationService
	sales        repo.SaleRepo
	log          *slog.Logger
	recheck      bool
	stuckAfter   time.Duration
	now          func() time.Time
}

// NewBookingService constructs a BookingService.
func NewBookingService(d BookingDeps) *BookingService {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	stuckAfter := d.CheckoutTimeout
	if stuckAfter <= 0 {
		stuckAfter = defaultCheckoutTimeout
	}
	return &BookingService{
		sessions:     d.Sessions,
		search:       d.Search,
		seats:        d.Seats,
		reservations: d.Reservations,
		sales:        d.Sales,
		log:          log,
		recheck:      d.RecheckSeats,
		stuckAfter:   stuckAfter,
		now:          time.Now,
	}
}

// Start opens a new session for actor.
func (b *BookingService) Start(ctx context.Context, actor domain.ActingUser) (domain.Session, error) {
	if !actor.CanSell() {
		return domain.Session{}, fmt.Errorf("service.BookingService.Start: %w: role %q cannot sell tickets", domain.ErrForbidden, actor.Role)
	}
	s := domain.NewSession(actor, b.now().UTC())
	if err := b.sessions.Create(ctx, &s); err != nil {
		return domain.Session{}, fmt.Errorf("service.BookingService.Start: %w", err)
	}
	return s, nil
}

// Get returns one of actor's sessions. Sessions of other users are reported
// as not found.
func (b *BookingService) Get(ctx context.Context, actor domain.ActingUser, id uuid.UUID) (domain.Session, error) {
	s, err := b.load(ctx, actor, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("service.BookingService.Get: %w", err)
	}
	return s, nil
}

// Discard deletes one of actor's sessions.
func (b *BookingService) Discard(ctx context.Context, actor domain.ActingUser, id uuid.UUID) error {
	if _, err := b.load(ctx, actor, id); err != nil {
		return fmt.Errorf("service.BookingService.Discard: %w", err)
	}
	if err := b.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.BookingService.Discard: %w", err)
	}
	return nil
}

// Search starts a new search in the session, discarding any previous
// itinerary and selection. An invalid filter fails before the session is
// touched. A backend failure leaves the session searching and is returned as
// an error, distinct from an empty result.
func (b *BookingService) Search(ctx context.Context, actor domain.ActingUser, id uuid.UUID, f domain.SearchFilter) (domain.Session, error) {
	f, err := b.search.Prepare(actor, f)
	if err != nil {
		return domain.Session{}, err
	}

	var gen int64
	s, err := b.update(ctx, actor, id, func(s *domain.Session) (bool, error) {
		if err := s.BeginSearch(f); err != nil {
			return false, err
		}
		gen = s.Generation
		return true, nil
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("service.BookingService.Search: %w", err)
	}

	res, err := b.search.Search(ctx, actor, f)
	if err != nil {
		return s, fmt.Errorf("service.BookingService.Search: %w", err)
	}

	s, err = b.update(ctx, actor, id, func(s *domain.Session) (bool, error) {
		if s.Generation != gen || s.State != domain.StateSearching {
			b.log.InfoContext(ctx, "dropping superseded search result", "session_id", id)
			return false, nil
		}
		return true, s.SetResults(res)
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("service.BookingService.Search: %w", err)
	}
	return s, nil
}

// SelectItinerary chooses the itinerary at index in the kind bucket of the
// current results and loads the seat maps of all its legs. A seat-load
// failure is recorded on the session, which stays in leg_selected, and is
// returned as an error wrapping domain.ErrSeatLoad.
func (b *BookingService) SelectItinerary(ctx context.Context, actor domain.ActingUser, id uuid.UUID, kind domain.ItineraryKind, index int) (domain.Session, error) {
	var (
		it  domain.Itinerary
		gen int64
	)
	_, err := b.update(ctx, actor, id, func(s *domain.Session) (bool, error) {
		if s.Results == nil {
			return false, fmt.Errorf("%w: no search results", domain.ErrInvalidState)
		}
		found, ok := s.Results.Find(kind, index)
		if !ok {
			return false, fmt.Errorf("%w: no %s itinerary at index %d", domain.ErrNotFound, kind, index)
		}
		if err := found.Validate(); err != nil {
			return false, err
		}
		g, err := s.SelectItinerary(found)
		if err != nil {
			return false, err
		}
		it, gen = found, g
		return true, nil
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("service.BookingService.SelectItinerary: %w", err)
	}

	seats, loadErr := b.seats.LoadSeats(ctx, it.Legs)
	if loadErr != nil {
		b.log.WarnContext(ctx, "seat map load failed", "session_id", id, "generation", gen, "error", loadErr)
	}

	s, err := b.update(ctx, actor, id, func(s *domain.Session) (bool, error) {
		var applied bool
		if loadErr != nil {
			applied = s.FailSeats(gen, SeatLoadFailedMessage)
		} else {
			applied = s.ApplySeats(gen, seats)
		}
		if !applied {
			b.log.InfoContext(ctx, "dropping stale seat map", "session_id", id, "generation", gen, "current", s.Generation)
		}
		return applied, nil
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("service.BookingService.SelectItinerary: %w", err)
	}
	if loadErr != nil {
		return s, fmt.Errorf("service.BookingService.SelectItinerary: %w", loadErr)
	}
	return s, nil
}

// ToggleSeat flips one seat of one leg. Toggling an unavailable seat is a
// no-op that still returns the session.
func (b *BookingService) ToggleSeat(ctx context.Context, actor domain.ActingUser, id uuid.UUID, legID int64, code string) (domain.Session, error) {
	s, err := b.update(ctx, actor, id, func(s *domain.Session) (bool, error) {
		return s.ToggleSeat(legID, code)
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("service.BookingService.ToggleSeat: %w", err)
	}
	return s, nil
}

// BackToResults discards the chosen itinerary and returns to the results.
func (b *BookingService) BackToResults(ctx context.Context, actor domain.ActingUser, id uuid.UUID) (domain.Session, error) {
	s, err := b.update(ctx, actor, id, func(s *domain.Session) (bool, error) {
		return true, s.BackToResults()
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("service.BookingService.BackToResults: %w", err)
	}
	return s, nil
}

// Checkout submits the selection as one reservation covering every leg.
//
// The session sits in checkout while the submission is in flight, which
// blocks seat changes and concurrent checkouts. The outcome, success or
// business rejection, is stored on the session and journaled. On rejection
// the selection is kept so the staff member can retry or change seats.
//
// Once submission has started, the outcome is saved and journaled even if
// the caller goes away, so the session never stays in checkout.
func (b *BookingService) Checkout(ctx context.Context, actor domain.ActingUser, id uuid.UUID) (domain.Session, error) {
	s, err := b.update(ctx, actor, id, func(s *domain.Session) (bool, error) {
		return true, s.BeginCheckout()
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("service.BookingService.Checkout: %w", err)
	}

	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	if b.recheck {
		fresh, err := b.seats.LoadSeats(ctx, s.Itinerary.Legs)
		if err != nil {
			s.AbortCheckout()
			b.persist(settleCtx, &s)
			return s, fmt.Errorf("service.BookingService.Checkout: recheck: %w", err)
		}
		dropped := s.Selection.Prune(fresh)
		s.Seats = fresh
		if len(dropped) > 0 {
			_ = s.FinishCheckout(domain.ReservationResult{Success: false, Message: unavailableMessage(*s.Itinerary, dropped)})
			b.persist(settleCtx, &s)
			return s, nil
		}
	}

	res, err := b.reservations.Submit(ctx, actor, *s.Itinerary, s.Selection)
	if err != nil {
		s.AbortCheckout()
		b.persist(settleCtx, &s)
		return s, fmt.Errorf("service.BookingService.Checkout: %w", err)
	}

	b.journal(settleCtx, s, res)
	_ = s.FinishCheckout(res)
	b.persist(settleCtx, &s)
	return s, nil
}

// Receipt renders the PDF receipt of a successful reservation and returns it
// with a download file name.
func (b *BookingService) Receipt(ctx context.Context, actor domain.ActingUser, id uuid.UUID) ([]byte, string, error) {
	s, err := b.load(ctx, actor, id)
	if err != nil {
		return nil, "", fmt.Errorf("service.BookingService.Receipt: %w", err)
	}
	if s.State != domain.StateSubmittedSuccess {
		return nil, "", fmt.Errorf("service.BookingService.Receipt: %w: no confirmed reservation", domain.ErrInvalidState)
	}
	pdf, err := receipt.Render(s, b.now())
	if err != nil {
		return nil, "", fmt.Errorf("service.BookingService.Receipt: %w", err)
	}
	return pdf, "receipt-" + s.ID.String() + ".pdf", nil
}

// load returns actor's session. A session owned by someone else is reported
// as not found. A checkout whose outcome was never saved is released back
// to seats_complete once it is older than the checkout timeout.
func (b *BookingService) load(ctx context.Context, actor domain.ActingUser, id uuid.UUID) (domain.Session, error) {
	s, err := b.sessions.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if s.Actor.ID != actor.ID {
		return domain.Session{}, domain.ErrNotFound
	}
	if s.State == domain.StateCheckout && b.now().Sub(s.UpdatedAt) > b.stuckAfter {
		b.log.WarnContext(ctx, "releasing abandoned checkout", "session_id", s.ID, "since", s.UpdatedAt)
		s.AbortCheckout()
	}
	return s, nil
}

// update loads the session, applies fn and saves it if fn reports a change.
// A concurrent change between load and save surfaces as domain.ErrConflict.
func (b *BookingService) update(ctx context.Context, actor domain.ActingUser, id uuid.UUID, fn func(*domain.Session) (bool, error)) (domain.Session, error) {
	s, err := b.load(ctx, actor, id)
	if err != nil {
		return domain.Session{}, err
	}
	changed, err := fn(&s)
	if err != nil {
		return domain.Session{}, err
	}
	if !changed {
		return s, nil
	}
	if err := b.sessions.Save(ctx, &s); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

// persist saves a session leaving checkout. Only a delete can race with it,
// so a failure is logged and the in-memory outcome is still returned.
func (b *BookingService) persist(ctx context.Context, s *domain.Session) {
	if err := b.sessions.Save(ctx, s); err != nil {
		level := slog.LevelError
		if errors.Is(err, domain.ErrNotFound) {
			level = slog.LevelWarn
		}
		b.log.Log(ctx, level, "saving checkout outcome", "session_id", s.ID, "state", s.State, "error", err)
	}
}

// journal appends the submission outcome to the sales journal. A failed
// write is logged and never changes the outcome.
func (b *BookingService) journal(ctx context.Context, s domain.Session, res domain.ReservationResult) {
	if b.sales == nil {
		return
	}
	tripIDs := make([]int64, 0, len(s.Itinerary.Legs))
	for _, l := range s.Itinerary.Legs {
		tripIDs = append(tripIDs, l.ID)
	}
	var companyID int64
	if s.Filter != nil {
		companyID = s.Filter.CompanyID
	}

	sale := domain.Sale{
		SessionID:  s.ID,
		StaffID:    s.Actor.ID,
		CompanyID:  companyID,
		Kind:       s.Itinerary.Kind,
		TripIDs:    tripIDs,
		SeatCount:  s.SeatCount(),
		TotalPrice: s.AmountDue(),
		Success:    res.Success,
		Message:    res.Message,
	}
	if _, err := b.sales.Create(ctx, sale); err != nil {
		b.log.ErrorContext(ctx, "recording sale", "session_id", s.ID, "success", res.Success, "error", err)
	}
}

// unavailableMessage names the seats dropped by a re-check, in leg order.
func unavailableMessage(it domain.Itinerary, dropped map[int64][]domain.Seat) string {
	var parts []string
	for _, l := range it.Legs {
		for _, seat := range dropped[l.ID] {
			parts = append(parts, fmt.Sprintf("%s (%s)", seat.Code, l.TripCode))
		}
	}
	return "Seats no longer available: " + strings.Join(parts, ", ")
}
