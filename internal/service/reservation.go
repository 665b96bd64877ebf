package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/busops/ticket-counter/internal/domain"
)

// SubmitFailedMessage is shown when a submission fails without a message
// from the backend.
const SubmitFailedMessage = "Reservation submission failed. Please try again."

const confirmedMessage = "Reservation confirmed."

// Reserver submits reservations. Satisfied by *backend.Client.
type Reserver interface {
	Reserve(ctx context.Context, r domain.ReservationRequest) (domain.ReservationResult, error)
}

// ReservationService builds and submits the single atomic reservation that
// covers every leg of an itinerary.
type ReservationService struct {
	reserver Reserver
	log      *slog.Logger
}

// NewReservationService constructs a ReservationService.
func NewReservationService(reserver Reserver, log *slog.Logger) *ReservationService {
	return &ReservationService{reserver: reserver, log: log}
}

// BuildRequest turns a per-leg selection into a reservation request: one
// TripSeats per leg in itinerary order, with the leg's own stations and the
// selected seat ids. The request is one-way and placed for customerID.
func BuildRequest(customerID int64, it domain.Itinerary, sel domain.SeatSelection) (domain.ReservationRequest, error) {
	if !sel.AllLegsHaveSeat(it.Legs) {
		return domain.ReservationRequest{}, fmt.Errorf("%w: every leg needs at least one seat", domain.ErrValidation)
	}

	req := domain.ReservationRequest{
		CustomerID:      customerID,
		IsReturn:        false,
		TripSeats:       make([]domain.TripSeats, 0, len(it.Legs)),
		ReturnTripSeats: []domain.TripSeats{},
	}
	for _, leg := range it.Legs {
		ids := make([]int64, 0, len(sel[leg.ID]))
		for _, seat := range sel[leg.ID] {
			ids = append(ids, seat.ID)
		}
		req.TripSeats = append(req.TripSeats, domain.TripSeats{
			TripID:        leg.ID,
			FromStationID: leg.FromStationID,
			ToStationID:   leg.ToStationID,
			SeatIDs:       ids,
		})
	}
	return req, nil
}

// Submit sends one reservation for every leg of it. The backend commits or
// rejects it as a whole.
//
// The returned error is only for preconditions (forbidden role, incomplete
// selection), checked before anything is sent. Every submission outcome,
// including a transport failure, is reported as a ReservationResult; its
// Message is the backend's when it sent one.
func (s *ReservationService) Submit(ctx context.Context, actor domain.ActingUser, it domain.Itinerary, sel domain.SeatSelection) (domain.ReservationResult, error) {
	if !actor.CanSell() {
		return domain.ReservationResult{}, fmt.Errorf("service.ReservationService.Submit: %w: role %q cannot sell tickets", domain.ErrForbidden, actor.Role)
	}
	req, err := BuildRequest(actor.ID, it, sel)
	if err != nil {
		return domain.ReservationResult{}, fmt.Errorf("service.ReservationService.Submit: %w", err)
	}

	res, err := s.reserver.Reserve(ctx, req)
	if err != nil {
		s.log.ErrorContext(ctx, "reservation submission failed",
			"staff_id", actor.ID,
			"kind", it.Kind,
			"seats", req.SeatCount(),
			"error", err,
		)
		return domain.ReservationResult{Success: false, Message: SubmitFailedMessage}, nil
	}

	switch {
	case res.Message != "":
	case res.Success:
		res.Message = confirmedMessage
	default:
		res.Message = SubmitFailedMessage
	}
	s.log.InfoContext(ctx, "reservation submitted",
		"staff_id", actor.ID,
		"kind", it.Kind,
		"seats", req.SeatCount(),
		"success", res.Success,
	)
	return res, nil
}
