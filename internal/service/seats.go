package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/busops/ticket-counter/internal/domain"
)

// SeatMapper fetches the seat map of one leg. Satisfied by *backend.Client.
type SeatMapper interface {
	SeatMap(ctx context.Context, leg domain.TripLeg) ([]domain.Seat, error)
}

// SeatService aggregates the seat maps of every leg of an itinerary.
type SeatService struct {
	seats SeatMapper
}

// NewSeatService constructs a SeatService.
func NewSeatService(seats SeatMapper) *SeatService {
	return &SeatService{seats: seats}
}

// LoadSeats fetches the seat map of every leg concurrently, each between the
// leg's own boarding and alighting stations. It is all-or-nothing: if any leg
// fails, the remaining requests are cancelled and no partial map is returned.
// The error wraps domain.ErrSeatLoad.
func (s *SeatService) LoadSeats(ctx context.Context, legs []domain.TripLeg) (domain.SeatMap, error) {
	if len(legs) == 0 {
		return nil, fmt.Errorf("service.SeatService.LoadSeats: %w: no legs", domain.ErrValidation)
	}

	perLeg := make([][]domain.Seat, len(legs))
	g, gctx := errgroup.WithContext(ctx)
	for i, leg := range legs {
		g.Go(func() error {
			seats, err := s.seats.SeatMap(gctx, leg)
			if err != nil {
				return err
			}
			perLeg[i] = seats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("service.SeatService.LoadSeats: %w: %w", domain.ErrSeatLoad, err)
	}

	m := make(domain.SeatMap, len(legs))
	for i, leg := range legs {
		if perLeg[i] == nil {
			perLeg[i] = []domain.Seat{}
		}
		m[leg.ID] = perLeg[i]
	}
	return m, nil
}
