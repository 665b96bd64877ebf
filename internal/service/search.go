// Package service contains the business logic of the ticket counter.
// Services validate inputs, enforce the booking rules and orchestrate calls
// to the upstream backend, the session store and the sales journal. They
// depend on interfaces, never on concrete clients or SQL.
package service

import (
	"context"
	"fmt"

	"github.com/busops/ticket-counter/internal/domain"
)

// TripSearcher runs itinerary searches against the backend.
// Satisfied by *backend.Client.
type TripSearcher interface {
	SearchTrips(ctx context.Context, f domain.SearchFilter) (domain.SearchResult, error)
}

// SearchService resolves and validates search filters and runs searches.
type SearchService struct {
	trips TripSearcher
}

// NewSearchService constructs a SearchService.
func NewSearchService(trips TripSearcher) *SearchService {
	return &SearchService{trips: trips}
}

// Prepare resolves the company the actor searches for and validates the
// filter. Nothing is sent upstream.
func (s *SearchService) Prepare(actor domain.ActingUser, f domain.SearchFilter) (domain.SearchFilter, error) {
	if !actor.CanSell() {
		return domain.SearchFilter{}, fmt.Errorf("service.SearchService.Prepare: %w: role %q cannot sell tickets", domain.ErrForbidden, actor.Role)
	}
	f.CompanyID = actor.ResolveCompany(f.CompanyID)
	if err := f.Validate(); err != nil {
		return domain.SearchFilter{}, fmt.Errorf("service.SearchService.Prepare: %w", err)
	}
	return f, nil
}

// Search runs one search. A filter that fails validation never reaches the
// backend. An empty result is not an error; a backend failure is.
func (s *SearchService) Search(ctx context.Context, actor domain.ActingUser, f domain.SearchFilter) (domain.SearchResult, error) {
	f, err := s.Prepare(actor, f)
	if err != nil {
		return domain.SearchResult{}, err
	}
	res, err := s.trips.SearchTrips(ctx, f)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("service.SearchService.Search: %w", err)
	}
	return res, nil
}
