package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/busops/ticket-counter/internal/domain"
	"github.com/busops/ticket-counter/internal/repo"
)

// SalesService reads the sales journal. Staff and managers see their own
// company; admins see every company unless they ask for one.
type SalesService struct {
	repo repo.SaleRepo
}

// NewSalesService constructs a SalesService backed by the provided repo.
func NewSalesService(r repo.SaleRepo) *SalesService {
	return &SalesService{repo: r}
}

// scope returns the company filter for actor, 0 meaning all companies. Only
// admins may get 0.
func scope(actor domain.ActingUser, requested int64) (int64, error) {
	if !actor.CanSell() {
		return 0, fmt.Errorf("%w: role %q cannot read sales", domain.ErrForbidden, actor.Role)
	}
	if actor.Role == domain.RoleAdmin {
		return requested, nil
	}
	if actor.CompanyID <= 0 {
		return 0, fmt.Errorf("%w: role %q has no company", domain.ErrForbidden, actor.Role)
	}
	return actor.CompanyID, nil
}

// ListPaged returns one page of journal entries, newest first, and the total.
func (s *SalesService) ListPaged(ctx context.Context, actor domain.ActingUser, companyID int64, p domain.PaginationParams) ([]domain.Sale, int64, error) {
	company, err := scope(actor, companyID)
	if err != nil {
		return nil, 0, fmt.Errorf("service.SalesService.ListPaged: %w", err)
	}
	sales, total, err := s.repo.ListPaged(ctx, company, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.SalesService.ListPaged: %w", err)
	}
	return sales, total, nil
}

// GetByID returns one journal entry visible to actor.
func (s *SalesService) GetByID(ctx context.Context, actor domain.ActingUser, id uuid.UUID) (domain.Sale, error) {
	company, err := scope(actor, 0)
	if err != nil {
		return domain.Sale{}, fmt.Errorf("service.SalesService.GetByID: %w", err)
	}
	sale, err := s.repo.GetByID(ctx, company, id)
	if err != nil {
		return domain.Sale{}, fmt.Errorf("service.SalesService.GetByID: %w", err)
	}
	return sale, nil
}

// Export returns every journal entry visible to actor, oldest first.
func (s *SalesService) Export(ctx context.Context, actor domain.ActingUser, companyID int64) ([]domain.Sale, error) {
	company, err := scope(actor, companyID)
	if err != nil {
		return nil, fmt.Errorf("service.SalesService.Export: %w", err)
	}
	sales, err := s.repo.List(ctx, company)
	if err != nil {
		return nil, fmt.Errorf("service.SalesService.Export: %w", err)
	}
	return sales, nil
}
