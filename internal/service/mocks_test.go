package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/busops/ticket-counter/internal/domain"
	"github.com/busops/ticket-counter/internal/repo"
	"github.com/busops/ticket-counter/internal/service"
)

// mockBackend is a hand-written test double for the upstream backend.
// Each method is a function field; set only the ones a test needs.
type mockBackend struct {
	searchTrips func(ctx context.Context, f domain.SearchFilter) (domain.SearchResult, error)
	seatMap     func(ctx context.Context, leg domain.TripLeg) ([]domain.Seat, error)
	reserve     func(ctx context.Context, r domain.ReservationRequest) (domain.ReservationResult, error)
}

func (m *mockBackend) SearchTrips(ctx context.Context, f domain.SearchFilter) (domain.SearchResult, error) {
	return m.searchTrips(ctx, f)
}
func (m *mockBackend) SeatMap(ctx context.Context, leg domain.TripLeg) ([]domain.Seat, error) {
	return m.seatMap(ctx, leg)
}
func (m *mockBackend) Reserve(ctx context.Context, r domain.ReservationRequest) (domain.ReservationResult, error) {
	return m.reserve(ctx, r)
}

var (
	_ service.TripSearcher = (*mockBackend)(nil)
	_ service.SeatMapper   = (*mockBackend)(nil)
	_ service.Reserver     = (*mockBackend)(nil)
)

type mockSaleRepo struct {
	create    func(ctx context.Context, sale domain.Sale) (domain.Sale, error)
	getByID   func(ctx context.Context, companyID int64, id uuid.UUID) (domain.Sale, error)
	listPaged func(ctx context.Context, companyID int64, p domain.PaginationParams) ([]domain.Sale, int64, error)
	list      func(ctx context.Context, companyID int64) ([]domain.Sale, error)
}

func (m *mockSaleRepo) Create(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	return m.create(ctx, sale)
}
func (m *mockSaleRepo) GetByID(ctx context.Context, companyID int64, id uuid.UUID) (domain.Sale, error) {
	return m.getByID(ctx, companyID, id)
}
func (m *mockSaleRepo) ListPaged(ctx context.Context, companyID int64, p domain.PaginationParams) ([]domain.Sale, int64, error) {
	return m.listPaged(ctx, companyID, p)
}
func (m *mockSaleRepo) List(ctx context.Context, companyID int64) ([]domain.Sale, error) {
	return m.list(ctx, companyID)
}

var _ repo.SaleRepo = (*mockSaleRepo)(nil)

// ---- fixtures --------------------------------------------------------------

var (
	day    = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	staff  = domain.ActingUser{ID: 5, CompanyID: 7, Role: domain.RoleStaff}
	admin  = domain.ActingUser{ID: 1, Role: domain.RoleAdmin}
	driver = domain.ActingUser{ID: 9, CompanyID: 7, Role: domain.RoleDriver}
)

func leg(id, from, to int64, start time.Time, price int64) domain.TripLeg {
	return domain.TripLeg{
		ID:            id,
		TripCode:      "T" + start.Format("1504"),
		FromLocation:  "Ha Noi",
		ToLocation:    "Hai Phong",
		FromStationID: from,
		ToStationID:   to,
		TimeStart:     start,
		TimeEnd:       start.Add(time.Hour),
		Price:         price,
	}
}

// directLeg is trip 42 from station 11 to 21 at 150000.
var directLeg = leg(42, 11, 21, day.Add(8*time.Hour), 150_000)

// seatIDs are the backend ids of the seats every test leg offers.
var seatIDs = map[string]int64{"A1": 91, "A2": 92, "A3": 101, "B1": 105}

// seats returns the seat map of a leg with the given codes taken.
func seats(taken ...string) []domain.Seat {
	out := []domain.Seat{}
	for _, code := range []string{"A1", "A2", "A3", "B1"} {
		avail := true
		for _, t := range taken {
			if t == code {
				avail = false
			}
		}
		out = append(out, domain.Seat{ID: seatIDs[code], Code: code, Available: avail})
	}
	return out
}
