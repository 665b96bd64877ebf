package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/busops/ticket-counter/internal/auth"
	"github.com/busops/ticket-counter/internal/domain"
	"github.com/busops/ticket-counter/internal/handler"
)

// mockBooking is a test double for handler.BookingServicer.
// Set only the method fields your test needs.
type mockBooking struct {
	start           func(ctx context.Context, actor domain.ActingUser) (domain.Session, error)
	get             func(ctx context.Context, actor domain.ActingUser, id uuid.UUID) (domain.Session, error)
	discard         func(ctx context.Context, actor domain.ActingUser, id uuid.UUID) error
	search          func(ctx context.Context, actor domain.ActingUser, id uuid.UUID, f domain.SearchFilter) (domain.Session, error)
	selectItinerary func(ctx context.Context, actor domain.ActingUser, id uuid.UUID, kind domain.ItineraryKind, index int) (domain.Session, error)
	toggleSeat      func(ctx context.Context, actor domain.ActingUser, id uuid.UUID, legID int64, code string) (domain.Session, error)
	backToResults   func(ctx context.Context, actor domain.ActingUser, id uuid.UUID) (domain.Session, error)
	checkout        func(ctx context.Context, actor domain.ActingUser, id uuid.UUID) (domain.Session, error)
	receipt         func(ctx context.Context, actor domain.ActingUser, id uuid.UUID) ([]byte, string, error)
}

func (m *mockBooking) Start(ctx context.Context, a domain.ActingUser) (domain.Session, error) {
	return m.start(ctx, a)
}
func (m *mockBooking) Get(ctx context.Context, a domain.ActingUser, id uuid.UUID) (domain.Session, error) {
	return m.get(ctx, a, id)
}
func (m *mockBooking) Discard(ctx context.Context, a domain.ActingUser, id uuid.UUID) error {
	return m.discard(ctx, a, id)
}
func (m *mockBooking) Search(ctx context.Context, a domain.ActingUser, id uuid.UUID, f domain.SearchFilter) (domain.Session, error) {
	return m.search(ctx, a, id, f)
}
func (m *mockBooking) SelectItinerary(ctx context.Context, a domain.ActingUser, id uuid.UUID, k domain.ItineraryKind, i int) (domain.Session, error) {
	return m.selectItinerary(ctx, a, id, k, i)
}
func (m *mockBooking) ToggleSeat(ctx context.Context, a domain.ActingUser, id uuid.UUID, legID int64, code string) (domain.Session, error) {
	return m.toggleSeat(ctx, a, id, legID, code)
}
func (m *mockBooking) BackToResults(ctx context.Context, a domain.ActingUser, id uuid.UUID) (domain.Session, error) {
	return m.backToResults(ctx, a, id)
}
func (m *mockBooking) Checkout(ctx context.Context, a domain.ActingUser, id uuid.UUID) (domain.Session, error) {
	return m.checkout(ctx, a, id)
}
func (m *mockBooking) Receipt(ctx context.Context, a domain.ActingUser, id uuid.UUID) ([]byte, string, error) {
	return m.receipt(ctx, a, id)
}

type mockSearch struct {
	search func(ctx context.Context, actor domain.ActingUser, f domain.SearchFilter) (domain.SearchResult, error)
}

func (m *mockSearch) Search(ctx context.Context, a domain.ActingUser, f domain.SearchFilter) (domain.SearchResult, error) {
	return m.search(ctx, a, f)
}

type mockReference struct {
	locations func(ctx context.Context) ([]domain.Location, error)
	stations  func(ctx context.Context, locationID *int64) ([]domain.Station, error)
}

func (m *mockReference) Locations(ctx context.Context) ([]domain.Location, error) {
	return m.locations(ctx)
}
func (m *mockReference) Stations(ctx context.Context, locationID *int64) ([]domain.Station, error) {
	return m.stations(ctx, locationID)
}

type mockSales struct {
	listPaged func(ctx context.Context, actor domain.ActingUser, companyID int64, p domain.PaginationParams) ([]domain.Sale, int64, error)
	getByID   func(ctx context.Context, actor domain.ActingUser, id uuid.UUID) (domain.Sale, error)
	export    func(ctx context.Context, actor domain.ActingUser, companyID int64) ([]domain.Sale, error)
}

func (m *mockSales) ListPaged(ctx context.Context, a domain.ActingUser, c int64, p domain.PaginationParams) ([]domain.Sale, int64, error) {
	return m.listPaged(ctx, a, c, p)
}
func (m *mockSales) GetByID(ctx context.Context, a domain.ActingUser, id uuid.UUID) (domain.Sale, error) {
	return m.getByID(ctx, a, id)
}
func (m *mockSales) Export(ctx context.Context, a domain.ActingUser, c int64) ([]domain.Sale, error) {
	return m.export(ctx, a, c)
}

// compile-time checks: the mocks must satisfy the handler interfaces.
var (
	_ handler.BookingServicer   = (*mockBooking)(nil)
	_ handler.SearchServicer    = (*mockSearch)(nil)
	_ handler.ReferenceServicer = (*mockReference)(nil)
	_ handler.SalesServicer     = (*mockSales)(nil)
)

// ---- helpers ---------------------------------------------------------------

var (
	day   = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	staff = domain.ActingUser{ID: 5, CompanyID: 7, Role: domain.RoleStaff}
)

// asStaff stands in for the JWT middleware: every request is made by staff.
func asStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(auth.WithActor(r.Context(), staff, "tok")))
	})
}

// anonymous lets requests through without an acting user.
func anonymous(next http.Handler) http.Handler { return next }

// newHTTPHandler wires a Server with the given deps into the router, the
// same way main.go does.
func newHTTPHandler(d handler.Deps) http.Handler {
	return handler.NewRouter(handler.NewServer(d), asStaff)
}

func serve(h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[struct {
		Error handler.ErrorDetail `json:"error"`
	}](t, rec).Error.Code
}

func directLeg() domain.TripLeg {
	return domain.TripLeg{
		ID: 42, TripCode: "HN-HP-0800", FromStationID: 11, ToStationID: 21,
		TimeStart: day.Add(8 * time.Hour), TimeEnd: day.Add(10 * time.Hour), Price: 150000,
	}
}

// completeSession is a session with one seat picked on a direct trip.
func completeSession(t *testing.T) domain.Session {
	t.Helper()
	s := domain.NewSession(staff, day)
	require.NoError(t, s.BeginSearch(domain.SearchFilter{Date: day, CompanyID: 7}))
	it := domain.NewDirect(directLeg())
	require.NoError(t, s.SetResults(domain.SearchResult{Direct: []domain.Itinerary{it}}))
	gen, err := s.SelectItinerary(it)
	require.NoError(t, err)
	require.True(t, s.ApplySeats(gen, domain.SeatMap{42: {{ID: 101, Code: "A3", Available: true}}}))
	_, err = s.ToggleSeat(42, "A3")
	require.NoError(t, err)
	return s
}
