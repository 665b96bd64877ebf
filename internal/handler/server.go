// Package handler implements the HTTP API of the ticket counter.
// All handlers are methods on Server; they are split into files per resource
// (session.go, reference.go, sales.go, ...) but share the Server's
// dependencies. Routes are mounted on a chi router by NewRouter.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/busops/ticket-counter/internal/domain"
)

// BookingServicer is the booking workflow the session handlers drive.
// Defined here, in the consumer, so handler tests can inject a mock.
type BookingServicer interface {
	Start(ctx context.Context, actor domain.ActingUser) (domain.Session, error)
	Get(ctx context.Context, actor domain.ActingUser, id uuid.UUID) (domain.Session, error)
	Discard(ctx context.Context, actor domain.ActingUser, id uuid.UUID) error
	Search(ctx context.Context, actor domain.ActingUser, id uuid.UUID, f domain.SearchFilter) (domain.Session, error)
	SelectItinerary(ctx context.Context, actor domain.ActingUser, id uuid.UUID, kind domain.ItineraryKind, index int) (domain.Session, error)
	ToggleSeat(ctx context.Context, actor domain.ActingUser, id uuid.UUID, legID int64, code string) (domain.Session, error)
	BackToResults(ctx context.Context, actor domain.ActingUser, id uuid.UUID) (domain.Session, error)
	Checkout(ctx context.Context, actor domain.ActingUser, id uuid.UUID) (domain.Session, error)
	Receipt(ctx context.Context, actor domain.ActingUser, id uuid.UUID) ([]byte, string, error)
}

// SearchServicer runs stateless itinerary searches.
type SearchServicer interface {
	Search(ctx context.Context, actor domain.ActingUser, f domain.SearchFilter) (domain.SearchResult, error)
}

// ReferenceServicer lists the locations and stations used in search filters.
// Satisfied by *backend.Client.
type ReferenceServicer interface {
	Locations(ctx context.Context) ([]domain.Location, error)
	Stations(ctx context.Context, locationID *int64) ([]domain.Station, error)
}

// SalesServicer reads the sales journal.
type SalesServicer interface {
	ListPaged(ctx context.Context, actor domain.ActingUser, companyID int64, p domain.PaginationParams) ([]domain.Sale, int64, error)
	GetByID(ctx context.Context, actor domain.ActingUser, id uuid.UUID) (domain.Sale, error)
	Export(ctx context.Context, actor domain.ActingUser, companyID int64) ([]domain.Sale, error)
}

// Check is a named readiness check, e.g. a database ping.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Server holds the dependencies of every handler.
type Server struct {
	booking   BookingServicer
	search    SearchServicer
	reference ReferenceServicer
	sales     SalesServicer
	checks    []Check
	log       *slog.Logger
}

// Deps are the collaborators of a Server. Any of them may be nil in tests
// that do not exercise the corresponding routes.
type Deps struct {
	Booking   BookingServicer
	Search    SearchServicer
	Reference ReferenceServicer
	Sales     SalesServicer
	Checks    []Check
	Logger    *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		booking:   d.Booking,
		search:    d.Search,
		reference: d.Reference,
		sales:     d.Sales,
		checks:    d.Checks,
		log:       log,
	}
}

// NewRouter mounts every route of s. Health and the OpenAPI document are
// public; everything else runs behind authn, which must put the acting user
// into the request context.
func NewRouter(s *Server, authn func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/readyz", s.GetReady)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Group(func(r chi.Router) {
		r.Use(authn)

		r.Get("/locations", s.ListLocations)
		r.Get("/stations", s.ListStations)
		r.Get("/itineraries", s.SearchItineraries)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.CreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetSession)
				r.Delete("/", s.DeleteSession)
				r.Post("/search", s.SearchInSession)
				r.Post("/itinerary", s.SelectItinerary)
				r.Post("/seats/toggle", s.ToggleSeat)
				r.Post("/back", s.BackToResults)
				r.Post("/checkout", s.Checkout)
				r.Get("/receipt", s.GetReceipt)
			})
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", s.ListSales)
			r.Get("/export", s.ExportSales)
			r.Get("/{id}", s.GetSale)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}
