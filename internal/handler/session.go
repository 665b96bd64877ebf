package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/busops/ticket-counter/internal/domain"
)

// SessionResponse is the client view of a booking session plus the values
// derived from it. Store bookkeeping (version, generation) and the acting
// user stay server-side.
type SessionResponse struct {
	ID        uuid.UUID                 `json:"id"`
	State     domain.SessionState       `json:"state"`
	Filter    *domain.SearchFilter      `json:"filter,omitempty"`
	Results   *domain.SearchResult      `json:"results,omitempty"`
	Itinerary *domain.Itinerary         `json:"itinerary,omitempty"`
	Seats     domain.SeatMap            `json:"seats,omitempty"`
	Selection domain.SeatSelection      `json:"selection,omitempty"`
	SeatError string                    `json:"seat_error,omitempty"`
	Result    *domain.ReservationResult `json:"result,omitempty"`
	CreatedAt time.Time                 `json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`

	IsReady    bool  `json:"ready"`
	TotalPrice int64 `json:"total_price"`
	AmountDue  int64 `json:"amount_due"`
	SeatCount  int   `json:"seat_count"`
}

func toSessionResponse(s domain.Session) SessionResponse {
	return SessionResponse{
		ID:         s.ID,
		State:      s.State,
		Filter:     s.Filter,
		Results:    s.Results,
		Itinerary:  s.Itinerary,
		Seats:      s.Seats,
		Selection:  s.Selection,
		SeatError:  s.SeatError,
		Result:     s.Result,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
		IsReady:    s.Ready(),
		TotalPrice: s.TotalPrice(),
		AmountDue:  s.AmountDue(),
		SeatCount:  s.SeatCount(),
	}
}

// SearchRequest is the body of POST /sessions/{id}/search.
type SearchRequest struct {
	FromLocationID *int64              `json:"from_location_id,omitempty"`
	FromStationID  *int64              `json:"from_station_id,omitempty"`
	ToLocationID   *int64              `json:"to_location_id,omitempty"`
	ToStationID    *int64              `json:"to_station_id,omitempty"`
	Date           *openapi_types.Date `json:"date"`
	CompanyID      *int64              `json:"company_id,omitempty"`
}

func (req SearchRequest) toFilter() domain.SearchFilter {
	f := domain.SearchFilter{
		FromLocationID: req.FromLocationID,
		FromStationID:  req.FromStationID,
		ToLocationID:   req.ToLocationID,
		ToStationID:    req.ToStationID,
	}
	if req.Date != nil {
		f.Date = time.Date(req.Date.Year(), req.Date.Month(), req.Date.Day(), 0, 0, 0, 0, time.UTC)
	}
	if req.CompanyID != nil {
		f.CompanyID = *req.CompanyID
	}
	return f
}

// SelectItineraryRequest is the body of POST /sessions/{id}/itinerary.
type SelectItineraryRequest struct {
	Kind  domain.ItineraryKind `json:"kind"`
	Index int                  `json:"index"`
}

// ToggleSeatRequest is the body of POST /sessions/{id}/seats/toggle.
type ToggleSeatRequest struct {
	LegID int64  `json:"leg_id"`
	Code  string `json:"code"`
}

// sessionID parses the {id} path parameter, writing a 404 when it is not a
// UUID.
func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "session not found")
		return uuid.Nil, false
	}
	return id, true
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	sess, err := s.booking.Start(r.Context(), u)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+sess.ID.String())
	writeJSON(w, http.StatusCreated, toSessionResponse(sess))
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(u domain.ActingUser, id uuid.UUID) (domain.Session, error) {
		return s.booking.Get(r.Context(), u, id)
	})
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := s.booking.Discard(r.Context(), u, id); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchInSession handles POST /sessions/{id}/search.
func (s *Server) SearchInSession(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withSession(w, r, func(u domain.ActingUser, id uuid.UUID) (domain.Session, error) {
		return s.booking.Search(r.Context(), u, id, req.toFilter())
	})
}

// SelectItinerary handles POST /sessions/{id}/itinerary.
func (s *Server) SelectItinerary(w http.ResponseWriter, r *http.Request) {
	var req SelectItineraryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Kind.LegCount() == 0 {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "kind must be direct, transfer or triple")
		return
	}
	s.withSession(w, r, func(u domain.ActingUser, id uuid.UUID) (domain.Session, error) {
		return s.booking.SelectItinerary(r.Context(), u, id, req.Kind, req.Index)
	})
}

// ToggleSeat handles POST /sessions/{id}/seats/toggle.
func (s *Server) ToggleSeat(w http.ResponseWriter, r *http.Request) {
	var req ToggleSeatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.LegID == 0 || req.Code == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "leg_id and code are required")
		return
	}
	s.withSession(w, r, func(u domain.ActingUser, id uuid.UUID) (domain.Session, error) {
		return s.booking.ToggleSeat(r.Context(), u, id, req.LegID, req.Code)
	})
}

// BackToResults handles POST /sessions/{id}/back.
func (s *Server) BackToResults(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(u domain.ActingUser, id uuid.UUID) (domain.Session, error) {
		return s.booking.BackToResults(r.Context(), u, id)
	})
}

// Checkout handles POST /sessions/{id}/checkout. Both a confirmed and a
// rejected reservation answer 200; the outcome is in the session's result.
func (s *Server) Checkout(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(u domain.ActingUser, id uuid.UUID) (domain.Session, error) {
		return s.booking.Checkout(r.Context(), u, id)
	})
}

// GetReceipt handles GET /sessions/{id}/receipt.
func (s *Server) GetReceipt(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	pdf, name, err := s.booking.Receipt(r.Context(), u, id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// withSession runs op for the acting user and the {id} session and writes
// the resulting session.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, op func(domain.ActingUser, uuid.UUID) (domain.Session, error)) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	sess, err := op(u, id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}
