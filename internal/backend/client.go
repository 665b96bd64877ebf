// Package backend is the HTTP client for the upstream ticketing REST API.
// It owns the wire format; callers only see domain types.
//
// Every call forwards the caller's bearer token (see auth.WithActor), runs in
// its own client span, and maps failures onto domain.ErrBackend. Nothing is
// retried here.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/busops/ticket-counter/internal/auth"
	"github.com/busops/ticket-counter/internal/domain"
)

const tracerName = "github.com/busops/ticket-counter/internal/backend"

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 64 << 10

// Client calls the ticketing backend.
type Client struct {
	base   *url.URL
	http   *http.Client
	tracer trace.Tracer
}

// New constructs a Client for the backend at baseURL with the given request
// timeout.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

// NewWithHTTPClient constructs a Client that sends requests through hc.
func NewWithHTTPClient(baseURL string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend.New: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend.New: base url must be http or https, got %q", baseURL)
	}
	return &Client{base: u, http: hc, tracer: otel.Tracer(tracerName)}, nil
}

// SearchTrips runs one itinerary search. An empty result is not an error.
func (c *Client) SearchTrips(ctx context.Context, f domain.SearchFilter) (domain.SearchResult, error) {
	q := url.Values{}
	q.Set("date", f.Date.Format(time.DateOnly))
	q.Set("companyId", strconv.FormatInt(f.CompanyID, 10))
	setOptional(q, "fromLocationId", f.FromLocationID)
	setOptional(q, "fromStationId", f.FromStationID)
	setOptional(q, "toLocationId", f.ToLocationID)
	setOptional(q, "toStationId", f.ToStationID)

	var resp searchResponse
	if err := c.do(ctx, "search_trips", http.MethodGet, "/api/trips/search", q, nil, &resp); err != nil {
		return domain.SearchResult{}, fmt.Errorf("backend.Client.SearchTrips: %w", err)
	}
	return resp.toDomain(), nil
}

// SeatMap returns the seat map of one leg between its boarding and
// alighting stations.
func (c *Client) SeatMap(ctx context.Context, leg domain.TripLeg) ([]domain.Seat, error) {
	q := url.Values{}
	q.Set("fromStationId", strconv.FormatInt(leg.FromStationID, 10))
	q.Set("toStationId", strconv.FormatInt(leg.ToStationID, 10))
	path := "/api/trips/" + strconv.FormatInt(leg.ID, 10) + "/seats"

	var resp []wireSeat
	if err := c.do(ctx, "seat_map", http.MethodGet, path, q, nil, &resp); err != nil {
		return nil, fmt.Errorf("backend.Client.SeatMap: leg %d: %w", leg.ID, err)
	}

	seats := make([]domain.Seat, 0, len(resp))
	for _, s := range resp {
		seats = append(seats, domain.Seat{ID: s.ID, Code: s.SeatID, Available: s.IsAvailable})
	}
	return seats, nil
}

// Reserve submits a reservation. The backend accepts or rejects it as a
// whole. A rejection (any answer carrying a message, 5xx included) is
// returned as a result with Success false so the message reaches the staff
// member; only transport failures and unreadable or message-less error
// responses are errors.
func (c *Client) Reserve(ctx context.Context, r domain.ReservationRequest) (domain.ReservationResult, error) {
	var resp reservationResponse
	err := c.do(ctx, "reserve", http.MethodPost, "/api/reservations", nil, newReservationBody(r), &resp)

	var rejected *rejection
	switch {
	case errors.As(err, &rejected):
		return domain.ReservationResult{Success: false, Message: rejected.message}, nil
	case err != nil:
		return domain.ReservationResult{}, fmt.Errorf("backend.Client.Reserve: %w", err)
	}
	return domain.ReservationResult{Success: resp.Success, Message: resp.Message}, nil
}

// Locations lists every location known to the backend.
func (c *Client) Locations(ctx context.Context) ([]domain.Location, error) {
	var resp []wireLocation
	if err := c.do(ctx, "locations", http.MethodGet, "/api/locations", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("backend.Client.Locations: %w", err)
	}
	out := make([]domain.Location, 0, len(resp))
	for _, l := range resp {
		out = append(out, domain.Location{ID: l.ID, Name: l.Name, AverageTransitMinutes: l.AverageTime})
	}
	return out, nil
}

// Stations lists stations, optionally only those of one location.
func (c *Client) Stations(ctx context.Context, locationID *int64) ([]domain.Station, error) {
	q := url.Values{}
	setOptional(q, "locationId", locationID)

	var resp []wireStation
	if err := c.do(ctx, "stations", http.MethodGet, "/api/stations", q, nil, &resp); err != nil {
		return nil, fmt.Errorf("backend.Client.Stations: %w", err)
	}
	out := make([]domain.Station, 0, len(resp))
	for _, s := range resp {
		out = append(out, domain.Station(s))
	}
	return out, nil
}

// rejection is a non-2xx answer to a reservation that carries a readable
// message.
type rejection struct {
	status  int
	message string
}

func (r *rejection) Error() string {
	return fmt.Sprintf("rejected with status %d: %s", r.status, r.message)
}

// do performs one JSON request and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, in, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "backend."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = q.Encode()
	span.SetAttributes(attribute.String("http.request.method", method), attribute.String("url.path", u.Path))

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := auth.TokenFromContext(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrBackend, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorMessage(resp.Body)
		if op == "reserve" && resp.StatusCode >= 400 && msg != "" {
			return &rejection{status: resp.StatusCode, message: msg}
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%w: %s %s: status %d: %s", domain.ErrBackend, method, path, resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", domain.ErrBackend, path, err)
	}
	return nil
}

// errorMessage extracts {"message": "..."} from an error body, or "".
func errorMessage(r io.Reader) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(r, maxErrorBody)).Decode(&body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Message)
}

func setOptional(q url.Values, key string, v *int64) {
	if v != nil {
		q.Set(key, strconv.FormatInt(*v, 10))
	}
}
