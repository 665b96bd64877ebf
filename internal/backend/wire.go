package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/busops/ticket-counter/internal/domain"
)

// Wire types mirror the backend's camelCase JSON. They never leave this
// package; every response is converted to domain types at the boundary.

type wireTrip struct {
	ID               int64    `json:"id"`
	TripID           string   `json:"tripId"`
	FromLocation     string   `json:"fromLocation"`
	ToLocation       string   `json:"toLocation"`
	FromStationID    int64    `json:"fromStationId"`
	ToStationID      int64    `json:"toStationId"`
	TimeStart        wireTime `json:"timeStart"`
	TimeEnd          wireTime `json:"timeEnd"`
	Price            amount   `json:"price"`
	RouteDescription string   `json:"routeDescription"`
}

func (w wireTrip) toDomain() domain.TripLeg {
	return domain.TripLeg{
		ID:               w.ID,
		TripCode:         w.TripID,
		FromLocation:     w.FromLocation,
		ToLocation:       w.ToLocation,
		FromStationID:    w.FromStationID,
		ToStationID:      w.ToStationID,
		TimeStart:        time.Time(w.TimeStart),
		TimeEnd:          time.Time(w.TimeEnd),
		Price:            int64(w.Price),
		RouteDescription: w.RouteDescription,
	}
}

type wireTransfer struct {
	FirstTrip  wireTrip `json:"firstTrip"`
	SecondTrip wireTrip `json:"secondTrip"`
}

type wireTriple struct {
	FirstTrip  wireTrip `json:"firstTrip"`
	SecondTrip wireTrip `json:"secondTrip"`
	ThirdTrip  wireTrip `json:"thirdTrip"`
}

type searchResponse struct {
	DirectTrips   []wireTrip     `json:"directTrips"`
	TransferTrips []wireTransfer `json:"transferTrips"`
	TripleTrips   []wireTriple   `json:"tripleTrips"`
}

// toDomain normalizes the three differently shaped buckets into tagged
// itineraries, keeping backend order. Buckets are never nil.
func (r searchResponse) toDomain() domain.SearchResult {
	out := domain.SearchResult{
		Direct:   make([]domain.Itinerary, 0, len(r.DirectTrips)),
		Transfer: make([]domain.Itinerary, 0, len(r.TransferTrips)),
		Triple:   make([]domain.Itinerary, 0, len(r.TripleTrips)),
	}
	for _, d := range r.DirectTrips {
		out.Direct = append(out.Direct, domain.NewDirect(d.toDomain()))
	}
	for _, t := range r.TransferTrips {
		out.Transfer = append(out.Transfer, domain.NewTransfer(t.FirstTrip.toDomain(), t.SecondTrip.toDomain()))
	}
	for _, t := range r.TripleTrips {
		out.Triple = append(out.Triple, domain.NewTriple(t.FirstTrip.toDomain(), t.SecondTrip.toDomain(), t.ThirdTrip.toDomain()))
	}
	return out
}

type wireSeat struct {
	ID          int64  `json:"id"`
	SeatID      string `json:"seatId"`
	IsAvailable bool   `json:"isAvailable"`
}

type wireTripSeats struct {
	TripID        int64   `json:"tripId"`
	FromStationID int64   `json:"fromStationId"`
	ToStationID   int64   `json:"toStationId"`
	SeatIDs       []int64 `json:"seatIds"`
}

type reservationBody struct {
	CustomerID      int64           `json:"customerId"`
	IsReturn        bool            `json:"isReturn"`
	TripSeats       []wireTripSeats `json:"tripSeats"`
	ReturnTripSeats []wireTripSeats `json:"returnTripSeats"`
}

func newReservationBody(r domain.ReservationRequest) reservationBody {
	body := reservationBody{
		CustomerID:      r.CustomerID,
		IsReturn:        r.IsReturn,
		TripSeats:       make([]wireTripSeats, 0, len(r.TripSeats)),
		ReturnTripSeats: make([]wireTripSeats, 0, len(r.ReturnTripSeats)),
	}
	for _, ts := range r.TripSeats {
		body.TripSeats = append(body.TripSeats, wireTripSeats(ts))
	}
	for _, ts := range r.ReturnTripSeats {
		body.ReturnTripSeats = append(body.ReturnTripSeats, wireTripSeats(ts))
	}
	return body
}

type reservationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type wireLocation struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	AverageTime int    `json:"averageTime"`
}

type wireStation struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	LocationName string `json:"locationName"`
}

// wireTime accepts RFC 3339 timestamps and the zone-less
// "2006-01-02T15:04:05" form some backend endpoints emit (read as UTC).
type wireTime time.Time

var zonelessLayouts = []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05"}

func (t *wireTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = wireTime{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("time: %w", err)
	}
	if v, err := time.Parse(time.RFC3339Nano, s); err == nil {
		*t = wireTime(v)
		return nil
	}
	for _, layout := range zonelessLayouts {
		if v, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			*t = wireTime(v)
			return nil
		}
	}
	return fmt.Errorf("time: unrecognised timestamp %q", s)
}

// amount accepts a price as a JSON number or numeric string. Prices are whole
// currency units; a fractional value is rejected rather than rounded.
type amount int64

func (a *amount) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	raw := string(bytes.Trim(b, `"`))
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*a = amount(v)
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return fmt.Errorf("price: %s is out of range", raw)
	}
	if f != math.Trunc(f) {
		return fmt.Errorf("price: %s is not a whole amount", raw)
	}
	*a = amount(f)
	return nil
}
