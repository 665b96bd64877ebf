package domain

// TripSeats is the reservation of a set of seats on one leg.
type TripSeats struct {
	TripID        int64   `json:"trip_id"`
	FromStationID int64   `json:"from_station_id"`
	ToStationID   int64   `json:"to_station_id"`
	SeatIDs       []int64 `json:"seat_ids"`
}

// ReservationRequest is the single atomic submission for every leg of an
// itinerary. Counter sales are one-way: IsReturn is false and ReturnTripSeats
// is always empty.
type ReservationRequest struct {
	CustomerID      int64       `json:"customer_id"`
	IsReturn        bool        `json:"is_return"`
	TripSeats       []TripSeats `json:"trip_seats"`
	ReturnTripSeats []TripSeats `json:"return_trip_seats"`
}

// SeatCount is the total number of seats across all legs.
func (r ReservationRequest) SeatCount() int {
	n := 0
	for _, ts := range r.TripSeats {
		n += len(ts.SeatIDs)
	}
	return n
}

// ReservationResult is the outcome of a submission. A backend rejection is a
// normal result with Success false and the backend's message.
type ReservationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
