// Package domain contains the core data types for the ticket counter service.
// It has no dependencies on the other internal packages and is imported by
// every one of them (backend, service, session, repo, handler).
package domain

import (
	"fmt"
	"time"
)

// TripLeg is one scheduled bus segment returned by an itinerary search.
// Legs are immutable for the lifetime of a booking session.
type TripLeg struct {
	ID               int64     `json:"id"`
	TripCode         string    `json:"trip_code"`
	FromLocation     string    `json:"from_location"`
	ToLocation       string    `json:"to_location"`
	FromStationID    int64     `json:"from_station_id"`
	ToStationID      int64     `json:"to_station_id"`
	TimeStart        time.Time `json:"time_start"`
	TimeEnd          time.Time `json:"time_end"`
	Price            int64     `json:"price"`
	RouteDescription string    `json:"route_description,omitempty"`
}

// ItineraryKind tags the shape of an Itinerary.
type ItineraryKind string

const (
	KindDirect   ItineraryKind = "direct"
	KindTransfer ItineraryKind = "transfer"
	KindTriple   ItineraryKind = "triple"
)

// LegCount returns how many legs an itinerary of this kind carries,
// or 0 for an unknown kind.
func (k ItineraryKind) LegCount() int {
	switch k {
	case KindDirect:
		return 1
	case KindTransfer:
		return 2
	case KindTriple:
		return 3
	}
	return 0
}

// Itinerary is an ordered journey of one to three legs.
// The three response shapes of the backend (direct, transfer, triple) are
// normalized into this one type at the search boundary, so downstream code
// only ever ranges over Legs.
type Itinerary struct {
	Kind ItineraryKind `json:"kind"`
	Legs []TripLeg     `json:"legs"`
}

// NewDirect, NewTransfer and NewTriple build the three itinerary shapes.
func NewDirect(leg TripLeg) Itinerary {
	return Itinerary{Kind: KindDirect, Legs: []TripLeg{leg}}
}

func NewTransfer(first, second TripLeg) Itinerary {
	return Itinerary{Kind: KindTransfer, Legs: []TripLeg{first, second}}
}

func NewTriple(first, second, third TripLeg) Itinerary {
	return Itinerary{Kind: KindTriple, Legs: []TripLeg{first, second, third}}
}

// TotalPrice is the plain sum of every leg's price.
func (it Itinerary) TotalPrice() int64 {
	var total int64
	for _, l := range it.Legs {
		total += l.Price
	}
	return total
}

// Leg returns the leg with the given id.
func (it Itinerary) Leg(legID int64) (TripLeg, bool) {
	for _, l := range it.Legs {
		if l.ID == legID {
			return l, true
		}
	}
	return TripLeg{}, false
}

// Validate checks the structural invariants of an itinerary:
//   - it has 1 to 3 legs, matching its kind
//   - every leg has an id and both station ids
//   - legs are chronological: each leg starts no earlier than the previous
//     leg ends
func (it Itinerary) Validate() error {
	n := len(it.Legs)
	if n < 1 || n > 3 {
		return fmt.Errorf("%w: itinerary must have 1 to 3 legs, got %d", ErrValidation, n)
	}
	if want := it.Kind.LegCount(); want != n {
		return fmt.Errorf("%w: %s itinerary must have %d legs, got %d", ErrValidation, it.Kind, want, n)
	}
	for i, l := range it.Legs {
		if l.ID == 0 || l.FromStationID == 0 || l.ToStationID == 0 {
			return fmt.Errorf("%w: leg %d is missing its trip or station id", ErrValidation, i+1)
		}
		if i == 0 {
			continue
		}
		prev := it.Legs[i-1]
		if l.TimeStart.Before(prev.TimeStart) || l.TimeStart.Before(prev.TimeEnd) {
			return fmt.Errorf("%w: leg %d departs before leg %d arrives", ErrValidation, i+1, i)
		}
	}
	return nil
}

// SearchFilter narrows an itinerary search.
// Date and CompanyID are required; the location and station ids are optional.
type SearchFilter struct {
	FromLocationID *int64    `json:"from_location_id,omitempty"`
	FromStationID  *int64    `json:"from_station_id,omitempty"`
	ToLocationID   *int64    `json:"to_location_id,omitempty"`
	ToStationID    *int64    `json:"to_station_id,omitempty"`
	Date           time.Time `json:"date"`
	CompanyID      int64     `json:"company_id"`
}

// Validate enforces the required fields of a search.
func (f SearchFilter) Validate() error {
	if f.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if f.CompanyID <= 0 {
		return fmt.Errorf("%w: company_id is required", ErrValidation)
	}
	return nil
}

// SearchResult holds the three itinerary buckets of a search in the order the
// backend returned them. Any bucket may be empty.
type SearchResult struct {
	Direct   []Itinerary `json:"direct"`
	Transfer []Itinerary `json:"transfer"`
	Triple   []Itinerary `json:"triple"`
}

// Empty reports whether no bucket holds an itinerary.
func (r SearchResult) Empty() bool {
	return len(r.Direct) == 0 && len(r.Transfer) == 0 && len(r.Triple) == 0
}

// Find returns the itinerary at index within the bucket of the given kind.
func (r SearchResult) Find(kind ItineraryKind, index int) (Itinerary, bool) {
	var bucket []Itinerary
	switch kind {
	case KindDirect:
		bucket = r.Direct
	case KindTransfer:
		bucket = r.Transfer
	case KindTriple:
		bucket = r.Triple
	}
	if index < 0 || index >= len(bucket) {
		return Itinerary{}, false
	}
	return bucket[index], true
}
