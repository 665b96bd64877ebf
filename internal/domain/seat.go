package domain

import "sort"

// Seat is one seat of a leg's seat map.
// Code is the display code ("A3"); ID is the backend identifier used when
// reserving. Codes are only unique within one leg.
type Seat struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	Available bool   `json:"available"`
}

// SeatMap holds the seat maps of every leg of an itinerary, keyed by leg id.
type SeatMap map[int64][]Seat

// Find returns the seat with the given code on the given leg.
func (m SeatMap) Find(legID int64, code string) (Seat, bool) {
	for _, s := range m[legID] {
		if s.Code == code {
			return s, true
		}
	}
	return Seat{}, false
}

// SeatSelection is the transient per-leg seat choice of a booking session.
// It keeps the full Seat, not just the display code, so submission never has
// to translate codes back into ids.
type SeatSelection map[int64][]Seat

// Toggle flips seat in or out of the selection for legID.
// Unavailable seats are never added; toggling one is a no-op.
// It reports whether the selection changed.
func (sel SeatSelection) Toggle(legID int64, seat Seat) bool {
	if !seat.Available {
		return false
	}
	cur := sel[legID]
	for i, s := range cur {
		if s.Code == seat.Code {
			next := append(cur[:i:i], cur[i+1:]...)
			if len(next) == 0 {
				delete(sel, legID)
			} else {
				sel[legID] = next
			}
			return true
		}
	}
	sel[legID] = append(cur, seat)
	return true
}

// Codes returns the selected seat codes of a leg, sorted.
func (sel SeatSelection) Codes(legID int64) []string {
	out := make([]string, 0, len(sel[legID]))
	for _, s := range sel[legID] {
		out = append(out, s.Code)
	}
	sort.Strings(out)
	return out
}

// AllLegsHaveSeat reports whether every leg has at least one selected seat.
// It is false for an itinerary with no legs.
func (sel SeatSelection) AllLegsHaveSeat(legs []TripLeg) bool {
	if len(legs) == 0 {
		return false
	}
	for _, l := range legs {
		if len(sel[l.ID]) == 0 {
			return false
		}
	}
	return true
}

// SeatCountsMatch reports whether every leg holds the same number of
// selected seats.
func (sel SeatSelection) SeatCountsMatch(legs []TripLeg) bool {
	for i := 1; i < len(legs); i++ {
		if len(sel[legs[i].ID]) != len(sel[legs[0].ID]) {
			return false
		}
	}
	return true
}

// Prune drops selected seats that the seat map now reports as unavailable
// or no longer lists. It returns the dropped seats per leg.
func (sel SeatSelection) Prune(m SeatMap) map[int64][]Seat {
	dropped := map[int64][]Seat{}
	for legID, seats := range sel {
		var keep []Seat
		for _, s := range seats {
			if cur, ok := m.Find(legID, s.Code); ok && cur.Available {
				keep = append(keep, cur)
				continue
			}
			dropped[legID] = append(dropped[legID], s)
		}
		if len(keep) == 0 {
			delete(sel, legID)
		} else {
			sel[legID] = keep
		}
	}
	return dropped
}
