package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sale is one entry of the counter sales journal: the outcome of a single
// reservation submission. Failed submissions are journaled too.
type Sale struct {
	ID         uuid.UUID
	SessionID  uuid.UUID
	StaffID    int64
	CompanyID  int64
	Kind       ItineraryKind
	TripIDs    []int64 // leg order
	SeatCount  int
	TotalPrice int64 // all seats on all legs
	Success    bool
	Message    string
	CreatedAt  time.Time
}
