package domain_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busops/ticket-counter/internal/domain"
)

var day = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

func leg(id int64, start time.Time, dur time.Duration, price int64) domain.TripLeg {
	return domain.TripLeg{
		ID:            id,
		TripCode:      "T-" + start.Format("1504"),
		FromStationID: id * 10,
		ToStationID:   id*10 + 1,
		TimeStart:     start,
		TimeEnd:       start.Add(dur),
		Price:         price,
	}
}

// genTransfer builds a transfer itinerary whose second leg departs after a
// random layover following the first leg's arrival.
func genTransfer(r *rand.Rand) domain.Itinerary {
	start := day.Add(time.Duration(r.IntN(20*60)) * time.Minute)
	first := leg(1, start, time.Duration(30+r.IntN(300))*time.Minute, int64(r.IntN(500_000)))
	layover := time.Duration(r.IntN(180)) * time.Minute
	second := leg(2, first.TimeEnd.Add(layover), time.Duration(30+r.IntN(300))*time.Minute, int64(r.IntN(500_000)))
	return domain.NewTransfer(first, second)
}

func TestItinerary_Transfer_LegsNeverOverlap(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for range 500 {
		it := genTransfer(r)

		require.NoError(t, it.Validate())
		assert.False(t, it.Legs[1].TimeStart.Before(it.Legs[0].TimeEnd))
	}
}

func TestItinerary_Validate_RejectsOverlappingLegs(t *testing.T) {
	first := leg(1, day.Add(8*time.Hour), 2*time.Hour, 100)
	second := leg(2, day.Add(9*time.Hour), time.Hour, 100) // departs before first arrives

	err := domain.NewTransfer(first, second).Validate()

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestItinerary_Validate_SameMinuteConnection(t *testing.T) {
	first := leg(1, day.Add(8*time.Hour), 2*time.Hour, 100)
	second := leg(2, first.TimeEnd, time.Hour, 100)

	assert.NoError(t, domain.NewTransfer(first, second).Validate())
}

func TestItinerary_Validate_Shape(t *testing.T) {
	l := leg(1, day, time.Hour, 100)

	assert.ErrorIs(t, domain.Itinerary{Kind: domain.KindDirect}.Validate(), domain.ErrValidation)
	assert.ErrorIs(t, domain.Itinerary{Kind: domain.KindTransfer, Legs: []domain.TripLeg{l}}.Validate(), domain.ErrValidation)

	missing := l
	missing.ToStationID = 0
	assert.ErrorIs(t, domain.NewDirect(missing).Validate(), domain.ErrValidation)

	four := domain.Itinerary{Kind: domain.KindTriple, Legs: []domain.TripLeg{l, l, l, l}}
	assert.ErrorIs(t, four.Validate(), domain.ErrValidation)
}

func TestItinerary_TotalPrice_IsExactSum(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for range 200 {
		a, b, c := int64(r.IntN(2_000_000)), int64(r.IntN(2_000_000)), int64(r.IntN(2_000_000))
		it := domain.NewTriple(
			leg(1, day, time.Hour, a),
			leg(2, day.Add(2*time.Hour), time.Hour, b),
			leg(3, day.Add(4*time.Hour), time.Hour, c),
		)
		assert.Equal(t, a+b+c, it.TotalPrice())
	}
}

func TestItineraryKind_LegCount(t *testing.T) {
	assert.Equal(t, 1, domain.KindDirect.LegCount())
	assert.Equal(t, 2, domain.KindTransfer.LegCount())
	assert.Equal(t, 3, domain.KindTriple.LegCount())
	assert.Equal(t, 0, domain.ItineraryKind("quad").LegCount())
}

func TestSearchFilter_Validate(t *testing.T) {
	assert.ErrorIs(t, domain.SearchFilter{CompanyID: 7}.Validate(), domain.ErrValidation)
	assert.ErrorIs(t, domain.SearchFilter{Date: day}.Validate(), domain.ErrValidation)
	assert.NoError(t, domain.SearchFilter{Date: day, CompanyID: 7}.Validate())
}

func TestSearchResult_Find(t *testing.T) {
	d := domain.NewDirect(leg(1, day, time.Hour, 100))
	res := domain.SearchResult{Direct: []domain.Itinerary{d}}

	got, ok := res.Find(domain.KindDirect, 0)
	require.True(t, ok)
	assert.Equal(t, d, got)

	_, ok = res.Find(domain.KindDirect, 1)
	assert.False(t, ok)
	_, ok = res.Find(domain.KindTransfer, 0)
	assert.False(t, ok)
	assert.False(t, res.Empty())
	assert.True(t, domain.SearchResult{}.Empty())
}

func TestActingUser_ResolveCompany(t *testing.T) {
	staff := domain.ActingUser{ID: 1, CompanyID: 7, Role: domain.RoleStaff}
	admin := domain.ActingUser{ID: 2, Role: domain.RoleAdmin}

	assert.Equal(t, int64(7), staff.ResolveCompany(99), "staff are pinned to their own company")
	assert.Equal(t, int64(99), admin.ResolveCompany(99))
	assert.Equal(t, int64(0), admin.ResolveCompany(0))
	assert.True(t, staff.CanSell())
	assert.False(t, domain.ActingUser{Role: domain.RoleDriver}.CanSell())
}
