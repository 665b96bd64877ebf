package handler

import (
	"net/http"

	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ListLocations handles GET /locations.
func (s *Server) ListLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := s.reference.Locations(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

// ListStations handles GET /stations?location_id=.
func (s *Server) ListStations(w http.ResponseWriter, r *http.Request) {
	var locationID *int64
	if err := runtime.BindQueryParameter("form", true, false, "location_id", r.URL.Query(), &locationID); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}
	stations, err := s.reference.Stations(r.Context(), locationID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stations)
}

// SearchItineraries handles GET /itineraries, a search that does not touch
// any session.
func (s *Server) SearchItineraries(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}

	var (
		req  SearchRequest
		date openapi_types.Date
		q    = r.URL.Query()
	)
	for _, p := range []struct {
		name     string
		required bool
		dest     any
	}{
		{"date", true, &date},
		{"from_location_id", false, &req.FromLocationID},
		{"from_station_id", false, &req.FromStationID},
		{"to_location_id", false, &req.ToLocationID},
		{"to_station_id", false, &req.ToStationID},
		{"company_id", false, &req.CompanyID},
	} {
		if err := runtime.BindQueryParameter("form", true, p.required, p.name, q, p.dest); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
			return
		}
	}
	req.Date = &date

	res, err := s.search.Search(r.Context(), u, req.toFilter())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
